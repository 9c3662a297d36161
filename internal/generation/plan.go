package generation

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ai-marketing-designer/internal/assets"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/schema"
)

// Plan runs phase 2: it expands the selected route into the eight-item
// content plan. Validation is strict; a malformed plan is never repaired.
func (c *Client) Plan(ctx context.Context, route marketing.MarketingRoute, analysis marketing.ProductAnalysis, referenceCopy string) (*marketing.ContentPlan, error) {
	if err := checkText(OpPlan, "reference copy", referenceCopy, MaxReferenceCopyChars); err != nil {
		return nil, err
	}

	text, err := assets.RenderPlanRequest(assets.PlanRequest{
		Route:         route,
		Analysis:      analysis,
		ReferenceCopy: referenceCopy,
	})
	if err != nil {
		return nil, newError(KindFatal, OpPlan, err, "planning failed: %v", err)
	}

	budget := PlanThinkingBudget
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.opts.Prompts.Planner, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
	if c.opts.ResponseSchema {
		cfg.ResponseJsonSchema = planSchema
	}

	log.Debug().
		Str("route", route.RouteName).
		Int("referenceChars", len(referenceCopy)).
		Msg("Requesting content plan")

	resp, err := c.call(ctx, OpPlan, c.opts.Models.Planning, TextRetry, genai.Text(text), cfg)
	if err != nil {
		return nil, err
	}

	raw, err := decodeStructured(OpPlan, "planning failed", resp)
	if err != nil {
		return nil, err
	}
	plan, err := schema.ValidateContentPlan(raw)
	if err != nil {
		return nil, validationError(OpPlan, "planning failed", err)
	}
	return plan, nil
}
