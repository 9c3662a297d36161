package generation

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ai-marketing-designer/internal/assets"
	"github.com/fpang/ai-marketing-designer/internal/errtext"
	"github.com/fpang/ai-marketing-designer/internal/jsonutil"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/schema"
)

// Analyze runs phase 1: it sends the product photo with the composed name and
// brand context to the analysis model and returns the validated (and, if
// needed, repaired) strategy output.
func (c *Client) Analyze(ctx context.Context, img marketing.ImageInput, productName, brandContext string) (*marketing.DirectorOutput, error) {
	if err := checkImage(OpAnalyze, "product photo", img); err != nil {
		return nil, err
	}
	if err := checkText(OpAnalyze, "product name", productName, MaxProductNameChars); err != nil {
		return nil, err
	}
	if err := checkText(OpAnalyze, "brand context", brandContext, MaxBrandContextChars); err != nil {
		return nil, err
	}

	text, err := assets.RenderAnalysisRequest(assets.AnalysisRequest{
		ProductName:  productName,
		BrandContext: brandContext,
	})
	if err != nil {
		return nil, newError(KindFatal, OpAnalyze, err, "analysis failed: %v", err)
	}

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIMEType),
		genai.NewPartFromText(text),
	}, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.opts.Prompts.Director, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if c.opts.ResponseSchema {
		cfg.ResponseJsonSchema = strategySchema
	}

	log.Debug().
		Str("product", productName).
		Int("imageBytes", len(img.Data)).
		Str("mime", img.MIMEType).
		Msg("Requesting strategy analysis")

	resp, err := c.call(ctx, OpAnalyze, c.opts.Models.Analysis, TextRetry, contents, cfg)
	if err != nil {
		return nil, err
	}

	raw, err := decodeStructured(OpAnalyze, "analysis failed", resp)
	if err != nil {
		return nil, err
	}
	out, err := schema.ValidateStrategyOutput(raw)
	if err != nil {
		return nil, validationError(OpAnalyze, "analysis failed", err)
	}
	return out, nil
}

// decodeStructured pulls the text payload out of resp and decodes it as
// JSON. A missing payload and a parse failure are logged differently but
// surface as the same KindValidation failure.
func decodeStructured(op, prefix string, resp *genai.GenerateContentResponse) (any, error) {
	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if text == "" {
		log.Error().Str("op", op).Str("reason", "no_text").Msg("Structured response carried no text")
		return nil, newError(KindValidation, op, nil, "%s: the model returned no text", prefix)
	}

	raw, err := jsonutil.Decode(text)
	if err != nil {
		log.Error().
			Err(err).
			Str("op", op).
			Str("reason", "parse").
			Str("text", errtext.Truncate(text, 500)).
			Msg("Structured response is not valid JSON")
		return nil, newError(KindValidation, op, err, "%s: the model returned malformed JSON", prefix)
	}
	return raw, nil
}

func validationError(op, prefix string, err error) *Error {
	ge := newError(KindValidation, op, err, "%s: %v", prefix, err)
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		ge.Issues = ve.Issues
		log.Error().
			Str("op", op).
			Str("reason", "schema").
			Int("issues", len(ve.Issues)).
			Msg("Structured response failed validation")
	}
	return ge
}
