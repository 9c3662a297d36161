package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func strategyJSON(routes, prompts int) map[string]any {
	rs := make([]any, routes)
	for i := range rs {
		ps := make([]any, prompts)
		for j := range ps {
			ps[j] = map[string]any{
				"prompt_text": fmt.Sprintf("Studio shot of the lamp, concept %d-%d, soft light", i, j),
				"summary":     "soft studio light",
			}
		}
		rs[i] = map[string]any{
			"route_name":    fmt.Sprintf("Route %d", i+1),
			"headline":      "Light that follows you",
			"subhead":       "A lamp for quiet evenings",
			"style_brief":   "Warm minimalism, natural wood",
			"image_prompts": ps,
		}
	}
	return map[string]any{
		"product_analysis": map[string]any{
			"name":               "Aurora Lamp",
			"visual_description": "Frosted glass dome on an oak base",
			"key_features":       "Dimmable, cordless, USB-C charging",
		},
		"marketing_routes": rs,
	}
}

var planIDs = []string{
	"img_1_white", "img_2_lifestyle", "img_3_hook", "img_4_problem",
	"img_5_solution", "img_6_features", "img_7_trust", "img_8_cta",
}

func planJSON(n int) map[string]any {
	items := make([]any, n)
	for i := range items {
		typ, ratio := "story_slide", "9:16"
		switch i {
		case 0:
			typ, ratio = "main_white", "1:1"
		case 1:
			typ, ratio = "main_lifestyle", "1:1"
		}
		items[i] = map[string]any{
			"id":             planIDs[i%len(planIDs)],
			"type":           typ,
			"ratio":          ratio,
			"title":          "Glow anywhere",
			"copy":           "Cordless light that moves with you from desk to bedside.",
			"visual_prompt":  "Frosted glass lamp on an oak nightstand, warm evening light, shallow depth of field",
			"visual_summary": "lamp on nightstand at dusk",
		}
	}
	return map[string]any{"plan_name": "Aurora launch set", "items": items}
}

func issuePaths(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T", err)
	paths := make([]string, len(ve.Issues))
	for i, is := range ve.Issues {
		paths[i] = is.Path
	}
	return paths
}

func TestValidateStrategyOutput_Valid(t *testing.T) {
	out, err := ValidateStrategyOutput(strategyJSON(2, 3))
	require.NoError(t, err)
	require.Len(t, out.MarketingRoutes, 2)
	for _, r := range out.MarketingRoutes {
		assert.Len(t, r.ImagePrompts, 3)
	}
	assert.Equal(t, "Aurora Lamp", out.ProductAnalysis.Name)
}

func TestValidateStrategyOutput_LenientCounts(t *testing.T) {
	_, err := ValidateStrategyOutput(strategyJSON(1, 1))
	require.NoError(t, err)
	_, err = ValidateStrategyOutput(strategyJSON(10, 10))
	require.NoError(t, err)

	_, err = ValidateStrategyOutput(strategyJSON(11, 3))
	assert.Contains(t, issuePaths(t, err), "marketing_routes")
	_, err = ValidateStrategyOutput(strategyJSON(3, 11))
	assert.Contains(t, issuePaths(t, err), "marketing_routes.0.image_prompts")
}

func TestValidateStrategyOutput_EmptyObjectStillFails(t *testing.T) {
	_, err := ValidateStrategyOutput(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, issuePaths(t, err), "marketing_routes")
	assert.Contains(t, err.Error(), "marketing_routes: ")
}

func TestValidateStrategyOutput_ReportsOriginalIssues(t *testing.T) {
	raw := strategyJSON(1, 1)
	raw["marketing_routes"] = "not a list"

	_, err := ValidateStrategyOutput(raw)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	// The repaired input would fail on "must contain at least 1 items"; the
	// first-pass type mismatch is what gets reported.
	require.NotEmpty(t, ve.Issues)
	assert.Equal(t, "marketing_routes", ve.Issues[0].Path)
	assert.Contains(t, ve.Issues[0].Message, "expected array")
}

func TestValidateStrategyOutput_RepairRescuesBlankSummary(t *testing.T) {
	raw := strategyJSON(1, 2)
	route := raw["marketing_routes"].([]any)[0].(map[string]any)
	route["image_prompts"].([]any)[0].(map[string]any)["summary"] = false

	out, err := ValidateStrategyOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, "", out.MarketingRoutes[0].ImagePrompts[0].Summary)
	// input untouched
	assert.Equal(t, false, route["image_prompts"].([]any)[0].(map[string]any)["summary"])
}

func TestValidateStrategyOutput_ShortFields(t *testing.T) {
	raw := strategyJSON(1, 1)
	route := raw["marketing_routes"].([]any)[0].(map[string]any)
	route["style_brief"] = "tiny"
	route["image_prompts"].([]any)[0].(map[string]any)["prompt_text"] = "too short"

	_, err := ValidateStrategyOutput(raw)
	paths := issuePaths(t, err)
	assert.Contains(t, paths, "marketing_routes.0.style_brief")
	assert.Contains(t, paths, "marketing_routes.0.image_prompts.0.prompt_text")
}

func TestValidateStrategyOutput_CountsRunesNotBytes(t *testing.T) {
	raw := strategyJSON(1, 1)
	raw["product_analysis"].(map[string]any)["key_features"] = "無線可調光" // 5 runes, 15 bytes
	_, err := ValidateStrategyOutput(raw)
	require.NoError(t, err)
}

func TestValidateStrategyOutput_NotAnObject(t *testing.T) {
	_, err := ValidateStrategyOutput(decode(t, `[1,2]`))
	assert.Equal(t, []string{"(root)"}, issuePaths(t, err))
	_, err = ValidateStrategyOutput(nil)
	assert.Equal(t, []string{"(root)"}, issuePaths(t, err))
}

func TestValidateContentPlan_Valid(t *testing.T) {
	plan, err := ValidateContentPlan(planJSON(8))
	require.NoError(t, err)
	assert.Len(t, plan.Items, 8)
	assert.Equal(t, "img_1_white", plan.Items[0].ID)
}

func TestValidateContentPlan_RejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 7, 9, 16} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			_, err := ValidateContentPlan(planJSON(n))
			assert.Contains(t, issuePaths(t, err), "items")
		})
	}
}

func TestValidateContentPlan_ItemRules(t *testing.T) {
	raw := planJSON(8)
	items := raw["items"].([]any)
	items[2].(map[string]any)["id"] = "img_3_teaser"
	items[3].(map[string]any)["ratio"] = "4:3"
	items[4].(map[string]any)["title"] = strings.Repeat("x", 31)
	items[5].(map[string]any)["visual_summary"] = "short"

	_, err := ValidateContentPlan(raw)
	paths := issuePaths(t, err)
	assert.Contains(t, paths, "items.2.id")
	assert.Contains(t, paths, "items.3.ratio")
	assert.Contains(t, paths, "items.4.title")
	assert.Contains(t, paths, "items.5.visual_summary")
}

func TestValidateContentPlan_NoRepair(t *testing.T) {
	raw := planJSON(8)
	delete(raw, "items")
	_, err := ValidateContentPlan(raw)
	assert.Contains(t, issuePaths(t, err), "items")
}

func TestIssueString(t *testing.T) {
	assert.Equal(t, "items.0.id: bad", Issue{Path: "items.0.id", Message: "bad"}.String())
}
