package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/fpang/ai-marketing-designer/internal/auth"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type step struct {
	resp *genai.GenerateContentResponse
	err  error
}

type recordedCall struct {
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

// fakeGen replays scripted steps; the last step repeats.
type fakeGen struct {
	mu    sync.Mutex
	steps []step
	calls []recordedCall
}

func (f *fakeGen) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{model: model, contents: contents, cfg: cfg})
	s := f.steps[min(len(f.calls), len(f.steps))-1]
	return s.resp, s.err
}

func (f *fakeGen) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type harness struct {
	client *Client
	gen    *fakeGen
	sleeps []time.Duration
	keys   []string
}

func newHarness(t *testing.T, steps ...step) *harness {
	t.Helper()
	h := &harness{gen: &fakeGen{steps: steps}}
	h.client = New(Options{
		ResponseSchema: true,
		Fallback:       auth.Static("test-key"),
		Backend: func(_ context.Context, key string) (ContentGenerator, error) {
			h.keys = append(h.keys, key)
			return h.gen, nil
		},
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return ctx.Err()
		},
	})
	return h
}

// captureLogs routes the global logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func textResp(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText(s, genai.RoleModel),
	}}}
}

func imageResp(data []byte, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText("here is your poster"),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleModel),
	}}}
}

func strategyText(routes, prompts int) string {
	type prompt struct {
		PromptText string `json:"prompt_text"`
		Summary    string `json:"summary"`
	}
	rs := make([]map[string]any, routes)
	for i := range rs {
		ps := make([]prompt, prompts)
		for j := range ps {
			ps[j] = prompt{
				PromptText: fmt.Sprintf("A stunning professional advertising poster layout, concept %d.%d", i, j),
				Summary:    "warm glow on oak",
			}
		}
		rs[i] = map[string]any{
			"route_name":    fmt.Sprintf("Route %c", 'A'+i),
			"headline":      "Light that follows you",
			"subhead":       "Cordless glow for every room",
			"style_brief":   "Scandinavian warmth, soft shadows",
			"image_prompts": ps,
		}
	}
	b, _ := json.Marshal(map[string]any{
		"product_analysis": map[string]any{
			"name":               "Aurora Lamp",
			"visual_description": "Frosted glass dome on a turned oak base",
			"key_features":       "Cordless, dimmable, USB-C",
		},
		"marketing_routes": rs,
	})
	return "```json\n" + string(b) + "\n```"
}

var planIDs = []string{
	"img_1_white", "img_2_lifestyle", "img_3_hook", "img_4_problem",
	"img_5_solution", "img_6_features", "img_7_trust", "img_8_cta",
}

func planText(n int) string {
	items := make([]marketing.ContentItem, n)
	for i := range items {
		typ, ratio := marketing.ItemStorySlide, marketing.RatioPortrait
		if i == 0 {
			typ, ratio = marketing.ItemMainWhite, marketing.RatioSquare
		} else if i == 1 {
			typ, ratio = marketing.ItemMainLifestyle, marketing.RatioSquare
		}
		items[i] = marketing.ContentItem{
			ID:            planIDs[i%len(planIDs)],
			Type:          typ,
			Ratio:         ratio,
			Title:         "Glow anywhere",
			Copy:          "Cordless light that moves with you from desk to bedside.",
			VisualPrompt:  "Frosted glass lamp on an oak nightstand, warm evening light, shallow depth of field",
			VisualSummary: "lamp on nightstand at dusk",
		}
	}
	b, _ := json.Marshal(marketing.ContentPlan{PlanName: "Aurora launch set", Items: items})
	return string(b)
}

func photo() marketing.ImageInput {
	return marketing.ImageInput{Data: []byte{0xff, 0xd8, 0xff, 0xe0}, MIMEType: "image/jpeg"}
}

func TestAnalyze_AuroraLamp(t *testing.T) {
	h := newHarness(t, step{resp: textResp(strategyText(2, 3))})

	out, err := h.client.Analyze(context.Background(), photo(), "Aurora Lamp", "")
	require.NoError(t, err)
	require.Len(t, out.MarketingRoutes, 2)
	for _, r := range out.MarketingRoutes {
		assert.Len(t, r.ImagePrompts, 3)
	}
	assert.Equal(t, "Aurora Lamp", out.ProductAnalysis.Name)

	require.Equal(t, 1, h.gen.callCount())
	call := h.gen.calls[0]
	assert.Equal(t, "gemini-2.5-flash", call.model)
	assert.Equal(t, "application/json", call.cfg.ResponseMIMEType)
	assert.NotNil(t, call.cfg.SystemInstruction)
	assert.NotNil(t, call.cfg.ResponseJsonSchema)

	parts := call.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.Contains(t, parts[1].Text, "Aurora Lamp")
	assert.Equal(t, []string{"test-key"}, h.keys)
}

func TestAnalyze_RetriesTransientThenGivesUp(t *testing.T) {
	overloaded := genai.APIError{Code: 503, Message: "The model is overloaded", Status: "UNAVAILABLE"}
	h := newHarness(t, step{err: overloaded})

	_, err := h.client.Analyze(context.Background(), photo(), "Aurora Lamp", "")
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Equal(t, 4, h.gen.callCount())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, h.sleeps)
}

func TestAnalyze_ResponseFailuresAreValidation(t *testing.T) {
	tests := map[string]*genai.GenerateContentResponse{
		"no text":     {},
		"not json":    textResp("I'm sorry, I can't help with that."),
		"bad shape":   textResp(`{"product_analysis": {"name": "x"}}`),
		"zero routes": textResp(`{"product_analysis": {"name": "Lamp", "visual_description": "glass dome", "key_features": "dimmable"}, "marketing_routes": []}`),
	}
	for name, resp := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, step{resp: resp})
			_, err := h.client.Analyze(context.Background(), photo(), "Lamp", "")
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.True(t, strings.HasPrefix(err.Error(), "analysis failed"), err.Error())
			assert.Equal(t, 1, h.gen.callCount(), "validation failures are not retried")
		})
	}
}

func TestAnalyze_ValidationCarriesIssues(t *testing.T) {
	h := newHarness(t, step{resp: textResp(`{}`)})
	_, err := h.client.Analyze(context.Background(), photo(), "Lamp", "")

	var ge *Error
	require.True(t, errors.As(err, &ge))
	var paths []string
	for _, is := range ge.Issues {
		paths = append(paths, is.Path)
	}
	assert.Contains(t, paths, "marketing_routes")
}

func TestAnalyze_InputLimits(t *testing.T) {
	tests := []struct {
		name    string
		img     marketing.ImageInput
		product string
		brand   string
	}{
		{"long name", photo(), strings.Repeat("n", MaxProductNameChars+1), ""},
		{"long brand", photo(), "Lamp", strings.Repeat("b", MaxBrandContextChars+1)},
		{"empty photo", marketing.ImageInput{MIMEType: "image/png"}, "Lamp", ""},
		{"not an image", marketing.ImageInput{Data: []byte("x"), MIMEType: "text/plain"}, "Lamp", ""},
		{"too big", marketing.ImageInput{Data: make([]byte, 10<<20+1), MIMEType: "image/png"}, "Lamp", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, step{resp: textResp(strategyText(1, 1))})
			_, err := h.client.Analyze(context.Background(), tt.img, tt.product, tt.brand)
			assert.Equal(t, KindInputLimit, KindOf(err))
			assert.Zero(t, h.gen.callCount())
			assert.Empty(t, h.keys)
		})
	}
}

func TestAnalyze_CharacterCapCountsRunes(t *testing.T) {
	h := newHarness(t, step{resp: textResp(strategyText(1, 1))})
	_, err := h.client.Analyze(context.Background(), photo(), strings.Repeat("燈", MaxProductNameChars), "")
	require.NoError(t, err)
}

func TestMissingKeyFailsBeforeNetwork(t *testing.T) {
	gen := &fakeGen{steps: []step{{resp: textResp("{}")}}}
	c := New(Options{
		Backend: func(context.Context, string) (ContentGenerator, error) { return gen, nil },
	})

	_, err := c.Render(context.Background(), marketing.RenderRequest{Prompt: "poster"})
	assert.Equal(t, KindAuth, KindOf(err))
	assert.True(t, errors.Is(err, auth.ErrNoAPIKey))
	assert.True(t, errors.Is(err, &Error{Kind: KindAuth}))
	assert.Zero(t, gen.callCount())
}

func TestWithCredentials_SessionKeyWins(t *testing.T) {
	h := newHarness(t, step{resp: imageResp([]byte("png"), "image/png")})
	c := h.client.WithCredentials(auth.Static("session-key"))

	_, err := c.Render(context.Background(), marketing.RenderRequest{Prompt: "poster"})
	require.NoError(t, err)
	assert.Equal(t, []string{"session-key"}, h.keys)
}

func TestPlan_Valid(t *testing.T) {
	h := newHarness(t, step{resp: textResp(planText(8))})

	plan, err := h.client.Plan(context.Background(),
		marketing.MarketingRoute{RouteName: "Quiet Luxury", Headline: "Glow softly", StyleBrief: "muted"},
		marketing.ProductAnalysis{Name: "Aurora Lamp", KeyFeatures: "cordless"},
		"")
	require.NoError(t, err)
	assert.Len(t, plan.Items, 8)

	call := h.gen.calls[0]
	require.NotNil(t, call.cfg.ThinkingConfig)
	assert.Equal(t, PlanThinkingBudget, *call.cfg.ThinkingConfig.ThinkingBudget)
	assert.Contains(t, call.contents[0].Parts[0].Text, "Quiet Luxury")
}

func TestPlan_WrongItemCountIsNotRepaired(t *testing.T) {
	h := newHarness(t, step{resp: textResp(planText(7))})
	_, err := h.client.Plan(context.Background(), marketing.MarketingRoute{}, marketing.ProductAnalysis{}, "")

	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, strings.HasPrefix(err.Error(), "planning failed"))
	assert.Equal(t, 1, h.gen.callCount())
}

func TestPlan_ReferenceCopyCap(t *testing.T) {
	h := newHarness(t, step{resp: textResp(planText(8))})
	_, err := h.client.Plan(context.Background(), marketing.MarketingRoute{}, marketing.ProductAnalysis{},
		strings.Repeat("r", MaxReferenceCopyChars+1))
	assert.Equal(t, KindInputLimit, KindOf(err))
}

func TestPlan_SchemaToggle(t *testing.T) {
	h := newHarness(t, step{resp: textResp(planText(8))})
	h.client.opts.ResponseSchema = false
	_, err := h.client.Plan(context.Background(), marketing.MarketingRoute{}, marketing.ProductAnalysis{}, "")
	require.NoError(t, err)
	assert.Nil(t, h.gen.calls[0].cfg.ResponseJsonSchema)
}
