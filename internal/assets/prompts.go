package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/fpang/ai-marketing-designer/internal/marketing"
)

// --- System instructions (opaque, overridable via config) ---

// DirectorSystemPrompt instructs the analysis model to read the product
// photo and propose marketing routes.
//
//go:embed prompts/director-system.txt
var DirectorSystemPrompt string

// PlannerSystemPrompt instructs the planning model to expand one route into
// the eight-item content plan.
//
//go:embed prompts/planner-system.txt
var PlannerSystemPrompt string

// --- Per-request templates ---

//go:embed prompts/analysis-request.txt
var analysisRequestTemplate string

//go:embed prompts/plan-request.txt
var planRequestTemplate string

var (
	analysisRequestTmpl = template.Must(template.New("analysis").Parse(analysisRequestTemplate))
	planRequestTmpl     = template.Must(template.New("plan").Parse(planRequestTemplate))
)

// AnalysisRequest is the data injected into the phase-1 user message.
type AnalysisRequest struct {
	ProductName  string
	BrandContext string
}

// PlanRequest is the data injected into the phase-2 user message.
type PlanRequest struct {
	Route         marketing.MarketingRoute
	Analysis      marketing.ProductAnalysis
	ReferenceCopy string
}

// RenderAnalysisRequest renders the user message that accompanies the
// product photo.
func RenderAnalysisRequest(req AnalysisRequest) (string, error) {
	return render(analysisRequestTmpl, req)
}

// RenderPlanRequest renders the text-only planning message.
func RenderPlanRequest(req PlanRequest) (string, error) {
	return render(planRequestTmpl, req)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
