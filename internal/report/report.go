// Package report compiles the plain-text strategy report offered as a
// download next to the asset archive.
package report

import (
	"fmt"
	"strings"

	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/naming"
)

// Filename is the suggested download name of the report.
const Filename = "marketing-report.txt"

const rule = "========================================"

// CompileReport renders the analysis, the selected route with its concept
// prompts, and the content plan as labeled text sections. editedItems
// carries the user's current item text; when nil the plan's own items are
// used. The output is a pure function of its inputs.
func CompileReport(analysis marketing.ProductAnalysis, routes []marketing.MarketingRoute, selectedIndex int, plan *marketing.ContentPlan, editedItems []marketing.ContentItem) string {
	var b strings.Builder

	b.WriteString("MARKETING STRATEGY REPORT\n")
	b.WriteString(rule + "\n\n")

	section(&b, "PRODUCT ANALYSIS")
	field(&b, "Name", analysis.Name)
	field(&b, "Visual description", analysis.VisualDescription)
	field(&b, "Key features", analysis.KeyFeatures)
	b.WriteString("\n")

	section(&b, "SELECTED STRATEGY")
	if selectedIndex < 0 || selectedIndex >= len(routes) {
		b.WriteString("(no route selected)\n\n")
	} else {
		r := routes[selectedIndex]
		fmt.Fprintf(&b, "Route %d of %d\n", selectedIndex+1, len(routes))
		field(&b, "Route name", r.RouteName)
		field(&b, "Headline", r.Headline)
		field(&b, "Subhead", r.Subhead)
		field(&b, "Style brief", r.StyleBrief)
		if r.TargetAudience != "" {
			field(&b, "Target audience", r.TargetAudience)
		}
		if r.VisualElements != "" {
			field(&b, "Visual elements", r.VisualElements)
		}
		b.WriteString("\n")

		section(&b, "CONCEPT PROMPTS")
		for i, p := range r.ImagePrompts {
			if p.Summary != "" {
				fmt.Fprintf(&b, "Prompt %d: %s\n", i+1, p.Summary)
			} else {
				fmt.Fprintf(&b, "Prompt %d\n", i+1)
			}
			fmt.Fprintf(&b, "  %s\n", p.PromptText)
		}
		b.WriteString("\n")
	}

	section(&b, "CONTENT PLAN")
	if plan == nil {
		b.WriteString("(no content plan)\n")
		return b.String()
	}
	field(&b, "Plan name", plan.PlanName)
	b.WriteString("\n")

	items := editedItems
	if items == nil {
		items = plan.Items
	}
	names := naming.Filenames(items)
	for i, it := range items {
		fmt.Fprintf(&b, "--- %02d. %s ---\n", i+1, names[i])
		field(&b, "ID", it.ID)
		field(&b, "Type", string(it.Type))
		field(&b, "Ratio", string(it.Ratio))
		field(&b, "Title", it.Title)
		field(&b, "Copy", it.Copy)
		field(&b, "Visual prompt", it.VisualPrompt)
		field(&b, "Visual summary", it.VisualSummary)
		b.WriteString("\n")
	}

	return b.String()
}

func section(b *strings.Builder, name string) {
	fmt.Fprintf(b, "[%s]\n", name)
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
