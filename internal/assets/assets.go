// Package assets embeds the prompt material sent to the generation backend.
//
// System instructions are plain text under prompts/ and can be replaced at
// run time through config; per-request messages are text/template files
// rendered with the user's inputs.
package assets

// SystemPrompts is the pair of system instructions used by the two
// structured-generation stages.
type SystemPrompts struct {
	Director string
	Planner  string
}

// DefaultSystemPrompts returns the embedded instructions.
func DefaultSystemPrompts() SystemPrompts {
	return SystemPrompts{Director: DirectorSystemPrompt, Planner: PlannerSystemPrompt}
}

// Merge returns p with empty fields filled from the embedded defaults.
func (p SystemPrompts) Merge() SystemPrompts {
	d := DefaultSystemPrompts()
	if p.Director == "" {
		p.Director = d.Director
	}
	if p.Planner == "" {
		p.Planner = d.Planner
	}
	return p
}
