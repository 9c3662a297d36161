// Package marketing defines the data model shared by the generation pipeline:
// the phase-1 strategy output, the phase-2 content plan, and the render request.
package marketing

// ProductAnalysis is the product read-out produced by the analysis phase.
type ProductAnalysis struct {
	Name              string `json:"name" validate:"min=1" jsonschema:"minLength=1"`
	VisualDescription string `json:"visual_description" validate:"min=5" jsonschema:"minLength=5"`
	KeyFeatures       string `json:"key_features" validate:"min=5" jsonschema:"minLength=5"`
}

// PromptData is one concept-poster prompt with its short human summary.
type PromptData struct {
	PromptText string `json:"prompt_text" validate:"min=20" jsonschema:"minLength=20"`
	Summary    string `json:"summary"`
}

// MarketingRoute is one visual strategy proposed by the analysis phase.
type MarketingRoute struct {
	RouteName      string       `json:"route_name" validate:"min=1,max=50" jsonschema:"minLength=1,maxLength=50"`
	Headline       string       `json:"headline" validate:"min=1,max=100" jsonschema:"minLength=1,maxLength=100"`
	Subhead        string       `json:"subhead" validate:"min=1,max=200" jsonschema:"minLength=1,maxLength=200"`
	StyleBrief     string       `json:"style_brief" validate:"min=5" jsonschema:"minLength=5"`
	TargetAudience string       `json:"target_audience,omitempty"`
	VisualElements string       `json:"visual_elements,omitempty"`
	ImagePrompts   []PromptData `json:"image_prompts" validate:"required,min=1,max=10,dive" jsonschema:"minItems=1,maxItems=10"`
}

// DirectorOutput is the complete phase-1 result.
type DirectorOutput struct {
	ProductAnalysis ProductAnalysis  `json:"product_analysis"`
	MarketingRoutes []MarketingRoute `json:"marketing_routes" validate:"required,min=1,max=10,dive" jsonschema:"minItems=1,maxItems=10"`
}

// Route returns the route at index i, or false when i is out of range.
func (d *DirectorOutput) Route(i int) (MarketingRoute, bool) {
	if d == nil || i < 0 || i >= len(d.MarketingRoutes) {
		return MarketingRoute{}, false
	}
	return d.MarketingRoutes[i], true
}

// ItemType is the layout slot of a content item.
type ItemType string

const (
	ItemMainWhite     ItemType = "main_white"
	ItemMainLifestyle ItemType = "main_lifestyle"
	ItemStorySlide    ItemType = "story_slide"
)

// Ratio is the aspect ratio a content item is planned for.
type Ratio string

const (
	RatioSquare    Ratio = "1:1"
	RatioPortrait  Ratio = "9:16"
	RatioLandscape Ratio = "16:9"
)

// AspectRatio is the aspect ratio requested from the image backend. It is a
// superset of Ratio.
type AspectRatio string

const (
	Aspect1x1  AspectRatio = "1:1"
	Aspect9x16 AspectRatio = "9:16"
	Aspect3x4  AspectRatio = "3:4"
	Aspect4x3  AspectRatio = "4:3"
	Aspect16x9 AspectRatio = "16:9"
)

// DefaultAspectRatio is used when a render request names no ratio.
const DefaultAspectRatio = Aspect3x4

// Valid reports whether a is one of the ratios the image backend accepts.
func (a AspectRatio) Valid() bool {
	switch a {
	case Aspect1x1, Aspect9x16, Aspect3x4, Aspect4x3, Aspect16x9:
		return true
	}
	return false
}

// ContentItem is one of the eight assets of a content plan. ID, Type and
// Ratio are identity and never change after generation; the text fields are
// user-editable.
type ContentItem struct {
	ID            string   `json:"id" validate:"content_item_id" jsonschema:"pattern=^img_[0-9]+_(white|lifestyle|hook|problem|solution|features|trust|cta)$"`
	Type          ItemType `json:"type" validate:"oneof=main_white main_lifestyle story_slide" jsonschema:"enum=main_white,enum=main_lifestyle,enum=story_slide"`
	Ratio         Ratio    `json:"ratio" validate:"oneof=1:1 9:16 16:9" jsonschema:"enum=1:1,enum=9:16,enum=16:9"`
	Title         string   `json:"title" validate:"min=5,max=30" jsonschema:"minLength=5,maxLength=30"`
	Copy          string   `json:"copy" validate:"min=20,max=100" jsonschema:"minLength=20,maxLength=100"`
	VisualPrompt  string   `json:"visual_prompt" validate:"min=50,max=500" jsonschema:"minLength=50,maxLength=500"`
	VisualSummary string   `json:"visual_summary" validate:"min=10,max=50" jsonschema:"minLength=10,maxLength=50"`
}

// ContentPlanSize is the fixed number of items in a content plan: two square
// main visuals followed by six story slides.
const ContentPlanSize = 8

// ContentPlan is the phase-2 result.
type ContentPlan struct {
	PlanName string        `json:"plan_name" validate:"min=10,max=50" jsonschema:"minLength=10,maxLength=50"`
	Items    []ContentItem `json:"items" validate:"len=8,dive" jsonschema:"minItems=8,maxItems=8"`
}

// Item returns the item with the given id.
func (p *ContentPlan) Item(id string) (ContentItem, bool) {
	if p == nil {
		return ContentItem{}, false
	}
	for _, it := range p.Items {
		if it.ID == id {
			return it, true
		}
	}
	return ContentItem{}, false
}

// ItemPatch carries user edits to a content item. Nil fields are left alone.
type ItemPatch struct {
	Title         *string `json:"title,omitempty"`
	Copy          *string `json:"copy,omitempty"`
	VisualPrompt  *string `json:"visual_prompt,omitempty"`
	VisualSummary *string `json:"visual_summary,omitempty"`
}

// Apply returns a copy of item with the patch's non-nil fields applied.
func (p ItemPatch) Apply(item ContentItem) ContentItem {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Copy != nil {
		item.Copy = *p.Copy
	}
	if p.VisualPrompt != nil {
		item.VisualPrompt = *p.VisualPrompt
	}
	if p.VisualSummary != nil {
		item.VisualSummary = *p.VisualSummary
	}
	return item
}

// ImageInput is a user-supplied photo.
type ImageInput struct {
	Data     []byte
	MIMEType string
}

// RenderRequest is the ephemeral input to a single image render.
type RenderRequest struct {
	Prompt         string
	AspectRatio    AspectRatio
	ReferenceImage string // optional data URL
}
