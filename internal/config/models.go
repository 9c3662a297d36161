package config

// Gemini model IDs used by the pipeline.
//
// | Stage    | Default model               | Why                                   |
// |----------|-----------------------------|---------------------------------------|
// | analysis | gemini-2.5-flash            | multimodal, fast, JSON output         |
// | planning | gemini-2.5-flash            | JSON output with a thinking budget    |
// | image    | gemini-3-pro-image-preview  | text rendering on posters, ratios     |
const (
	ModelGemini25Flash   = "gemini-2.5-flash"
	ModelGemini3ProImage = "gemini-3-pro-image-preview"
)

// Models names the model used for each stage.
type Models struct {
	Analysis string `yaml:"analysis"`
	Planning string `yaml:"planning"`
	Image    string `yaml:"image"`
}

// DefaultModels returns the built-in model choice.
func DefaultModels() Models {
	return Models{
		Analysis: ModelGemini25Flash,
		Planning: ModelGemini25Flash,
		Image:    ModelGemini3ProImage,
	}
}
