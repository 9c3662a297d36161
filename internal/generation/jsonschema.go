package generation

import (
	"github.com/invopop/jsonschema"

	"github.com/fpang/ai-marketing-designer/internal/marketing"
)

// responseSchema derives an inline JSON schema for v's type, suitable for
// GenerateContentConfig.ResponseJsonSchema.
func responseSchema(v any) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(v)
	s.Version = ""
	s.ID = ""
	return s
}

var (
	strategySchema = responseSchema(&marketing.DirectorOutput{})
	planSchema     = responseSchema(&marketing.ContentPlan{})
)
