// Package schema validates the structured JSON returned by the generation
// backend and, for strategy output, repairs common shape defects first.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-marketing-designer/internal/marketing"
)

// ItemIDPattern is the shape of a content item id: img_<n>_<semantic tag>.
var ItemIDPattern = regexp.MustCompile(`^img_\d+_(white|lifestyle|hook|problem|solution|features|trust|cta)$`)

// Issue is one failed check, addressed by a dot-separated JSON path.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// ValidationError reports every issue found in a structured response.
type ValidationError struct {
	Target string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("%s failed validation:\n%s", e.Target, strings.Join(lines, "\n"))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("content_item_id", func(fl validator.FieldLevel) bool {
		return ItemIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateStrategyOutput checks phase-1 output. Counts are lenient (1 to 10
// routes, 1 to 10 prompts per route). On failure the input is passed through
// RepairStrategyOutput and checked once more; if that also fails, the issues
// of the first pass are returned.
func ValidateStrategyOutput(raw any) (*marketing.DirectorOutput, error) {
	var out marketing.DirectorOutput
	issues := check(raw, &out)
	if len(issues) == 0 {
		return &out, nil
	}

	var repaired marketing.DirectorOutput
	if len(check(RepairStrategyOutput(raw), &repaired)) == 0 {
		log.Warn().Int("issues", len(issues)).Msg("Strategy output repaired after failed validation")
		return &repaired, nil
	}
	return nil, &ValidationError{Target: "strategy output", Issues: issues}
}

// ValidateContentPlan checks phase-2 output strictly. There is no repair:
// the plan must carry exactly eight well-formed items.
func ValidateContentPlan(raw any) (*marketing.ContentPlan, error) {
	var out marketing.ContentPlan
	if issues := check(raw, &out); len(issues) > 0 {
		return nil, &ValidationError{Target: "content plan", Issues: issues}
	}
	return &out, nil
}

// check decodes raw into dst and runs the struct tag rules. Type mismatches
// surface as issues alongside rule failures.
func check(raw any, dst any) []Issue {
	if _, ok := raw.(map[string]any); !ok {
		return []Issue{{Path: "(root)", Message: fmt.Sprintf("expected object, got %s", jsonKind(raw))}}
	}

	var issues []Issue
	seen := map[string]bool{}
	add := func(is Issue) {
		if seen[is.Path] {
			return
		}
		seen[is.Path] = true
		issues = append(issues, is)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return []Issue{{Path: "(root)", Message: err.Error()}}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return []Issue{{Path: "(root)", Message: err.Error()}}
		}
		add(Issue{
			Path:    orRoot(typeErr.Field),
			Message: fmt.Sprintf("expected %s, got %s", describeType(typeErr.Type), typeErr.Value),
		})
	}

	err = validate.Struct(dst)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			add(Issue{Path: fieldPath(fe.Namespace()), Message: message(fe)})
		}
	} else if err != nil {
		add(Issue{Path: "(root)", Message: err.Error()})
	}
	return issues
}

// fieldPath turns "DirectorOutput.marketing_routes[0].headline" into
// "marketing_routes.0.headline".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	ns = strings.ReplaceAll(ns, "[", ".")
	ns = strings.ReplaceAll(ns, "]", "")
	return orRoot(ns)
}

func orRoot(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

func message(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array
	unit := "characters"
	if isList {
		unit = "items"
	}
	switch fe.Tag() {
	case "required":
		if isList {
			return "expected array, received none"
		}
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s %s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("must contain at most %s %s", fe.Param(), unit)
	case "len":
		return fmt.Sprintf("must contain exactly %s %s", fe.Param(), unit)
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "content_item_id":
		return fmt.Sprintf("must match %s", ItemIDPattern.String())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}

func describeType(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	}
	return t.Kind().String()
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}
