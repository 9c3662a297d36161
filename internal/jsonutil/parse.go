// Package jsonutil extracts JSON from model responses that may be wrapped in
// markdown code fences or surrounded by prose.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/ai-marketing-designer/internal/errtext"
)

// ErrNoJSON is returned when the text holds no object or array.
var ErrNoJSON = errors.New("no JSON content found")

// StripMarkdownFences removes a ```json ... ``` (or bare ```) wrapping from
// text. Fences on the same line as the payload are handled too. Text without
// an opening fence is returned trimmed but otherwise unchanged.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	// language tag, e.g. ```json
	if nl := strings.IndexAny(body, "\n{["); nl >= 0 && !strings.ContainsAny(body[:nl], " \t") {
		body = body[nl:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ExtractJSON returns the JSON object or array in text, from the first { or [
// to the last matching closing delimiter.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	objIdx := strings.Index(text, "{")
	arrIdx := strings.Index(text, "[")
	if objIdx == -1 && arrIdx == -1 {
		return "", ErrNoJSON
	}

	start, endChar := objIdx, "}"
	if objIdx == -1 || (arrIdx != -1 && arrIdx < objIdx) {
		start, endChar = arrIdx, "]"
	}

	text = text[start:]
	end := strings.LastIndex(text, endChar)
	if end == -1 {
		return "", fmt.Errorf("no closing %s found", endChar)
	}
	return text[:end+1], nil
}

// Decode strips fences, extracts the JSON payload and decodes it into plain
// Go values (map[string]any, []any, float64, ...), ready for schema checks.
func Decode(raw string) (any, error) {
	return ParseJSON[any](raw)
}

// ParseJSON is Decode into a concrete type.
func ParseJSON[T any](raw string) (T, error) {
	var zero T
	jsonStr, err := ExtractJSON(StripMarkdownFences(raw))
	if err != nil {
		return zero, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, errtext.Truncate(jsonStr, 200))
	}
	return result, nil
}
