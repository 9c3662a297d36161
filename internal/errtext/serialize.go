// Package errtext turns arbitrary error values into stable, displayable text.
//
// The output deliberately keeps every field an upstream SDK attached to its
// error (HTTP status, response details, ...). It is shown verbatim to the end
// user on fatal failures and parsed again by the retry classifier.
package errtext

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// Serialize renders v as text. It never panics.
//
//   - strings pass through unchanged
//   - errors become a JSON object with name, message, the exported fields of
//     the concrete error value, and the serialized cause (if wrapped)
//   - other values are JSON encoded
//
// If encoding fails (cycles, channels, funcs) the default %v formatting is
// returned instead.
func Serialize(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("%v", v)
		}
	}()

	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case error:
		data, err := json.Marshal(Fields(val))
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// Fields reconstructs an error as a plain mapping. name and message are always
// present; exported fields of the concrete value are merged in without
// overriding them.
func Fields(err error) map[string]any {
	return fields(err, 0)
}

const maxCauseDepth = 8

func fields(err error, depth int) (m map[string]any) {
	m = map[string]any{"name": typeName(err)}
	defer func() {
		if r := recover(); r != nil {
			m["message"] = fmt.Sprintf("%v", err)
		}
	}()
	m["message"] = err.Error()

	for k, val := range ownFields(err) {
		if _, taken := m[k]; !taken {
			m[k] = val
		}
	}

	if depth < maxCauseDepth {
		if cause := errors.Unwrap(err); cause != nil {
			m["cause"] = fields(cause, depth+1)
		}
	}
	return m
}

// ownFields returns the exported fields of the concrete error value, as JSON
// would see them. Values that cannot be encoded yield nothing.
func ownFields(err error) map[string]any {
	rv := reflect.ValueOf(err)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil
	}

	data, mErr := json.Marshal(err)
	if mErr != nil {
		return nil
	}
	var out map[string]any
	if json.Unmarshal(data, &out) != nil {
		return nil
	}
	return out
}

func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
