package retry

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/fpang/ai-marketing-designer/internal/errtext"
)

// Class is the retry classification of a failure.
type Class int

const (
	// Fatal failures propagate immediately.
	Fatal Class = iota
	// Transient failures are retried with backoff.
	Transient
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "fatal"
}

// transientStatus are the HTTP statuses treated as rate limiting or overload.
var transientStatus = map[int]bool{
	429: true,
	503: true,
}

// transientMarkers are matched case-insensitively against the serialized error.
var transientMarkers = []string{
	"resource_exhausted",
	"quota",
	"too many requests",
	"overloaded",
	"fetch",
	"network",
}

// Classify decides whether err is worth retrying.
func Classify(err error) Class {
	c, _ := classify(err)
	return c
}

func classify(err error) (Class, int) {
	if err == nil {
		return Fatal, 0
	}
	status := StatusOf(err)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal, status
	}
	if transientStatus[status] {
		return Transient, status
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient, status
	}

	text := strings.ToLower(errtext.Serialize(err))
	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return Transient, status
		}
	}
	return Fatal, status
}

// StatusOf extracts a numeric status from err. Each error in the wrap chain
// is serialized and its "status", "code" and "error.code" fields are tried in
// that order; the first one that coerces to a number wins. Returns 0 when none
// does.
func StatusOf(err error) int {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if s := statusFromFields(errtext.Fields(e)); s != 0 {
			return s
		}
	}
	return 0
}

func statusFromFields(m map[string]any) int {
	candidates := []any{m["status"], m["code"]}
	if nested, ok := m["error"].(map[string]any); ok {
		candidates = append(candidates, nested["code"])
	}
	for _, c := range candidates {
		if n, ok := toNumber(c); ok {
			return n
		}
	}
	return 0
}

func toNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n == 0 || math.IsNaN(n) || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil && i != 0
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil && i != 0
	}
	return 0, false
}
