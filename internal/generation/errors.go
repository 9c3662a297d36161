package generation

import (
	"errors"
	"fmt"

	"github.com/fpang/ai-marketing-designer/internal/schema"
)

// Kind is the machine-usable class of a generation failure.
type Kind string

const (
	// KindAuth: no usable credential; raised before any network call.
	KindAuth Kind = "auth"
	// KindTransient: rate limit, overload or network trouble that outlasted
	// every retry.
	KindTransient Kind = "transient"
	// KindFatal: any other upstream failure. The message carries the full
	// serialized upstream error.
	KindFatal Kind = "fatal"
	// KindValidation: the response arrived but its structured payload was
	// missing, unparsable or failed schema checks.
	KindValidation Kind = "validation"
	// KindNoOutput: a well-formed response without the expected payload.
	KindNoOutput Kind = "no_output"
	// KindInputLimit: user input rejected before any network call.
	KindInputLimit Kind = "input_limit"
)

// Operation names.
const (
	OpAnalyze = "analyze"
	OpPlan    = "plan"
	OpRender  = "render"
)

// Error is the only error type returned by Client methods.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Issues is set for KindValidation failures that came from schema checks.
	Issues []schema.Issue
	Err    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: KindAuth})
// works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the Kind of err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

func newError(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}
