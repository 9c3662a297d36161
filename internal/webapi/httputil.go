package webapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-marketing-designer/internal/export"
	"github.com/fpang/ai-marketing-designer/internal/generation"
	"github.com/fpang/ai-marketing-designer/internal/imageprep"
	"github.com/fpang/ai-marketing-designer/internal/schema"
	"github.com/fpang/ai-marketing-designer/internal/session"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string         `json:"error"`
	Kind   string         `json:"kind,omitempty"`
	Issues []schema.Issue `json:"issues,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

// kindStatus maps a generation failure kind to an HTTP status.
var kindStatus = map[generation.Kind]int{
	generation.KindAuth:       http.StatusUnauthorized,
	generation.KindInputLimit: http.StatusBadRequest,
	generation.KindValidation: http.StatusBadGateway,
	generation.KindNoOutput:   http.StatusBadGateway,
	generation.KindTransient:  http.StatusServiceUnavailable,
	generation.KindFatal:      http.StatusBadGateway,
}

// StatusFor returns the HTTP status and error kind reported for err.
func StatusFor(err error) (int, string) {
	var ge *generation.Error
	if errors.As(err, &ge) {
		if status, ok := kindStatus[ge.Kind]; ok {
			return status, string(ge.Kind)
		}
		return http.StatusBadGateway, string(ge.Kind)
	}

	switch {
	case errors.Is(err, session.ErrUnknownItem):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrNoRoute), errors.Is(err, session.ErrNoConcept):
		return http.StatusBadRequest, "input_limit"
	case errors.Is(err, session.ErrNoUpload),
		errors.Is(err, session.ErrNoAnalysis),
		errors.Is(err, session.ErrNoPlan),
		errors.Is(err, session.ErrSuperseded),
		errors.Is(err, export.ErrNoImages):
		return http.StatusConflict, "precondition"
	case errors.Is(err, imageprep.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "input_limit"
	case errors.Is(err, imageprep.ErrEmpty), errors.Is(err, imageprep.ErrUnsupported):
		return http.StatusBadRequest, "input_limit"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError reports err with the status derived from its kind.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := StatusFor(err)
	body := errorBody{Error: err.Error(), Kind: kind}
	var ge *generation.Error
	if errors.As(err, &ge) {
		body.Issues = ge.Issues
	}

	ev := log.Warn()
	if status >= 500 {
		ev = log.Error()
	}
	ev.Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("kind", kind).
		Msg("Request failed")

	respondJSON(w, status, body)
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// unchanged.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
