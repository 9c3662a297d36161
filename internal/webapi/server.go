// Package webapi exposes the session workflow over HTTP. The same handler
// serves the local web binary and the Lambda behind API Gateway.
package webapi

import (
	"net/http"

	"github.com/fpang/ai-marketing-designer/internal/generation"
	"github.com/fpang/ai-marketing-designer/internal/session"
)

// Request body limits.
const (
	maxJSONBody = 1 << 20
	// maxUploadBody leaves room for multipart framing and form fields around
	// a maximum-size photo.
	maxUploadBody = 12 << 20
)

// Server holds the dependencies shared by every handler.
type Server struct {
	store  *session.Store
	client *generation.Client
	opts   session.StudioOptions
	name   string
}

// New creates a Server. service is reported by the health endpoint.
func New(store *session.Store, client *generation.Client, opts session.StudioOptions, service string) *Server {
	if service == "" {
		service = "ai-marketing-designer"
	}
	return &Server{store: store, client: client, opts: opts, name: service}
}

// Routes returns the API mux without middleware.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleGetSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/key", s.withSession(s.handlePutKey))
	mux.HandleFunc("PUT /api/sessions/{id}/reference", s.withSession(s.handlePutReference))
	mux.HandleFunc("DELETE /api/sessions/{id}/reference", s.withSession(s.handleDeleteReference))

	mux.HandleFunc("POST /api/sessions/{id}/analyze", s.withSession(s.handleAnalyze))
	mux.HandleFunc("POST /api/sessions/{id}/route", s.withSession(s.handleSelectRoute))
	mux.HandleFunc("POST /api/sessions/{id}/concepts/{n}/render", s.withSession(s.handleRenderConcept))
	mux.HandleFunc("POST /api/sessions/{id}/plan", s.withSession(s.handlePlan))

	mux.HandleFunc("PATCH /api/sessions/{id}/items/{itemId}", s.withSession(s.handlePatchItem))
	mux.HandleFunc("POST /api/sessions/{id}/items/{itemId}/render", s.withSession(s.handleRenderItem))
	mux.HandleFunc("POST /api/sessions/{id}/render-all", s.withSession(s.handleRenderAll))
	mux.HandleFunc("DELETE /api/sessions/{id}/images", s.withSession(s.handleClearImages))
	mux.HandleFunc("DELETE /api/sessions/{id}/images/{itemId}", s.withSession(s.handleClearImage))
	mux.HandleFunc("GET /api/sessions/{id}/images/{itemId}", s.withSession(s.handleGetImage))

	mux.HandleFunc("GET /api/sessions/{id}/export/archive", s.withSession(s.handleExportArchive))
	mux.HandleFunc("GET /api/sessions/{id}/export/report", s.withSession(s.handleExportReport))

	return mux
}

// Handler returns the API with logging and metrics middleware applied.
func (s *Server) Handler() http.Handler {
	return WithLogging(WithMetrics(s.Routes()))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, st *session.Studio)

// withSession resolves {id} to a live session and binds a Studio to it.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.store.Get(r.PathValue("id"))
		if !ok {
			httpError(w, http.StatusNotFound, "session not found")
			return
		}
		h(w, r, session.NewStudio(sess, s.client, s.opts))
	}
}
