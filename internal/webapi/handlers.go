package webapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-marketing-designer/internal/export"
	"github.com/fpang/ai-marketing-designer/internal/imageprep"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/naming"
	"github.com/fpang/ai-marketing-designer/internal/report"
	"github.com/fpang/ai-marketing-designer/internal/session"
)

// --- Health & sessions ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.name,
	})
}

// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Create()
	respondJSON(w, http.StatusCreated, sess.Snapshot())
}

// GET /api/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	respondJSON(w, http.StatusOK, st.Session().Snapshot())
}

// DELETE /api/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(r.PathValue("id")) {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/sessions/{id}/key
// The key is held in memory for the session only and never logged.
func (s *Server) handlePutKey(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st.Session().SetAPIKey(strings.TrimSpace(req.APIKey))
	respondJSON(w, http.StatusOK, map[string]bool{"hasApiKey": st.Session().HasAPIKey()})
}

// PUT /api/sessions/{id}/reference (multipart: photo)
func (s *Server) handlePutReference(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	img, ok := readPhoto(w, r)
	if !ok {
		return
	}
	st.Session().SetReferenceImage(imageprep.EncodeDataURL(img.Data, img.MIMEType))
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/sessions/{id}/reference
func (s *Server) handleDeleteReference(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	st.Session().SetReferenceImage("")
	w.WriteHeader(http.StatusNoContent)
}

// --- Phase 1 ---

// POST /api/sessions/{id}/analyze (multipart: photo, productName, brandContext)
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	img, ok := readPhoto(w, r)
	if !ok {
		return
	}
	st.Session().SetUpload(img, r.FormValue("productName"), r.FormValue("brandContext"))

	out, err := st.Analyze(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// POST /api/sessions/{id}/route
func (s *Server) handleSelectRoute(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Index == nil {
		httpError(w, http.StatusBadRequest, "index is required")
		return
	}
	if err := st.Session().SelectRoute(*req.Index); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st.Session().Snapshot())
}

// POST /api/sessions/{id}/concepts/{n}/render
func (s *Server) handleRenderConcept(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid concept index")
		return
	}
	var req struct {
		AspectRatio    marketing.AspectRatio `json:"aspectRatio"`
		ReferenceImage string                `json:"referenceImage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	img, err := st.RenderConcept(r.Context(), n, req.AspectRatio, req.ReferenceImage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"image": img})
}

// --- Phase 2 ---

// POST /api/sessions/{id}/plan
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	var req struct {
		ReferenceCopy *string `json:"referenceCopy"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReferenceCopy != nil {
		st.Session().SetReferenceCopy(*req.ReferenceCopy)
	}

	plan, err := st.GeneratePlan(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// PATCH /api/sessions/{id}/items/{itemId}
func (s *Server) handlePatchItem(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	var patch marketing.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: only title, copy, visual_prompt and visual_summary are editable")
		return
	}
	item, err := st.Session().UpdateItem(r.PathValue("itemId"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

type renderResponse struct {
	ID       string `json:"id"`
	Image    string `json:"image"`
	Filename string `json:"filename"`
}

// POST /api/sessions/{id}/items/{itemId}/render
func (s *Server) handleRenderItem(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	id := r.PathValue("itemId")
	img, err := st.RenderItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, renderResponse{ID: id, Image: img, Filename: filenameFor(st.Session(), id)})
}

type itemResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// POST /api/sessions/{id}/render-all
// Per-item failures are reported in the body; the request itself succeeds.
func (s *Server) handleRenderAll(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	var req struct {
		Force bool `json:"force"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := st.RenderAll(r.Context(), req.Force)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make(map[string]itemResult, len(results))
	for id, e := range results {
		if e == nil {
			out[id] = itemResult{OK: true}
			continue
		}
		_, kind := StatusFor(e)
		out[id] = itemResult{Error: e.Error(), Kind: kind}
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": out})
}

// DELETE /api/sessions/{id}/images
func (s *Server) handleClearImages(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	st.Session().ClearImages()
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/sessions/{id}/images/{itemId}
func (s *Server) handleClearImage(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	if err := st.Session().ClearImage(r.PathValue("itemId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/sessions/{id}/images/{itemId}
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	id := r.PathValue("itemId")
	dataURL, ok := st.Session().Image(id)
	if !ok {
		httpError(w, http.StatusNotFound, "image not rendered")
		return
	}
	data, mimeType, err := export.SingleImage(dataURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDownload(w, mimeType, filenameFor(st.Session(), id), data)
}

// --- Exports ---

// GET /api/sessions/{id}/export/archive?name=...
func (s *Server) handleExportArchive(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = st.Session().Snapshot().ProductName
	}
	arc, err := st.ExportArchive(name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDownload(w, "application/zip", arc.Filename, arc.Data)
}

// GET /api/sessions/{id}/export/report
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request, st *session.Studio) {
	text, err := st.ExportReport()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDownload(w, "text/plain; charset=utf-8", report.Filename, []byte(text))
}

// --- helpers ---

// readPhoto parses the multipart "photo" field and prepares it for upload.
// It writes the error response itself and reports false on failure.
func readPhoto(w http.ResponseWriter, r *http.Request) (marketing.ImageInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("photo must be at most %d MiB", imageprep.MaxBytes>>20))
			return marketing.ImageInput{}, false
		}
		httpError(w, http.StatusBadRequest, "expected multipart form with a photo field")
		return marketing.ImageInput{}, false
	}

	f, hdr, err := r.FormFile("photo")
	if err != nil {
		httpError(w, http.StatusBadRequest, "photo is required")
		return marketing.ImageInput{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read photo")
		return marketing.ImageInput{}, false
	}

	img, err := imageprep.Prepare(data)
	if err != nil {
		writeError(w, r, err)
		return marketing.ImageInput{}, false
	}
	log.Debug().
		Str("filename", hdr.Filename).
		Int("uploadBytes", len(data)).
		Int("preparedBytes", len(img.Data)).
		Str("mime", img.MIMEType).
		Msg("Photo received")
	return img, true
}

func filenameFor(sess *session.Session, id string) string {
	plan, err := sess.Plan()
	if err != nil {
		return id + naming.Ext
	}
	if name, ok := naming.FilenameMap(plan.Items)[id]; ok {
		return name
	}
	return id + naming.Ext
}

func writeDownload(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Failed to write download")
	}
}
