package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/docstore"
	"github.com/dgallion1/docmark/internal/layout"
	"github.com/dgallion1/docmark/internal/parser"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	density := s.cfg.Selection.DefaultDensity
	if v := r.FormValue("density"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			jsonError(w, "density must be a number", http.StatusBadRequest)
			return
		}
		density = d
	}

	// An unreadable source is kept; runs on it complete with no highlights.
	var lay *layout.Document
	if parsed, err := parser.ParseFile(bytes.NewReader(data), filename); err != nil {
		s.log.Warn("document parse failed", "filename", filename, "error", err)
	} else {
		lay = parsed
	}

	entry := s.docs.Add(filename, data, lay)
	entry.Doc.SetProfile(strings.TrimSpace(r.FormValue("global_profile")), strings.TrimSpace(r.FormValue("document_goal")), density)
	s.log.Info("document uploaded", "doc_id", entry.Doc.ID, "filename", filename, "pages", entry.PageCount, "bytes", len(data))

	writeJSON(w, http.StatusCreated, entry.Summary())
}

func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.docs.List()})
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document":   entry.Doc.Snapshot(),
		"page_count": entry.PageCount,
		"readable":   entry.Layout != nil,
	})
}

// handleGetSource serves the uploaded bytes back so a viewer can render
// highlights over the original document.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", entry.Doc.Filename))
	http.ServeContent(w, r, entry.Doc.Filename, entry.UploadedAt, bytes.NewReader(entry.Data))
}

func (s *Server) handleDeleteDoc(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if !s.docs.Delete(docID) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if n := s.runs.DeleteForDoc(docID); n > 0 {
		s.log.Info("deleted document runs", "doc_id", docID, "runs", n)
	}
	w.WriteHeader(http.StatusNoContent)
}

type profileRequest struct {
	GlobalProfile *string  `json:"global_profile"`
	DocumentGoal  *string  `json:"document_goal"`
	Density       *float64 `json:"highlight_density_target"`
}

func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	profile, goal, density := entry.Doc.Profile()
	if req.GlobalProfile != nil {
		profile = strings.TrimSpace(*req.GlobalProfile)
	}
	if req.DocumentGoal != nil {
		goal = strings.TrimSpace(*req.DocumentGoal)
	}
	if req.Density != nil {
		density = *req.Density
	}
	entry.Doc.SetProfile(profile, goal, density)

	writeJSON(w, http.StatusOK, entry.Doc.Snapshot())
}

func (s *Server) handleListHighlights(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"highlights": entry.Doc.Highlights()})
}

type highlightRequest struct {
	PageIndex int             `json:"page_index"`
	Rects     []annotate.Rect `json:"rects"`
	Note      string          `json:"note"`
}

func (s *Server) handleAddHighlight(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}
	var req highlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Rects) == 0 {
		jsonError(w, "at least one rect is required", http.StatusBadRequest)
		return
	}
	if req.PageIndex < 0 || (entry.PageCount > 0 && req.PageIndex >= entry.PageCount) {
		jsonError(w, fmt.Sprintf("page_index %d out of range", req.PageIndex), http.StatusBadRequest)
		return
	}

	h := entry.Doc.AddManualHighlight(req.PageIndex, req.Rects, req.Note)
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleClearHighlights(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}
	entry.Doc.ClearHighlights()
	w.WriteHeader(http.StatusNoContent)
}

// entry looks up the document named in the URL, writing a 404 when absent.
func (s *Server) entry(w http.ResponseWriter, r *http.Request) (*docstore.Entry, bool) {
	entry, ok := s.docs.Get(chi.URLParam(r, "docID"))
	if !ok {
		jsonError(w, "document not found", http.StatusNotFound)
	}
	return entry, ok
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
