package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docmark/internal/pages"
	"github.com/dgallion1/docmark/internal/pipeline"
)

type startRunRequest struct {
	Pages        string   `json:"pages"`
	Density      *float64 `json:"density"`
	MinThreshold *float64 `json:"min_threshold"`
}

type runResponse struct {
	RunID   string            `json:"run_id"`
	State   pipeline.RunState `json:"state"`
	Emitted int               `json:"emitted"`
	Error   string            `json:"error,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

func toRunResponse(snap pipeline.RunSnapshot) runResponse {
	return runResponse{
		RunID:   snap.ID,
		State:   snap.State,
		Emitted: snap.Emitted,
		Error:   snap.Error,
		Reason:  snap.Reason,
	}
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}

	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if q := r.URL.Query().Get("pages"); q != "" {
		req.Pages = q
	}

	filter, err := pages.Parse(req.Pages, entry.PageCount)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if t := req.MinThreshold; t != nil && (*t < 0 || *t > 1) {
		jsonError(w, "min_threshold must be between 0 and 1", http.StatusBadRequest)
		return
	}

	snap, err := s.runs.StartRun(pipeline.Request{
		Doc:          entry.Doc,
		Layout:       entry.Layout,
		Pages:        filter,
		Density:      req.Density,
		MinThreshold: req.MinThreshold,
	})
	switch {
	case errors.Is(err, pipeline.ErrMissingProfile):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, pipeline.ErrStopped):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, toRunResponse(snap))
}

func (s *Server) handlePollRun(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(snap))
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookupRun(w, r); !ok {
		return
	}
	snap, err := s.runs.Cancel(chi.URLParam(r, "runID"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusAccepted, toRunResponse(snap))
}

// lookupRun finds the run named in the URL and checks it belongs to the
// document in the URL.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (pipeline.RunSnapshot, bool) {
	snap, err := s.runs.Poll(chi.URLParam(r, "runID"))
	if err != nil || snap.DocID != chi.URLParam(r, "docID") {
		jsonError(w, "run not found", http.StatusNotFound)
		return pipeline.RunSnapshot{}, false
	}
	return snap, true
}
