package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	snap := s.stats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":    snap.Provider,
		"stats":       snap,
		"active_runs": s.runs.ActiveRuns(),
	})
}
