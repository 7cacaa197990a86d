package server

import (
	"net/http"

	"mazecoord/internal/analytics"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "Stats require a database connection", http.StatusServiceUnavailable)
		return
	}

	q := analytics.NewQueries(s.DB)
	stats, err := q.GetStats()
	if err != nil {
		s.Log.Error("loading stats", "error", err)
		http.Error(w, "Error loading stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
