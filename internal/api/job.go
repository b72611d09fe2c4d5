package api

import "net/http"

func (s *Server) handleJobStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"topic":     s.job.Topic(),
		"state":     s.job.State().String(),
		"in_flight": s.job.InFlight(),
	})
}
