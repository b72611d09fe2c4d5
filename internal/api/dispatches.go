package api

import (
	"net/http"
	"strconv"

	"github.com/shaharia-lab/mailjob/internal/storage"
)

const maxListLimit = 500

// handleListDispatches returns recent dispatch log entries.
// Accepts optional ?limit=N (default 50), ?event_type= and ?status= filters.
func (s *Server) handleListDispatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.ListFilter{
		EventType: q.Get("event_type"),
		Status:    q.Get("status"),
		Limit:     50,
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxListLimit)
	}
	switch filter.Status {
	case "", storage.StatusSent, storage.StatusFailed, storage.StatusMalformed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(filter.Status))
		return
	}

	entries, err := s.store.ListDispatches(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list dispatch log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list dispatch log")
		return
	}
	if entries == nil {
		entries = []storage.DispatchLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
