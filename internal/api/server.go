package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/mailjob/internal/eventbus"
	"github.com/shaharia-lab/mailjob/internal/mailjob"
	"github.com/shaharia-lab/mailjob/internal/storage"
)

const errInvalidJSONBody = "invalid JSON body"

// Publisher puts events on the broker.
type Publisher interface {
	Publish(ctx context.Context, topic, msgType string, body []byte) (eventbus.Message, error)
}

// JobStatus reports the mail job's lifecycle.
type JobStatus interface {
	State() mailjob.State
	Topic() string
	InFlight() int
}

// Server holds all dependencies for the REST API handlers.
type Server struct {
	publisher Publisher
	store     storage.DispatchLogStore
	job       JobStatus
	logger    *slog.Logger
}

// New creates a new API Server.
func New(publisher Publisher, store storage.DispatchLogStore, job JobStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		publisher: publisher,
		store:     store,
		job:       job,
		logger:    logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/topics/{topic}/events", s.handlePublishEvent)
	r.Get("/dispatches", s.handleListDispatches)
	r.Get("/job", s.handleJobStatus)
	r.Get("/version", s.handleVersion)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
