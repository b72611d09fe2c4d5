package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/mailjob/internal/eventbus"
)

const maxEventBodyBytes = 1 << 20

type publishEventRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type publishEventResponse struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

// handlePublishEvent publishes {"type","payload"} on the named topic. The
// type becomes the routing key and the payload the message body.
func (s *Server) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")

	var req publishEventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	payload := bytes.TrimSpace(req.Payload)
	if len(payload) == 0 || payload[0] != '{' {
		writeError(w, http.StatusBadRequest, "payload must be a JSON object")
		return
	}

	msg, err := s.publisher.Publish(r.Context(), topic, req.Type, payload)
	if err != nil {
		if errors.Is(err, eventbus.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "broker is closed")
			return
		}
		s.logger.Error("failed to publish event", "topic", topic, "type", req.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to publish event")
		return
	}

	writeJSON(w, http.StatusAccepted, publishEventResponse{ID: msg.ID, Topic: msg.Topic, Type: msg.Type})
}
