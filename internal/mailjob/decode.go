package mailjob

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/shaharia-lab/mailjob/internal/eventbus"
)

// ErrMalformedMessage reports a delivery that cannot be turned into an Event.
var ErrMalformedMessage = errors.New("malformed message")

// Event is a decoded delivery.
type Event struct {
	Type    string
	Payload map[string]any
}

// Decode turns a broker message into an Event. The routing key is the event
// type and the body must be a JSON object.
func Decode(msg eventbus.Message) (Event, error) {
	if msg.Type == "" {
		return Event{}, errors.Wrap(ErrMalformedMessage, "empty event type")
	}
	body := bytes.TrimSpace(msg.Body)
	if len(body) == 0 || body[0] != '{' {
		return Event{}, errors.Wrap(ErrMalformedMessage, "body is not a JSON object")
	}

	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return Event{}, errors.Mark(errors.Wrap(err, "decoding body"), ErrMalformedMessage)
	}
	if dec.More() {
		return Event{}, errors.Wrap(ErrMalformedMessage, "trailing data after JSON object")
	}
	return Event{Type: msg.Type, Payload: payload}, nil
}
