package eventbus

import (
	"context"
	"time"
)

// Message is a single delivery on a topic. Type is the routing key the
// publisher attached (e.g. "user.register"); Body is the raw payload.
type Message struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Type      string    `json:"type"`
	Body      []byte    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	// Attempt counts deliveries of this message, starting at 1.
	Attempt int `json:"attempt"`
}

// Handler processes one delivery. Returning an error wrapping ErrRequeue puts
// the message back on its topic; any other error is logged and the message is
// considered consumed.
type Handler func(ctx context.Context, msg Message) error

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	ID() string
	Topic() string
	// Unsubscribe stops new deliveries to the handler. A delivery already
	// handed to the handler may still be running when it returns.
	Unsubscribe() error
}
