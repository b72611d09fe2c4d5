package storage

import (
	"context"
	"time"
)

// Dispatch log statuses.
const (
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusMalformed = "malformed"
)

// DispatchLogEntry records a single dispatch attempt or a rejected message.
type DispatchLogEntry struct {
	ID         int64     `json:"id"`
	DispatchID string    `json:"dispatch_id"`
	MessageID  string    `json:"message_id"`
	Topic      string    `json:"topic"`
	EventType  string    `json:"event_type"`
	Recipient  string    `json:"recipient"`
	Transport  string    `json:"transport"`
	Status     string    `json:"status"`
	Kind       string    `json:"kind,omitempty"`
	ErrorMsg   string    `json:"error_msg,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListFilter narrows ListDispatches.
type ListFilter struct {
	EventType string
	Status    string
	// Limit defaults to 50 when <= 0.
	Limit int
}

// DispatchLogStore persists dispatch outcomes.
type DispatchLogStore interface {
	// LogDispatch records one entry.
	LogDispatch(ctx context.Context, entry DispatchLogEntry) error
	// ListDispatches returns the most recent entries matching filter, newest first.
	ListDispatches(ctx context.Context, filter ListFilter) ([]DispatchLogEntry, error)
	// PruneBefore deletes entries created before cutoff and returns how many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
