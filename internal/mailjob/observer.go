package mailjob

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaharia-lab/mailjob/internal/dispatch"
	"github.com/shaharia-lab/mailjob/internal/eventbus"
	"github.com/shaharia-lab/mailjob/internal/storage"
)

// Observer is told about every processed delivery. Implementations must be
// safe for concurrent use and must not block for long.
type Observer interface {
	ObserveOutcome(ctx context.Context, msg eventbus.Message, out dispatch.Outcome)
	ObserveMalformed(ctx context.Context, msg eventbus.Message, err error)
}

// Observers fans out to every observer in the slice.
type Observers []Observer

func (obs Observers) ObserveOutcome(ctx context.Context, msg eventbus.Message, out dispatch.Outcome) {
	for _, o := range obs {
		o.ObserveOutcome(ctx, msg, out)
	}
}

func (obs Observers) ObserveMalformed(ctx context.Context, msg eventbus.Message, err error) {
	for _, o := range obs {
		o.ObserveMalformed(ctx, msg, err)
	}
}

// StoreObserver writes every outcome to a dispatch log store.
type StoreObserver struct {
	store  storage.DispatchLogStore
	logger *slog.Logger
}

// NewStoreObserver returns an Observer persisting to store.
func NewStoreObserver(store storage.DispatchLogStore, logger *slog.Logger) *StoreObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreObserver{store: store, logger: logger}
}

func (s *StoreObserver) ObserveOutcome(ctx context.Context, msg eventbus.Message, out dispatch.Outcome) {
	entry := storage.DispatchLogEntry{
		DispatchID: out.DispatchID,
		MessageID:  msg.ID,
		Topic:      msg.Topic,
		EventType:  out.EventType,
		Recipient:  out.Recipient,
		Transport:  out.Transport,
		Status:     storage.StatusSent,
		DurationMS: out.Duration.Milliseconds(),
		CreatedAt:  out.StartedAt,
	}
	if !out.Success() {
		entry.Status = storage.StatusFailed
		entry.Kind = string(out.Kind())
		entry.ErrorMsg = out.Err.Err.Error()
	}
	s.log(ctx, entry)
}

func (s *StoreObserver) ObserveMalformed(ctx context.Context, msg eventbus.Message, err error) {
	s.log(ctx, storage.DispatchLogEntry{
		MessageID: msg.ID,
		Topic:     msg.Topic,
		EventType: msg.Type,
		Status:    storage.StatusMalformed,
		Kind:      string(dispatch.KindMalformedMessage),
		ErrorMsg:  err.Error(),
		CreatedAt: time.Now().UTC(),
	})
}

func (s *StoreObserver) log(ctx context.Context, entry storage.DispatchLogEntry) {
	if err := s.store.LogDispatch(ctx, entry); err != nil {
		s.logger.Warn("failed to record dispatch", "message_id", entry.MessageID, "error", err)
	}
}
