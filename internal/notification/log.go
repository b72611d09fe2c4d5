package notification

import (
	"context"
	"log/slog"
)

// LogTransport writes messages to a logger instead of delivering them.
// It is used for dry runs and local development.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a LogTransport writing to logger.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Name returns the transport identifier.
func (t *LogTransport) Name() string { return "log" }

// Send logs msg and never fails unless ctx is done.
func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return NewTransportError(t.Name(), err)
	}
	t.logger.InfoContext(ctx, "mail not sent (log transport)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("text_bytes", len(msg.Text)),
		slog.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}
