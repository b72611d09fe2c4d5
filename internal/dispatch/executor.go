// Package dispatch turns an event into a delivered message: it resolves the
// event type's template, renders it against the payload and hands the result
// to a transport, classifying every failure.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/mailjob/internal/notification"
	"github.com/shaharia-lab/mailjob/internal/template"
)

// DefaultRecipientField is the payload field holding the destination address.
const DefaultRecipientField = "email"

const tracerName = "github.com/shaharia-lab/mailjob/internal/dispatch"

// ErrMissingRecipient reports a payload without a usable destination address.
var ErrMissingRecipient = errors.New("payload has no recipient")

// Dispatcher runs one dispatch for an event.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventType string, payload map[string]any) Outcome
}

// TemplateResolver maps an event type to template content.
type TemplateResolver interface {
	Resolve(ctx context.Context, eventType string) (*template.Content, error)
}

// Config holds the dependencies of an Executor.
type Config struct {
	Resolver  TemplateResolver
	Transport notification.Transport
	Logger    *slog.Logger
	// RecipientField defaults to DefaultRecipientField.
	RecipientField string
}

// Executor is the default Dispatcher. It keeps no per-dispatch state and is
// safe for concurrent use.
type Executor struct {
	resolver       TemplateResolver
	renderer       template.Renderer
	transport      notification.Transport
	recipientField string
	logger         *slog.Logger
	tracer         trace.Tracer
}

var _ Dispatcher = (*Executor)(nil)

// NewExecutor creates an Executor.
func NewExecutor(cfg Config) *Executor {
	field := cfg.RecipientField
	if field == "" {
		field = DefaultRecipientField
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		resolver:       cfg.Resolver,
		transport:      cfg.Transport,
		recipientField: field,
		logger:         logger.With("component", "dispatch"),
		tracer:         otel.Tracer(tracerName),
	}
}

// Dispatch resolves, renders and sends, in that order. The transport is
// invoked at most once, and only when the earlier steps succeed.
func (e *Executor) Dispatch(ctx context.Context, eventType string, payload map[string]any) Outcome {
	out := Outcome{
		DispatchID: uuid.NewString(),
		EventType:  eventType,
		Transport:  e.transport.Name(),
		StartedAt:  time.Now().UTC(),
	}

	ctx, span := e.tracer.Start(ctx, "dispatch.Dispatch", trace.WithAttributes(
		attribute.String("mailjob.event_type", eventType),
		attribute.String("mailjob.dispatch_id", out.DispatchID),
	))
	defer span.End()

	out.Err = e.run(ctx, eventType, payload, &out)
	out.Duration = time.Since(out.StartedAt)

	if out.Err != nil {
		span.SetStatus(codes.Error, out.Err.Error())
		span.SetAttributes(attribute.String("mailjob.failure_kind", string(out.Err.Kind)))
		e.logger.DebugContext(ctx, "dispatch failed",
			"dispatch_id", out.DispatchID, "event_type", eventType,
			"kind", out.Err.Kind, "error", out.Err.Err)
	}
	return out
}

func (e *Executor) run(ctx context.Context, eventType string, payload map[string]any, out *Outcome) *Failure {
	content, err := e.resolver.Resolve(ctx, eventType)
	if err != nil {
		return resolveFailure(err)
	}

	to, err := e.recipient(payload)
	if err != nil {
		return &Failure{Kind: KindRender, Err: err}
	}
	out.Recipient = to

	rendered, err := e.renderer.Render(content, payload)
	if err != nil {
		return &Failure{Kind: KindRender, Err: err}
	}

	err = e.transport.Send(ctx, notification.Message{
		To:      to,
		Subject: rendered.Subject,
		Text:    rendered.Text,
		HTML:    rendered.HTML,
	})
	if err != nil {
		return &Failure{Kind: transportKind(err), Err: err}
	}
	return nil
}

func (e *Executor) recipient(payload map[string]any) (string, error) {
	v, ok := payload[e.recipientField]
	if !ok {
		return "", errors.Wrapf(ErrMissingRecipient, "field %q missing", e.recipientField)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", errors.Wrapf(ErrMissingRecipient, "field %q is not a non-empty string", e.recipientField)
	}
	return strings.TrimSpace(s), nil
}

func resolveFailure(err error) *Failure {
	switch {
	case errors.Is(err, template.ErrTemplateNotFound):
		return &Failure{Kind: KindTemplateNotFound, Err: err}
	case errors.Is(err, template.ErrMalformedTemplate):
		return &Failure{Kind: KindRender, Err: err}
	default:
		return &Failure{Kind: KindUnknown, Err: err}
	}
}

func transportKind(err error) Kind {
	switch notification.CodeOf(err) {
	case notification.CodeAuthFailure:
		return KindAuthentication
	case notification.CodeNotFound:
		return KindResourceNotFound
	case notification.CodeTransient:
		return KindTransient
	default:
		return KindUnknown
	}
}
