package dispatch

import (
	"fmt"
	"time"
)

// Kind classifies a failed dispatch. The zero value means success.
type Kind string

const (
	KindTemplateNotFound Kind = "template_not_found"
	KindRender           Kind = "render_error"
	KindMalformedMessage Kind = "malformed_message"
	KindAuthentication   Kind = "authentication_failure"
	KindResourceNotFound Kind = "resource_not_found"
	KindTransient        Kind = "transient_transport_failure"
	KindUnknown          Kind = "unknown_failure"
)

// Retryable reports whether a caller may retry a dispatch that failed with k
// without changing configuration or input.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// Failure is the error carried by a failed Outcome.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Outcome is the result of one dispatch attempt.
type Outcome struct {
	DispatchID string
	EventType  string
	Recipient  string
	Transport  string
	StartedAt  time.Time
	Duration   time.Duration
	// Err is nil on success.
	Err *Failure
}

// Success reports whether the dispatch delivered its message.
func (o Outcome) Success() bool { return o.Err == nil }

// Kind returns the failure kind, or "" on success.
func (o Outcome) Kind() Kind {
	if o.Err == nil {
		return ""
	}
	return o.Err.Kind
}

// Retryable reports whether the failure is worth retrying.
func (o Outcome) Retryable() bool {
	return o.Err != nil && o.Err.Kind.Retryable()
}

// Error returns the failure as an error value, or nil on success.
func (o Outcome) Error() error {
	if o.Err == nil {
		return nil
	}
	return o.Err
}
