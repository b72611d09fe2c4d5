// Package notification provides the outbound transports that deliver rendered
// mail (SMTP via go-mail, or a logging dry-run transport) and the error
// classification shared by them.
package notification

import "context"

// Message is the rendered content to be delivered by a Transport.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport is the interface for delivery backends.
type Transport interface {
	// Name returns the transport identifier (e.g. "smtp").
	Name() string
	// Send delivers msg. Failures are returned as *TransportError.
	Send(ctx context.Context, msg Message) error
}
