package notification

import (
	"context"
	"fmt"
	"net"
	"net/textproto"

	"github.com/cockroachdb/errors"
	"github.com/wneessen/go-mail"
)

// ErrorCode classifies a transport failure.
type ErrorCode string

const (
	// CodeAuthFailure: the server rejected the credentials.
	CodeAuthFailure ErrorCode = "auth_failure"
	// CodeNotFound: the addressed mailbox or resource does not exist.
	CodeNotFound ErrorCode = "not_found"
	// CodeTransient: network, timeout, or temporary server condition.
	CodeTransient ErrorCode = "transient"
	// CodeUnknown: anything else.
	CodeUnknown ErrorCode = "unknown"
)

// TransportError is returned by Transport.Send.
type TransportError struct {
	Transport string
	Code      ErrorCode
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %s: %v", e.Transport, e.Code, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err with the classification derived by Classify.
func NewTransportError(transport string, err error) *TransportError {
	return &TransportError{Transport: transport, Code: Classify(err), Err: err}
}

// CodeOf returns the classification carried by err, or CodeUnknown when err
// is not a *TransportError.
func CodeOf(err error) ErrorCode {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnknown
}

// Classify maps an SMTP client error to an ErrorCode using the server reply
// code when one is available.
func Classify(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return classifyReply(tpErr.Code)
	}

	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && sendErr.IsTemp() {
		return CodeTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CodeTransient
	}
	return CodeUnknown
}

func classifyReply(code int) ErrorCode {
	switch {
	case code == 530, code == 534, code == 535, code == 538:
		return CodeAuthFailure
	case code == 550, code == 551, code == 553:
		return CodeNotFound
	case code >= 400 && code < 500:
		return CodeTransient
	}
	return CodeUnknown
}
