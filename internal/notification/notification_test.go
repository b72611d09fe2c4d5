package notification_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mailjob/internal/notification"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want notification.ErrorCode
	}{
		{"nil", nil, ""},
		{"auth failed 535", &textproto.Error{Code: 535, Msg: "5.7.8 Authentication failed"}, notification.CodeAuthFailure},
		{"auth required 530", &textproto.Error{Code: 530, Msg: "Authentication required"}, notification.CodeAuthFailure},
		{"wrapped auth", fmt.Errorf("smtp auth: %w", &textproto.Error{Code: 535}), notification.CodeAuthFailure},
		{"mailbox unavailable 550", &textproto.Error{Code: 550, Msg: "no such user"}, notification.CodeNotFound},
		{"bad mailbox 553", &textproto.Error{Code: 553}, notification.CodeNotFound},
		{"greylisted 451", &textproto.Error{Code: 451}, notification.CodeTransient},
		{"syntax 500", &textproto.Error{Code: 500}, notification.CodeUnknown},
		{"deadline", context.DeadlineExceeded, notification.CodeTransient},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, notification.CodeTransient},
		{"other", errors.New("boom"), notification.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, notification.Classify(tt.err))
		})
	}
}

func TestTransportError(t *testing.T) {
	cause := &textproto.Error{Code: 535, Msg: "bad credentials"}
	err := notification.NewTransportError("smtp", cause)

	assert.Equal(t, notification.CodeAuthFailure, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "smtp transport: auth_failure")

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.Equal(t, notification.CodeAuthFailure, notification.CodeOf(wrapped))
	assert.Equal(t, notification.CodeUnknown, notification.CodeOf(errors.New("plain")))
}

func TestSMTPTransport_Name(t *testing.T) {
	assert.Equal(t, "smtp", notification.NewSMTPTransport(notification.SMTPConfig{}).Name())
}

func TestSMTPTransport_InvalidRecipient(t *testing.T) {
	tr := notification.NewSMTPTransport(notification.SMTPConfig{
		Host:     "localhost",
		Port:     2525,
		FromAddr: "from@example.com",
	})
	err := tr.Send(context.Background(), notification.Message{To: "not an address", Subject: "s", Text: "t"})

	var te *notification.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, notification.CodeNotFound, te.Code)
}

func TestSMTPTransport_ConnectionRefused(t *testing.T) {
	// Grab a free port and close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	tr := notification.NewSMTPTransport(notification.SMTPConfig{
		Host:     "127.0.0.1",
		Port:     port,
		FromAddr: "from@example.com",
		Timeout:  2 * time.Second,
	})
	err = tr.Send(context.Background(), notification.Message{To: "to@example.com", Subject: "s", Text: "t"})

	var te *notification.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "smtp", te.Transport)
	assert.NotEqual(t, notification.CodeAuthFailure, te.Code)
}

func TestLogTransport(t *testing.T) {
	var buf bytes.Buffer
	tr := notification.NewLogTransport(slog.New(slog.NewJSONHandler(&buf, nil)))
	assert.Equal(t, "log", tr.Name())

	err := tr.Send(context.Background(), notification.Message{To: "a@example.com", Subject: "Welcome"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"a@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"Welcome"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = tr.Send(ctx, notification.Message{To: "a@example.com"})
	var te *notification.TransportError
	require.ErrorAs(t, err, &te)
}
