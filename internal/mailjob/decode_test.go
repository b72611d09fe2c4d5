package mailjob_test

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mailjob/internal/eventbus"
	"github.com/shaharia-lab/mailjob/internal/mailjob"
)

func TestDecode(t *testing.T) {
	evt, err := mailjob.Decode(eventbus.Message{
		Type: "user.register",
		Body: []byte(` {"email":"a@example.com","age":42,"tags":["x"]} `),
	})
	require.NoError(t, err)
	assert.Equal(t, "user.register", evt.Type)
	assert.Equal(t, "a@example.com", evt.Payload["email"])
	assert.Equal(t, json.Number("42"), evt.Payload["age"])
	assert.Equal(t, []any{"x"}, evt.Payload["tags"])
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
		body    string
	}{
		{"empty type", "", `{}`},
		{"empty body", "user.register", ``},
		{"array", "user.register", `[1,2]`},
		{"string", "user.register", `"a@example.com"`},
		{"truncated", "user.register", `{"email":`},
		{"trailing data", "user.register", `{"email":"a"} {"email":"b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mailjob.Decode(eventbus.Message{Type: tt.msgType, Body: []byte(tt.body)})
			require.Error(t, err)
			assert.True(t, errors.Is(err, mailjob.ErrMalformedMessage))
		})
	}
}
