package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/mailjob/internal/dispatch"
)

// MockDispatcher is a mock implementation of dispatch.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

//nolint:revive
func (m *MockDispatcher) Dispatch(ctx context.Context, eventType string, payload map[string]any) dispatch.Outcome {
	args := m.Called(ctx, eventType, payload)
	return args.Get(0).(dispatch.Outcome)
}
