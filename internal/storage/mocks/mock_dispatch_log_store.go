package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/mailjob/internal/storage"
)

// MockDispatchLogStore is a mock implementation of storage.DispatchLogStore.
type MockDispatchLogStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockDispatchLogStore) LogDispatch(ctx context.Context, entry storage.DispatchLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

//nolint:revive
func (m *MockDispatchLogStore) ListDispatches(ctx context.Context, filter storage.ListFilter) ([]storage.DispatchLogEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.DispatchLogEntry), args.Error(1)
}

//nolint:revive
func (m *MockDispatchLogStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
