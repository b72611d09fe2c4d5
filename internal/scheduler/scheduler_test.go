package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mailjob/internal/storage/mocks"
)

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestPruneNow_UsesRetentionCutoff(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &mocks.MockDispatchLogStore{}
	store.On("PruneBefore", mock.Anything, now.Add(-24*time.Hour)).Return(int64(4), nil)

	s, err := New(Config{Store: store, Retention: 24 * time.Hour, Now: func() time.Time { return now }})
	require.NoError(t, err)

	n, err := s.PruneNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	store.AssertExpectations(t)
}

func TestPruneNow_StoreError(t *testing.T) {
	store := &mocks.MockDispatchLogStore{}
	boom := errors.New("disk full")
	store.On("PruneBefore", mock.Anything, mock.Anything).Return(int64(0), boom)

	s, err := New(Config{Store: store, Retention: time.Hour})
	require.NoError(t, err)

	_, err = s.PruneNow(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPruneNow_RetentionDisabled(t *testing.T) {
	store := &mocks.MockDispatchLogStore{}
	s, err := New(Config{Store: store})
	require.NoError(t, err)

	n, err := s.PruneNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	store.AssertNotCalled(t, "PruneBefore", mock.Anything, mock.Anything)
}

func TestStop_NotStarted(t *testing.T) {
	s, err := New(Config{Store: &mocks.MockDispatchLogStore{}})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop())
}

func TestStart_RunsImmediately(t *testing.T) {
	store := &mocks.MockDispatchLogStore{}
	ran := make(chan struct{}, 1)
	store.On("PruneBefore", mock.Anything, mock.Anything).Return(int64(0), nil).
		Run(func(mock.Arguments) {
			select {
			case ran <- struct{}{}:
			default:
			}
		})

	s, err := New(Config{Store: store, Retention: time.Hour, Interval: time.Hour})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("prune job did not run on start")
	}
}
