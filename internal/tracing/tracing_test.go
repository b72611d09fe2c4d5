package tracing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mailjob/internal/tracing"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), tracing.Config{ServiceName: "mailjob"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Endpoint(t *testing.T) {
	// The gRPC exporter connects lazily, so Setup succeeds without a collector.
	shutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Endpoint:    "127.0.0.1:4317",
		ServiceName: "mailjob",
		Version:     "test",
		Insecure:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
