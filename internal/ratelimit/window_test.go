package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAvailableCapacity(t *testing.T) {
	l := NewLimiter(5, time.Minute)
	assert.Equal(t, 5, l.AvailableCapacity())

	l.Record(3)
	assert.Equal(t, 2, l.AvailableCapacity())
}

func TestLimiterAcquireBlocksUntilCapacity(t *testing.T) {
	l := NewLimiter(2, 50*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, 2))
	assert.Equal(t, 0, l.AvailableCapacity())

	start := time.Now()
	require.NoError(t, l.Acquire(ctx, 1))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestLimiterAcquireRespectsContextCancellation(t *testing.T) {
	l := NewLimiter(1, time.Hour)
	require.NoError(t, l.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterPrunesOldEntries(t *testing.T) {
	l := NewLimiter(3, 30*time.Millisecond)
	l.Record(3)
	assert.Equal(t, 0, l.AvailableCapacity())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 3, l.AvailableCapacity())
}
