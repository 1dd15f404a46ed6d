package capability

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

func fastPolicy(maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryerSucceedsAfterTransientFailures(t *testing.T) {
	r := NewRetryer(fastPolicy(3), zap.NewNop())

	var calls atomic.Int32
	err := r.Do(context.Background(), func() error {
		if calls.Add(1) < 3 {
			return types.NewError(types.ErrTransientIO, "flaky upstream")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryerStopsOnNonRetryable(t *testing.T) {
	r := NewRetryer(fastPolicy(5), zap.NewNop())

	var calls atomic.Int32
	err := r.Do(context.Background(), func() error {
		calls.Add(1)
		return types.NewError(types.ErrInvalidInput, "bad gene")
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
	assert.Equal(t, int32(1), calls.Load(), "non-retryable errors must not be retried")
}

func TestRetryerExhaustsAttempts(t *testing.T) {
	r := NewRetryer(fastPolicy(2), zap.NewNop())

	var calls atomic.Int32
	err := r.Do(context.Background(), func() error {
		calls.Add(1)
		return types.NewError(types.ErrRateLimited, "429")
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
	assert.True(t, types.IsRetryable(err))
}

func TestRetryerHonorsContextCancellation(t *testing.T) {
	r := NewRetryer(&RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := r.Do(ctx, func() error {
		calls.Add(1)
		return types.NewError(types.ErrTransientIO, "still down")
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrCancelled, types.CodeOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCalculateDelayBounds(t *testing.T) {
	r := NewRetryer(&RetryPolicy{
		MaxRetries:   10,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}, zap.NewNop())

	for attempt := 1; attempt <= 10; attempt++ {
		d := r.calculateDelay(attempt)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		// MaxDelay plus the 25% jitter margin.
		assert.LessOrEqual(t, d, 1250*time.Millisecond)
	}
}
