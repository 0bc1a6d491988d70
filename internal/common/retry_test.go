package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{Attempts: 3, Backoff: Backoff{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustedIsServiceUnavailable(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), fastPolicy, func(context.Context) error {
		calls++
		return boom
	})
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrorServiceUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy, func(context.Context) error {
		calls++
		return Permanent(ErrorInvalidArgument)
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrorInvalidArgument)
	assert.NotErrorIs(t, err, ErrorServiceUnavailable)
	assert.False(t, IsPermanent(err))
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{Attempts: 5, Backoff: Backoff{InitialInterval: time.Hour, MaxInterval: time.Hour}}
	calls := 0
	err := Retry(ctx, policy, func(context.Context) error {
		calls++
		cancel()
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrorServiceUnavailable)
}

func TestRetryPolicy_BackoffDoublesUpToCap(t *testing.T) {
	p := RetryPolicy{Attempts: 6, Backoff: Backoff{InitialInterval: 100 * time.Millisecond, MaxInterval: 300 * time.Millisecond}}
	b := p.backoff()

	var got []time.Duration
	for {
		d, stop := b.Next()
		if stop {
			break
		}
		got = append(got, d)
	}
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}, got)
}

func TestRetryPolicy_SingleAttemptNeverWaits(t *testing.T) {
	_, stop := RetryPolicy{Attempts: 1}.backoff().Next()
	assert.True(t, stop)
}

func TestRetryPolicy_JitterBounds(t *testing.T) {
	p := RetryPolicy{Attempts: 2, Backoff: Backoff{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second, JitterFactor: 0.5}}
	for i := 0; i < 50; i++ {
		d, stop := p.backoff().Next()
		require.False(t, stop)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	calls := 0
	var gap time.Duration
	last := time.Now()
	err := Retry(context.Background(), fastPolicy, func(context.Context) error {
		calls++
		if calls == 2 {
			gap = time.Since(last)
			return nil
		}
		last = time.Now()
		return &RetryAfterError{Err: errors.New("slow down"), Delay: 50 * time.Millisecond}
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, gap, 50*time.Millisecond)
}
