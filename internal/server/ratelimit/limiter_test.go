package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AllowsUpToLimitPerWindow(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 12, 0, 10, 0, time.UTC)
	l := NewMemory(3, time.Minute)
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(2-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Equal(t, 50*time.Second, res.RetryAfter)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 1, 0, 0, time.UTC), res.ResetAt)

	other, err := l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestMemory_NewWindowResets(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 12, 0, 59, 0, time.UTC)
	l := NewMemory(1, time.Minute)
	l.now = func() time.Time { return clock }

	res, _ := l.Allow(ctx, "k")
	require.True(t, res.Allowed)
	res, _ = l.Allow(ctx, "k")
	require.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	clock = clock.Add(2 * time.Second)
	res, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedis_UnreachableReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	_, err := NewRedis(client, "", 5, time.Minute).Allow(context.Background(), "k")
	assert.Error(t, err)
}
