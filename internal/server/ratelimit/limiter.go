// Package ratelimit implements fixed-window request limiting keyed by an
// arbitrary string such as the client address.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	// ResetAt is when the current window ends.
	ResetAt    time.Time
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func newResult(limit, hits int64, resetAt, now time.Time) Result {
	res := Result{
		Allowed: hits <= limit,
		Limit:   limit,
		ResetAt: resetAt,
	}
	if rem := limit - hits; rem > 0 {
		res.Remaining = rem
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(now)
		if res.RetryAfter < time.Second {
			res.RetryAfter = time.Second
		}
	}
	return res
}

// Redis counts hits with INCR on a per-window key that expires with the
// window, so every instance shares the same budget.
type Redis struct {
	client redis.UniversalClient
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient, prefix string, max int, window time.Duration) *Redis {
	if prefix == "" {
		prefix = "rl:"
	}
	return &Redis{client: client, prefix: prefix, max: int64(max), window: window, now: time.Now}
}

func (l *Redis) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	start := now.Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), start.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if incr.Val() == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
	}
	return newResult(l.max, incr.Val(), start.Add(l.window), now), nil
}

// Memory keeps the counters in process. It is meant for a single instance
// and for development.
type Memory struct {
	mu     sync.Mutex
	hits   *cache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemory(max int, window time.Duration) *Memory {
	return &Memory{
		hits:   cache.New(window, 2*window),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	start := now.Truncate(l.window)
	k := fmt.Sprintf("%s:%d", key, start.Unix())

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.hits.Add(k, int64(1), l.window); err == nil {
		return newResult(l.max, 1, start.Add(l.window), now), nil
	}
	n, err := l.hits.IncrementInt64(k, 1)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return newResult(l.max, n, start.Add(l.window), now), nil
}
