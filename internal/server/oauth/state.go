package oauth

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// StateStore keeps the CSRF states handed out by LoginURL.
type StateStore interface {
	Put(ctx context.Context, state string) error
	// Consume reports whether state was issued and not yet used, and
	// forgets it.
	Consume(ctx context.Context, state string) bool
}

// MemoryStateStore keeps states in process memory with a TTL.
type MemoryStateStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	return &MemoryStateStore{cache: cache.New(ttl, 2*ttl)}
}

func (s *MemoryStateStore) Put(_ context.Context, state string) error {
	s.cache.SetDefault(state, struct{}{})
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache.Get(state); !ok {
		return false
	}
	s.cache.Delete(state)
	return true
}

// RedisStateStore shares states between instances. Consume uses GETDEL so a
// state can be redeemed once across the fleet.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStateStore(client redis.UniversalClient, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: "oauth:state:", ttl: ttl}
}

func (s *RedisStateStore) Put(ctx context.Context, state string) error {
	return s.client.Set(ctx, s.prefix+state, 1, s.ttl).Err()
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) bool {
	n, err := s.client.GetDel(ctx, s.prefix+state).Result()
	return err == nil && n != ""
}
