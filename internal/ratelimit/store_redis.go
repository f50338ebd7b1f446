package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a CounterStore backed by a shared Redis instance, for
// deployments where more than one gateway process serves the same callers.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a counter store over an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr implements CounterStore. INCR is atomic on the server; the expiry
// is attached only on first observation (NX) so later hits in the same
// window never push the boundary out.
func (s *RedisStore) Incr(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := s.client.ExpireNX(ctx, key, expiry).Err(); err != nil {
			return 0, fmt.Errorf("redis expire: %w", err)
		}
	}
	return count, nil
}
