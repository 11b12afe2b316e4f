package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaushala-ops/gaushala/internal/shared"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore delegates counting to Redis INCR, giving exact cross-process
// counts at the cost of one round trip per request. Every call is a
// single bounded attempt; callers fall back rather than retry.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore constructs a RedisStore. timeout bounds each increment.
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{client: client, timeout: timeout}
}

// Incr implements CounterStore. The expiry is set only on the increment
// that creates the key, i.e. the first hit in a window.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now()
	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, redisKeyPrefix+key)
	ttl := pipe.PTTL(ctx, redisKeyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", shared.ErrCounterUnavailable, err)
	}

	count := int(incr.Val())
	if count == 1 || ttl.Val() < 0 {
		if err := s.client.PExpire(ctx, redisKeyPrefix+key, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("%w: %v", shared.ErrCounterUnavailable, err)
		}
		return count, now.Add(window), nil
	}
	return count, now.Add(ttl.Val()), nil
}

var _ CounterStore = (*RedisStore)(nil)
