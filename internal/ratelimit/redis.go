package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var _ Limiter = (*RedisLimiter)(nil)

// RedisLimiter implements fixed-window counters as INCR plus a conditional
// EXPIRE on the first hit. The window starts at the first request after a
// reset, matching the in-memory limiter.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLimiter constructs a limiter around the given client.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "rl:"}
}

// Allow evaluates tiers in order and stops at the first breach; tiers
// after the breach are not incremented. A Redis outage fails closed.
func (l *RedisLimiter) Allow(ctx context.Context, key string, tiers []Tier) (Decision, error) {
	for _, t := range tiers {
		k := l.prefix + t.Name + ":" + key
		count, err := l.client.Incr(ctx, k).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if count == 1 {
			if err := l.client.Expire(ctx, k, t.Window).Err(); err != nil {
				return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
		if count > int64(t.Capacity) {
			return Decision{Tier: t, RetryHint: retryHint(t)}, nil
		}
	}
	return Decision{Allowed: true}, nil
}
