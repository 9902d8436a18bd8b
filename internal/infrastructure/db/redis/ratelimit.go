package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter shared by every API instance.
// Key format: ratelimit:<scope>:<client key>
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a RateLimiter wrapping the given Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit against key and reports whether it is within limit for
// the current window. When the hit is rejected, retryAfter is the time left
// until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	k := l.key(scope, key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", scope, err)
	}

	// First hit of a window, or a key that lost its expiry.
	remaining := ttl.Val()
	if remaining < 0 {
		if err := l.client.PExpire(ctx, k, window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit %s: %w", scope, err)
		}
		remaining = window
	}

	if incr.Val() <= int64(limit) {
		return true, 0, nil
	}
	return false, remaining, nil
}

// Reset clears the counter for key.
func (l *RateLimiter) Reset(ctx context.Context, scope, key string) error {
	return l.client.Del(ctx, l.key(scope, key)).Err()
}

func (l *RateLimiter) key(scope, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, key)
}
