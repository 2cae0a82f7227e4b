package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rate limit policies applied at the HTTP boundary. Auth endpoints get a
// tight budget and a long cool-down since they are the brute-force
// surface; the rest of the API is limited loosely.
const (
	AuthRateLimitPrefix = "rate_limit_auth"
	AuthRateLimitMax    = 10
	AuthRateLimitBlock  = 15 * time.Minute

	APIRateLimitPrefix = "rate_limit_api"
	APIRateLimitMax    = 100
	APIRateLimitBlock  = 5 * time.Minute

	RateLimitWindow = time.Minute
)

// FixedWindowLimiter counts requests per key in fixed windows on redis
// and blocks a key for a cool-down period once it overruns the window's
// budget. State lives entirely in redis, so the limit holds across
// process replicas.
type FixedWindowLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
	block  time.Duration
}

// NewFixedWindowLimiter creates a FixedWindowLimiter. The caller owns the
// client lifecycle.
func NewFixedWindowLimiter(client redis.Cmdable, prefix string, limit int64, window, block time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		block:  block,
	}
}

// Allow reports whether the key may make another request. The first
// request in a window starts the window's TTL; overrunning the budget
// sets a block key that denies the client until it expires.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	blocked, err := l.client.Exists(ctx, l.blockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit block: %w", err)
	}
	if blocked > 0 {
		return false, nil
	}

	counterKey := l.prefix + ":" + key
	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, counterKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to start rate limit window: %w", err)
		}
	}

	if count > l.limit {
		if err := l.client.Set(ctx, l.blockKey(key), "1", l.block).Err(); err != nil {
			return false, fmt.Errorf("failed to block client: %w", err)
		}
		return false, nil
	}
	return true, nil
}

func (l *FixedWindowLimiter) blockKey(key string) string {
	return l.prefix + ":block:" + key
}
