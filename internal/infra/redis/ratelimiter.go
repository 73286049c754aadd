package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-relay/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec int64 = 100
	defaultKeyPrefix         = "notify-relay:ratelimit"
	backoffStep              = 10 * time.Millisecond
	backoffMax               = 50 * time.Millisecond
	windowSeconds            = 1
)

// Fixed one-second window: the first INCR of a window sets its expiry.
var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter caps how many messages per second all relay replicas hand
// to providers, counted per channel in Redis.
type RedisRateLimiter struct {
	client      *goredis.Client
	limitPerSec int64
	keyPrefix   string
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	script      *goredis.Script
}

// RateLimiterOption customizes a RedisRateLimiter.
type RateLimiterOption func(*RedisRateLimiter)

// WithKeyPrefix namespaces the window keys, e.g. per environment.
func WithKeyPrefix(prefix string) RateLimiterOption {
	return func(r *RedisRateLimiter) {
		if trimmed := strings.Trim(strings.TrimSpace(prefix), ":"); trimmed != "" {
			r.keyPrefix = trimmed
		}
	}
}

func withClock(now func() time.Time) RateLimiterOption {
	return func(r *RedisRateLimiter) {
		if now != nil {
			r.now = now
		}
	}
}

func withSleep(sleep func(ctx context.Context, d time.Duration) error) RateLimiterOption {
	return func(r *RedisRateLimiter) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

func NewRedisRateLimiter(client *goredis.Client, limitPerSec int, opts ...RateLimiterOption) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	limit := int64(limitPerSec)
	if limit <= 0 {
		limit = defaultLimitPerSec
	}

	r := &RedisRateLimiter{
		client:      client,
		limitPerSec: limit,
		keyPrefix:   defaultKeyPrefix,
		now:         time.Now,
		sleep:       sleepWithContext,
		script:      allowScript,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedChannel := strings.ToLower(strings.TrimSpace(channel))
	if normalizedChannel == "" {
		return false, fmt.Errorf("channel is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := r.script.Run(ctx, r.client, []string{r.windowKey(normalizedChannel)}, r.limitPerSec, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}

func (r *RedisRateLimiter) Wait(ctx context.Context, channel string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		allowed, err := r.Allow(ctx, channel)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff += backoffStep
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func (r *RedisRateLimiter) windowKey(channel string) string {
	return fmt.Sprintf("%s:%s:%d", r.keyPrefix, channel, r.now().UTC().Unix())
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
