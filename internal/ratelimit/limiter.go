package ratelimit

import "context"

// RateLimiter paces how fast messages are handed to providers, per channel.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
