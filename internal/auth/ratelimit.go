package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles login attempts per client IP with a fixed window
// counter in Redis. Only failed attempts count against the limit; a
// successful login resets the counter.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter returns a limiter allowing at most limit failed attempts
// per IP within window.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: rdb, limit: limit, window: window}
}

// RateLimitResult reports the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	RetryAt   time.Time
}

func (rl *RateLimiter) key(ip string) string {
	return "login_ratelimit:" + ip
}

// Check reports whether the given IP may attempt a login right now.
func (rl *RateLimiter) Check(ctx context.Context, ip string) (*RateLimitResult, error) {
	key := rl.key(ip)

	count, err := rl.client.Get(ctx, key).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("checking rate limit: %w", err)
	}

	if count < rl.limit {
		return &RateLimitResult{Allowed: true, Remaining: rl.limit - count}, nil
	}

	ttl, err := rl.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading rate limit TTL: %w", err)
	}
	return &RateLimitResult{Allowed: false, RetryAt: time.Now().Add(ttl)}, nil
}

// Record counts one failed login attempt against the given IP. The window
// starts at the first failure and is not extended by later ones.
func (rl *RateLimiter) Record(ctx context.Context, ip string) error {
	key := rl.key(ip)

	n, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("recording failed attempt: %w", err)
	}
	if n == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			return fmt.Errorf("setting attempt window: %w", err)
		}
	}
	return nil
}

// Reset clears the counter for an IP after a successful login.
func (rl *RateLimiter) Reset(ctx context.Context, ip string) error {
	return rl.client.Del(ctx, rl.key(ip)).Err()
}
