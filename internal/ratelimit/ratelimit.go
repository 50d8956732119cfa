// Package ratelimit implements sliding-window rate limiting backed by Redis.
//
// Limits are scoped by a rule prefix plus a caller-supplied key, so the same
// limiter instance can enforce different budgets for token issuance, decision
// creation, and read traffic. With no Redis client configured the limiter
// runs in noop mode and permits everything.
package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule describes one rate limit budget.
type Rule struct {
	Prefix string        // namespace for the Redis key, e.g. "create"
	Limit  int           // max requests per window
	Window time.Duration // sliding window length
}

// Result is the outcome of a single Allow check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// FormatHeaders returns the standard X-RateLimit-* response headers.
func (r Result) FormatHeaders() map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(r.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(r.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(r.ResetAt.Unix(), 10),
	}
}

// Limiter enforces sliding-window limits using Redis sorted sets.
// A nil client puts the limiter in noop mode (everything allowed).
type Limiter struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a Limiter. Pass a nil client to disable rate limiting.
func New(client *redis.Client, logger *slog.Logger) *Limiter {
	return &Limiter{client: client, logger: logger}
}

// Allow records one request for key under rule and reports whether it fits
// the budget. Redis failures fail open: an unreachable limiter must never
// take the API down with it.
func (l *Limiter) Allow(ctx context.Context, rule Rule, key string) Result {
	if l.client == nil {
		return Result{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit, ResetAt: time.Now().Add(rule.Window)}
	}

	now := time.Now()
	redisKey := "ratelimit:" + rule.Prefix + ":" + key
	windowStart := now.Add(-rule.Window)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixMicro(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("ratelimit: redis unavailable, failing open", "error", err)
		return Result{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit, ResetAt: now.Add(rule.Window)}
	}

	count := int(countCmd.Val())
	if count >= rule.Limit {
		return Result{
			Allowed:   false,
			Limit:     rule.Limit,
			Remaining: 0,
			ResetAt:   l.oldestReset(ctx, redisKey, rule.Window, now),
		}
	}

	// Member IDs have microsecond precision; two requests landing in the
	// same microsecond share a member and count once.
	member := strconv.FormatInt(now.UnixMicro(), 10)
	pipe = l.client.Pipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.Expire(ctx, redisKey, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("ratelimit: redis write failed, failing open", "error", err)
	}

	return Result{
		Allowed:   true,
		Limit:     rule.Limit,
		Remaining: rule.Limit - count - 1,
		ResetAt:   now.Add(rule.Window),
	}
}

// oldestReset computes when the oldest entry in the window expires, which is
// when one slot frees up for a denied caller.
func (l *Limiter) oldestReset(ctx context.Context, redisKey string, window time.Duration, now time.Time) time.Time {
	entries, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil || len(entries) == 0 {
		return now.Add(window)
	}
	oldest := time.UnixMicro(int64(entries[0].Score))
	return oldest.Add(window)
}
