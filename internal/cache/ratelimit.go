// Package cache provides the Redis-backed pieces of the platform: the
// distributed rate-limit store shared by all API instances.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"fletoads/internal/config"
	"fletoads/internal/core"
)

// NewRedisClient connects to Redis using the configured URL. Returns an
// error when the URL is malformed or the server does not answer a ping, so
// the caller can decide whether to run without rate limiting.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// fixedWindowScript counts a request in the current window atomically.
// INCR and EXPIRE must run as one unit so a crashed instance cannot leave
// an immortal counter behind.
//
// KEYS[1] window counter key
// ARGV[1] window length in milliseconds
// Returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { count, ttl }
`)

// RedisRateLimitStore implements core.RateLimitStore with a fixed-window
// counter per key. The window state lives in Redis so the limit holds
// across API instances.
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisRateLimitStore creates a rate-limit store around an existing
// Redis client.
func NewRedisRateLimitStore(client *redis.Client, logger *slog.Logger) *RedisRateLimitStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRateLimitStore{
		client: client,
		prefix: "ratelimit",
		logger: logger,
	}
}

// IncrementAndCheck counts the request against the key's current window and
// reports whether it is still under the limit.
func (s *RedisRateLimitStore) IncrementAndCheck(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) (core.RateLimitResult, error) {
	redisKey := s.prefix + ":" + key

	vals, err := fixedWindowScript.Run(ctx, s.client, []string{redisKey}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return core.RateLimitResult{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return core.RateLimitResult{}, fmt.Errorf("rate limit script returned %d values", len(vals))
	}

	return windowResult(limit, vals[0], vals[1], time.Now()), nil
}

// windowResult converts the script's {count, ttl_ms} pair into the decision
// handed to the middleware.
func windowResult(limit int, count, ttlMs int64, now time.Time) core.RateLimitResult {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return core.RateLimitResult{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(ttlMs) * time.Millisecond),
	}
}

// Ping reports whether the store's Redis connection is alive. Wired into
// the health endpoint.
func (s *RedisRateLimitStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisRateLimitStore) Close() error {
	return s.client.Close()
}
