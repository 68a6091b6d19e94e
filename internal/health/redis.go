// Package health provides health check implementations for external dependencies.
package health

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned by checkers whose dependency is absent.
var ErrNotConfigured = errors.New("dependency not configured")

// RedisChecker implements health checking for the Redis rate limit store.
type RedisChecker struct {
	client redis.Cmdable
}

// NewRedisChecker creates a new Redis health checker. A nil client yields a
// checker that reports ErrNotConfigured.
func NewRedisChecker(client redis.Cmdable) *RedisChecker {
	return &RedisChecker{
		client: client,
	}
}

// HealthCheck performs a health check on Redis by sending a PING command.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	if r.client == nil {
		return ErrNotConfigured
	}
	return r.client.Ping(ctx).Err()
}

// CheckerFunc adapts a function to the HealthCheck method set.
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f(ctx).
func (f CheckerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}
