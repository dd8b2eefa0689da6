package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tablehub/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

var startupPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable yet, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

// Client wraps a go-redis client with metrics and circuit breaker hooks installed.
type Client struct {
	rdb     *goredis.Client
	breaker *CircuitBreakerHook
}

// NewClient creates a new Redis client from a URL (e.g., "redis://localhost:6379").
func NewClient(redisURL string) (*Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	breaker := NewCircuitBreakerHook()
	rdb.AddHook(&MetricsHook{})
	rdb.AddHook(breaker)

	return &Client{rdb: rdb, breaker: breaker}, nil
}

// WaitReady pings Redis until it answers or the startup policy gives up.
func (c *Client) WaitReady(ctx context.Context, clock clockwork.Clock) error {
	err := retry.Do(ctx, clock, startupPolicy, func(ctx context.Context) error {
		return c.Ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("redis did not become ready: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
