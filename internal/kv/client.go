package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopfloor/gatekeeper/internal/config"
)

// Store is the key-value surface the brute-force guard depends on.
// Every mutation the guard performs maps onto one of these primitives;
// Incr in particular must be atomic across concurrent callers.
type Store interface {
	// Incr atomically increments the integer at key, creating it at 1,
	// and returns the post-increment value.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the key's TTL. Returns without error if the key is gone.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// SetEx stores value at key with the given TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// GetInt reads the integer at key; ok is false when the key is absent.
	GetInt(ctx context.Context, key string) (value int64, ok bool, err error)
	// Exists reports whether the key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
	// Del removes the given keys; missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
}

// Client wraps a Redis connection behind the Store interface, applying a
// fixed per-operation timeout since callers sit on the signin critical path.
type Client struct {
	rdb     *redis.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(cfg *config.RedisConfig, logger *slog.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	logger.Info("redis connection established", slog.String("addr", cfg.Addr))

	return &Client{rdb: rdb, timeout: cfg.Timeout, logger: logger}, nil
}

func (c *Client) Close() error {
	c.logger.Info("closing redis connection")
	return c.rdb.Close()
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.rdb.Incr(ctx, key).Result()
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.rdb.Expire(ctx, key, ttl).Err()
}

func (c *Client) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) GetInt(ctx context.Context, key string) (int64, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("non-integer value at %q: %w", key, err)
	}
	return n, true, nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.rdb.Del(ctx, keys...).Err()
}
