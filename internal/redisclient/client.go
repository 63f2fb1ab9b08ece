package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	idempotencyPrefix = "idempotency:checkout:"
	lockPrefix        = "lock:checkout:"
	defaultLockTTL    = 30 * time.Second
)

// Client remembers which checkout request produced which order, so a
// retried checkout returns the original order instead of placing another.
type Client struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:     rdb,
		ttl:     ttl,
		lockTTL: defaultLockTTL,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Recall returns the order id stored for an idempotency key
func (c *Client) Recall(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, idempotencyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	orderID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", val, err)
	}
	return orderID, true, nil
}

// Remember stores the order id produced for an idempotency key
func (c *Client) Remember(ctx context.Context, key string, orderID int64) error {
	if err := c.rdb.Set(ctx, idempotencyPrefix+key, orderID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// TryLock takes the per-key checkout lock. It returns false when another
// checkout with the same key is in flight.
func (c *Client) TryLock(ctx context.Context, key string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, lockPrefix+key, "1", c.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	return ok, nil
}

// Unlock releases the per-key checkout lock
func (c *Client) Unlock(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, lockPrefix+key).Err()
}
