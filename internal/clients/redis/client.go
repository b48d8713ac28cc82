package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"q-pipecat/internal/config"
	"q-pipecat/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotInitialized = errors.New("redis client not initialized")

// Client wraps the Redis client with observability
type Client struct {
	client *redis.Client
	logger *observability.Logger
}

// NewClient creates a new Redis client from REDIS_URL. It returns nil when Redis is not configured.
func NewClient(cfg config.RedisConfig, logger *observability.Logger) (*Client, error) {
	if !cfg.Enabled() {
		logger.Info(context.Background(), "Redis is disabled, skipping client initialization")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "addr", Value: opts.Addr},
		observability.Field{Key: "db", Value: opts.DB},
	)
	logger.Info(ctx, "successfully connected to Redis")

	return NewClientFromRedis(client, logger), nil
}

// NewClientFromRedis wraps an already configured go-redis client.
func NewClientFromRedis(client *redis.Client, logger *observability.Logger) *Client {
	return &Client{
		client: client,
		logger: logger,
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns the value stored at key. found is false when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	if !c.IsEnabled() {
		return nil, false, ErrNotInitialized
	}
	value, err = c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value at key with an expiration
func (c *Client) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.client.Set(ctx, key, value, expiration).Err()
}

// SetNX stores value at key only if the key does not exist. It reports whether the value was stored.
func (c *Client) SetNX(ctx context.Context, key string, value []byte, expiration time.Duration) (bool, error) {
	if !c.IsEnabled() {
		return false, ErrNotInitialized
	}
	return c.client.SetNX(ctx, key, value, expiration).Result()
}

// Del deletes keys
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.client.Del(ctx, keys...).Err()
}

// RecordHit keeps a sliding window of hits at key. Hits older than window are
// dropped; the current hit is recorded only while fewer than limit remain.
// It returns the number of hits in the window before this one and the time of
// the oldest of them.
func (c *Client) RecordHit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (count int64, oldest time.Time, err error) {
	if !c.IsEnabled() {
		return 0, time.Time{}, ErrNotInitialized
	}

	nowMs := now.UnixMilli()
	windowStart := strconv.FormatInt(nowMs-window.Milliseconds(), 10)

	var card *redis.IntCmd
	var first *redis.ZSliceCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+windowStart)
		card = pipe.ZCard(ctx, key)
		first = pipe.ZRangeWithScores(ctx, key, 0, 0)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read window %s: %w", key, err)
	}

	count = card.Val()
	if hits := first.Val(); len(hits) > 0 {
		oldest = time.UnixMilli(int64(hits[0].Score))
	}
	if count >= int64(limit) {
		return count, oldest, nil
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: uuid.NewString()})
		pipe.Expire(ctx, key, 2*window)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to record hit %s: %w", key, err)
	}
	if oldest.IsZero() {
		oldest = now
	}
	return count, oldest, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.client.Ping(ctx).Err()
}

// IsEnabled returns whether Redis is enabled
func (c *Client) IsEnabled() bool {
	return c != nil && c.client != nil
}
