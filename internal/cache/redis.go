package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"fortnite-checker-api/internal/logger"
)

const (
	defaultRedisPrefix = "fnchecker:catalog:"
	scanBatch          = 500
)

// RedisConfig holds connection settings for RedisCache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisCache is a Cache shared between instances. All keys live under KeyPrefix.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig, log *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	c := &RedisCache{
		client:    client,
		keyPrefix: prefix,
		logger:    logger.Component(log, "redis_cache"),
	}
	c.logger.Info("redis cache connected",
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.String("prefix", prefix),
	)
	return c, nil
}

func (c *RedisCache) key(k string) string { return c.keyPrefix + k }

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	c.hits.Add(1)
	return data, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	removed := 0
	err := c.scan(ctx, func(keys []string) error {
		removed += len(keys)
		return c.client.Unlink(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	c.logger.Info("redis cache cleared", slog.Int("keys", removed))
	return nil
}

// Stats counts keys under the prefix.
func (c *RedisCache) Stats(ctx context.Context) (Stats, error) {
	var n int64
	err := c.scan(ctx, func(keys []string) error {
		n += int64(len(keys))
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count keys: %w", err)
	}
	return Stats{
		Backend: "redis",
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
