package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/handsomefox/cinebrowse/internal/logger"
)

const redisPrefix = "cinebrowse:"

// RedisCache stores entries as plain keys with a native TTL.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func OpenRedis(ctx context.Context, redisURL string, log *slog.Logger) (*RedisCache, error) {
	if redisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if log == nil {
		log = slog.Default()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, log), nil
}

// NewRedis wraps an existing client without pinging it.
func NewRedis(client *redis.Client, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{
		client: client,
		logger: log.With(slog.String("component", "cache"), slog.String("backend", "redis")),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", slog.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, redisPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Clear removes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, redisPrefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *RedisCache) Close() error { return c.client.Close() }
