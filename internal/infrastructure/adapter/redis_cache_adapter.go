package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisCacheAdapter struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

func NewRedisCacheAdapterWithClient(client *redis.Client, logger *slog.Logger) *RedisCacheAdapter {
	return &RedisCacheAdapter{
		client: client,
		logger: logger,
		prefix: "booking-service:",
	}
}

func (r *RedisCacheAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := r.prefix + key

	result, err := r.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Cache miss", "key", key)
			return nil, fmt.Errorf("%w for key %s", ErrCacheMiss, key)
		}
		r.logger.Error("Failed to get from cache", "key", key, "error", err)
		return nil, fmt.Errorf("cache get error for key %s: %w", key, err)
	}

	r.logger.Debug("Cache hit", "key", key, "size", len(result))
	return result, nil
}

func (r *RedisCacheAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	fullKey := r.prefix + key

	if err := r.client.Set(ctx, fullKey, value, ttl).Err(); err != nil {
		r.logger.Error("Failed to set cache", "key", key, "ttl", ttl, "error", err)
		return fmt.Errorf("cache set error for key %s: %w", key, err)
	}

	r.logger.Debug("Cache set", "key", key, "ttl", ttl, "size", len(value))
	return nil
}

func (r *RedisCacheAdapter) Delete(ctx context.Context, key string) error {
	fullKey := r.prefix + key

	result, err := r.client.Del(ctx, fullKey).Result()
	if err != nil {
		r.logger.Error("Failed to delete from cache", "key", key, "error", err)
		return fmt.Errorf("cache delete error for key %s: %w", key, err)
	}

	r.logger.Debug("Cache delete", "key", key, "deleted_count", result)
	return nil
}

func (r *RedisCacheAdapter) Ping(ctx context.Context) error {
	if _, err := r.client.Ping(ctx).Result(); err != nil {
		r.logger.Error("Redis ping failed", "error", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
