package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCredentialStore holds the hotel API bearer token shared by every service replica.
type RedisCredentialStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

func NewRedisCredentialStore(client *redis.Client, logger *slog.Logger) *RedisCredentialStore {
	return &RedisCredentialStore{
		client: client,
		key:    "booking-service:hotel-api:token",
		logger: logger,
	}
}

// Token returns the stored token, or an empty string when there is none.
func (s *RedisCredentialStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read hotel API token: %w", err)
	}
	return token, nil
}

func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear hotel API token: %w", err)
	}
	s.logger.Warn("Hotel API token cleared after being rejected")
	return nil
}

// Seed stores token unless one is already present. A zero ttl keeps it until cleared.
func (s *RedisCredentialStore) Seed(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return nil
	}
	stored, err := s.client.SetNX(ctx, s.key, token, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to seed hotel API token: %w", err)
	}
	if stored {
		s.logger.Info("Hotel API token seeded from configuration")
	}
	return nil
}
