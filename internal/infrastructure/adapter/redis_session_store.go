package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
)

// RedisSessionStore keeps each booking session as one JSON document that expires after
// the session TTL of inactivity.
type RedisSessionStore struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

func NewRedisSessionStore(client *redis.Client, logger *slog.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		logger: logger,
		prefix: "booking-service:session:",
	}
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
		}
		s.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}

	if err := s.client.Set(ctx, s.prefix+sess.ID, data, ttl).Err(); err != nil {
		s.logger.Error("Failed to store session", "session_id", sess.ID, "error", err)
		return fmt.Errorf("failed to store session %s: %w", sess.ID, err)
	}

	s.logger.Debug("Session stored", "session_id", sess.ID, "ttl", ttl, "size", len(data))
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, s.prefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
	}
	return nil
}
