package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLockAdapter is a SETNX lock. The TTL bounds how long a crashed holder blocks others.
type RedisLockAdapter struct {
	client *redis.Client
}

func NewRedisLockAdapter(client *redis.Client) *RedisLockAdapter {
	return &RedisLockAdapter{client: client}
}

func (r *RedisLockAdapter) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("lock acquire error for key %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes key only while it still holds token. A lock that expired and was taken
// by another holder is left alone.
func (r *RedisLockAdapter) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("lock release error for key %s: %w", key, err)
	}
	return nil
}
