package adapter

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
)

// redisForTest connects to BOOKING_TEST_REDIS_ADDR, skipping when it is unset.
func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("BOOKING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOOKING_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	client := redisForTest(t)
	store := NewRedisSessionStore(client, discardLogger())
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	sess := session.New(uuid.NewString(), "hotel-1", now)
	require.NoError(t, store.Save(ctx, sess, time.Minute))

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "hotel-1", loaded.Search.Criteria.PropertyID)
	assert.Equal(t, sess.Flow.CurrentStep, loaded.Flow.CurrentStep)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sess.ID), session.ErrSessionNotFound)
}

func TestRedisLockAdapterIsExclusive(t *testing.T) {
	client := redisForTest(t)
	locks := NewRedisLockAdapter(client)
	ctx := context.Background()
	key := "booking:session:" + uuid.NewString() + ":lock"

	firstToken, first, err := locks.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
	assert.NotEmpty(t, firstToken)

	_, second, err := locks.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, locks.Release(ctx, key, firstToken))
	thirdToken, third, err := locks.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, third)
	assert.NotEqual(t, firstToken, thirdToken)
	require.NoError(t, locks.Release(ctx, key, thirdToken))
}

func TestRedisLockAdapterReleaseKeepsNewHolder(t *testing.T) {
	client := redisForTest(t)
	locks := NewRedisLockAdapter(client)
	ctx := context.Background()
	key := "booking:session:" + uuid.NewString() + ":lock"

	staleToken, acquired, err := locks.Acquire(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	require.Eventually(t, func() bool {
		return client.Exists(ctx, key).Val() == 0
	}, 2*time.Second, 10*time.Millisecond)

	currentToken, acquired, err := locks.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, locks.Release(ctx, key, staleToken))
	held, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, currentToken, held)

	require.NoError(t, locks.Release(ctx, key, currentToken))
	assert.Zero(t, client.Exists(ctx, key).Val())
}

func TestRedisCacheAdapterMiss(t *testing.T) {
	client := redisForTest(t)
	cache := NewRedisCacheAdapterWithClient(client, discardLogger())
	ctx := context.Background()
	key := "availability:" + uuid.NewString()

	_, err := cache.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, key, []byte(`{"rooms":[]}`), time.Minute))
	data, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rooms":[]}`, string(data))
	require.NoError(t, cache.Delete(ctx, key))
}

func TestRedisCredentialStoreSeedAndClear(t *testing.T) {
	client := redisForTest(t)
	store := NewRedisCredentialStore(client, discardLogger())
	store.key = "booking-service:test:" + uuid.NewString()
	ctx := context.Background()

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Seed(ctx, "first", 0))
	require.NoError(t, store.Seed(ctx, "second", 0))
	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", token)

	require.NoError(t, store.Clear(ctx))
	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
