package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turbekoff/deccalc/pkg/calculator"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := newMemoryStore(time.Minute, time.Hour)
	ctx := context.Background()
	key := sessionKey(10, 20)
	assert.Equal(t, "10_20", key)

	_, err := store.Load(ctx, key)
	require.ErrorIs(t, err, ErrSessionExpired)

	engine, err := calculator.New(8)
	require.NoError(t, err)
	applyKeys(t, engine, "7", KeyMul)
	require.NoError(t, store.Save(ctx, key, engine))

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	applyKeys(t, loaded, "6", KeyEqual)
	assert.Equal(t, "42", loaded.Render())

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Close(), ErrClosed)
	assert.ErrorIs(t, store.Save(ctx, sessionKey(1, 1), engine), ErrClosed)
}

func TestOpenSessionStore(t *testing.T) {
	ctx := context.Background()

	store, err := OpenSessionStore(ctx, &Config{
		SessionStore:            StoreMemory,
		MemcachedTTLTimeout:     time.Minute,
		MemcachedCleanupTimeout: time.Minute,
	})
	require.NoError(t, err)
	assert.IsType(t, &memoryStore{}, store)
	require.NoError(t, store.Close())

	_, err = OpenSessionStore(ctx, &Config{SessionStore: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownStore)

	_, err = OpenSessionStore(ctx, &Config{SessionStore: StoreRedis, RedisURL: "http://localhost"})
	assert.ErrorContains(t, err, "parse redis url")

	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr() + "/0"
	store, err = OpenSessionStore(ctx, &Config{
		SessionStore:        StoreRedis,
		RedisURL:            url,
		MemcachedTTLTimeout: time.Minute,
	})
	require.NoError(t, err)
	assert.IsType(t, &redisStore{}, store)
	require.NoError(t, store.Close())

	mr.Close()
	_, err = OpenSessionStore(ctx, &Config{SessionStore: StoreRedis, RedisURL: url})
	assert.ErrorContains(t, err, "ping redis")
}

func TestRedisStore(t *testing.T) {
	const ttl = time.Minute
	key := sessionKey(10, 20)
	redisKey := "calcbot:session:" + key

	newEngine := func(t *testing.T, keys ...string) *calculator.Engine {
		engine, err := calculator.New(8)
		require.NoError(t, err)
		applyKeys(t, engine, keys...)
		return engine
	}

	tests := []struct {
		name string
		run  func(t *testing.T, mr *miniredis.Miniredis, store *redisStore)
	}{
		{
			name: "missing key expired",
			run: func(t *testing.T, _ *miniredis.Miniredis, store *redisStore) {
				_, err := store.Load(context.Background(), key)
				assert.ErrorIs(t, err, ErrSessionExpired)
			},
		},
		{
			name: "save stores snapshot with ttl",
			run: func(t *testing.T, mr *miniredis.Miniredis, store *redisStore) {
				ctx := context.Background()
				require.NoError(t, store.Save(ctx, key, newEngine(t, "7", KeyMul)))

				require.True(t, mr.Exists(redisKey))
				assert.Equal(t, ttl, mr.TTL(redisKey))

				raw, err := mr.Get(redisKey)
				require.NoError(t, err)
				var snapshot calculator.Snapshot
				require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))
				assert.Equal(t, 8, snapshot.MaxDigits)
				assert.Equal(t, calculator.OpMultiply, snapshot.Operator)

				loaded, err := store.Load(ctx, key)
				require.NoError(t, err)
				applyKeys(t, loaded, "6", KeyEqual)
				assert.Equal(t, "42", loaded.Render())
			},
		},
		{
			name: "session expires after ttl",
			run: func(t *testing.T, mr *miniredis.Miniredis, store *redisStore) {
				ctx := context.Background()
				require.NoError(t, store.Save(ctx, key, newEngine(t, "5")))

				mr.FastForward(ttl - time.Second)
				_, err := store.Load(ctx, key)
				require.NoError(t, err)

				mr.FastForward(time.Second)
				assert.False(t, mr.Exists(redisKey))
				_, err = store.Load(ctx, key)
				assert.ErrorIs(t, err, ErrSessionExpired)
			},
		},
		{
			name: "shutdown keeps existing sessions only",
			run: func(t *testing.T, mr *miniredis.Miniredis, store *redisStore) {
				ctx := context.Background()
				require.NoError(t, store.Save(ctx, key, newEngine(t, "1")))
				require.NoError(t, store.Shutdown(ctx))

				other := sessionKey(30, 40)
				assert.ErrorIs(t, store.Save(ctx, other, newEngine(t, "2")), ErrClosed)
				assert.False(t, mr.Exists("calcbot:session:"+other))

				require.NoError(t, store.Save(ctx, key, newEngine(t, "1", "2")))
				loaded, err := store.Load(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, "12", loaded.Render())
				assert.Equal(t, ttl, mr.TTL(redisKey))
			},
		},
		{
			name: "close twice",
			run: func(t *testing.T, _ *miniredis.Miniredis, store *redisStore) {
				require.NoError(t, store.Close())
				assert.ErrorIs(t, store.Close(), ErrClosed)
			},
		},
		{
			name: "garbled session",
			run: func(t *testing.T, mr *miniredis.Miniredis, store *redisStore) {
				require.NoError(t, mr.Set(redisKey, "{"))
				_, err := store.Load(context.Background(), key)
				assert.ErrorContains(t, err, "decode session")
			},
		},
		{
			name: "inconsistent session",
			run: func(t *testing.T, mr *miniredis.Miniredis, store *redisStore) {
				require.NoError(t, mr.Set(redisKey, `{"max_digits":0}`))
				_, err := store.Load(context.Background(), key)
				assert.ErrorIs(t, err, calculator.ErrInvalidSnapshot)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			store := newRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
			t.Cleanup(func() { store.Close() })

			tt.run(t, mr, store)
		})
	}
}
