package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/turbekoff/deccalc/pkg/calculator"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	redisKeyPrefix = "calcbot:session:"
)

var ErrUnknownStore = errors.New("unknown session store")

// SessionStore keeps one calculator per chat member between key presses.
// Load returns ErrSessionExpired when there is nothing to resume.
type SessionStore interface {
	Load(ctx context.Context, key string) (*calculator.Engine, error)
	Save(ctx context.Context, key string, engine *calculator.Engine) error
	Shutdown(ctx context.Context) error
	Close() error
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d_%d", chatID, userID)
}

func OpenSessionStore(ctx context.Context, config *Config) (SessionStore, error) {
	switch config.SessionStore {
	case StoreMemory:
		return newMemoryStore(config.MemcachedTTLTimeout, config.MemcachedCleanupTimeout), nil
	case StoreRedis:
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}

		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return newRedisStore(client, config.MemcachedTTLTimeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, config.SessionStore)
	}
}

type memoryStore struct {
	mc *Memcached[*calculator.Engine]
}

func newMemoryStore(ttlTimeout, cleanupTimeout time.Duration) *memoryStore {
	return &memoryStore{mc: NewMemcached[*calculator.Engine](ttlTimeout, cleanupTimeout)}
}

func (s *memoryStore) Load(_ context.Context, key string) (*calculator.Engine, error) {
	engine, ok := s.mc.Get(key)
	if !ok {
		return nil, ErrSessionExpired
	}
	return engine, nil
}

func (s *memoryStore) Save(_ context.Context, key string, engine *calculator.Engine) error {
	if !s.mc.Set(key, engine) {
		return ErrClosed
	}
	return nil
}

func (s *memoryStore) Shutdown(ctx context.Context) error {
	return s.mc.Shutdown(ctx)
}

func (s *memoryStore) Close() error {
	if err := s.mc.Close(); errors.Is(err, ErrMemcachedClosed) {
		return ErrClosed
	}
	return nil
}

// redisStore keeps engine snapshots as JSON so sessions survive restarts.
type redisStore struct {
	client     *redis.Client
	ttlTimeout time.Duration
	inShutdown atomic.Bool
	isClosed   atomic.Bool
}

func newRedisStore(client *redis.Client, ttlTimeout time.Duration) *redisStore {
	return &redisStore{client: client, ttlTimeout: ttlTimeout}
}

func (s *redisStore) Load(ctx context.Context, key string) (*calculator.Engine, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	var snapshot calculator.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return calculator.Restore(snapshot)
}

func (s *redisStore) Save(ctx context.Context, key string, engine *calculator.Engine) error {
	raw, err := json.Marshal(engine.Snapshot())
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}

	if !s.inShutdown.Load() {
		return s.client.Set(ctx, redisKeyPrefix+key, raw, s.ttlTimeout).Err()
	}

	stored, err := s.client.SetXX(ctx, redisKeyPrefix+key, raw, s.ttlTimeout).Result()
	if err != nil {
		return err
	}
	if !stored {
		return ErrClosed
	}
	return nil
}

// Shutdown only refuses new sessions: stored ones outlive the process.
func (s *redisStore) Shutdown(_ context.Context) error {
	s.inShutdown.Store(true)
	return nil
}

func (s *redisStore) Close() error {
	s.inShutdown.Store(true)
	if s.isClosed.Swap(true) {
		return ErrClosed
	}
	return s.client.Close()
}
