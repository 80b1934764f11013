package main

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

var ErrMemcachedClosed = errors.New("memcached closed")

type cached[V any] struct {
	value    V
	expireAt int64
}

// Memcached is a TTL cache. Every Set refreshes the entry's deadline.
// During shutdown only existing keys may be written.
type Memcached[V any] struct {
	mu          sync.RWMutex
	cleanerOnce sync.Once
	cleanerCh   chan struct{}
	items       map[string]cached[V]
	ttlTimeout  time.Duration
	inShutdown  atomic.Bool
	now         func() time.Time
}

func NewMemcached[V any](ttlTimeout, cleanupTimeout time.Duration) *Memcached[V] {
	mc := &Memcached[V]{
		cleanerCh:  make(chan struct{}),
		items:      make(map[string]cached[V]),
		ttlTimeout: ttlTimeout,
		now:        time.Now,
	}

	go func() {
		ticker := time.NewTicker(cleanupTimeout)
		defer ticker.Stop()

		for {
			select {
			case <-mc.cleanerCh:
				return
			case <-ticker.C:
				mc.cleanExpiredItems()
			}
		}
	}()
	return mc
}

func (mc *Memcached[V]) Set(key string, value V) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	_, isExists := mc.items[key]
	if mc.inShutdown.Load() && !isExists {
		return false
	}

	mc.items[key] = cached[V]{
		value:    value,
		expireAt: mc.now().Add(mc.ttlTimeout).UnixNano(),
	}
	return true
}

func (mc *Memcached[V]) Get(key string) (V, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var zero V
	item, exists := mc.items[key]
	if !exists || mc.now().UnixNano() > item.expireAt {
		return zero, false
	}
	return item.value, true
}

func (mc *Memcached[V]) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.items)
}

const shutdownIntervalMax = 500 * time.Millisecond

// Shutdown stops accepting new keys and waits for the existing ones to expire.
func (mc *Memcached[V]) Shutdown(ctx context.Context) error {
	mc.inShutdown.Store(true)
	mc.closeCleaner()

	intervalBase := time.Millisecond
	nextInterval := func() time.Duration {
		interval := intervalBase + time.Duration(rand.Intn(int(intervalBase/10)))

		intervalBase *= 2
		if intervalBase > shutdownIntervalMax {
			intervalBase = shutdownIntervalMax
		}
		return interval
	}

	timer := time.NewTimer(nextInterval())
	defer timer.Stop()
	for {
		mc.cleanExpiredItems()
		if mc.IsEmpty() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(nextInterval())
		}
	}
}

func (mc *Memcached[V]) Close() error {
	if mc.inShutdown.Swap(true) {
		return ErrMemcachedClosed
	}
	mc.closeCleaner()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	clear(mc.items)
	return nil
}

func (mc *Memcached[V]) cleanExpiredItems() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now().UnixNano()
	for k, v := range mc.items {
		if now > v.expireAt {
			delete(mc.items, k)
		}
	}
}

func (mc *Memcached[V]) IsEmpty() bool {
	return mc.Len() == 0
}

func (mc *Memcached[V]) closeCleaner() {
	mc.cleanerOnce.Do(func() {
		close(mc.cleanerCh)
	})
}
