// Package lock provides per-key locking. The bot keys it by chat id so every
// load, mutate and persist of a chat's game session runs as one critical
// section.
package lock

import (
	"context"
	"sync"
	"time"
)

// entry is a one-slot semaphore shared by everyone holding or waiting for a key.
type entry struct {
	sem  chan struct{}
	refs int
}

// KeyedLock hands out one mutex per key and forgets keys nobody uses.
type KeyedLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewKeyedLock creates a new KeyedLock instance.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{entries: make(map[int64]*entry)}
}

func (k *KeyedLock) ref(key int64) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedLock) unref(key int64, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock blocks until key is free or ctx is done.
func (k *KeyedLock) Lock(ctx context.Context, key int64) error {
	e := k.ref(key)
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.unref(key, e)
		return ErrLockTimeout
	}
}

// TryLock acquires key without blocking.
func (k *KeyedLock) TryLock(key int64) bool {
	e := k.ref(key)
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		k.unref(key, e)
		return false
	}
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (k *KeyedLock) Unlock(key int64) {
	k.mu.Lock()
	e, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-e.sem:
		k.unref(key, e)
	default:
	}
}

// WithLock runs fn while holding key, waiting at most timeout for it.
func (k *KeyedLock) WithLock(ctx context.Context, key int64, timeout time.Duration, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := k.Lock(lockCtx, key); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer k.Unlock(key)

	return fn()
}

// IsLocked reports whether key is currently held.
// This is a point-in-time check and may change immediately after.
func (k *KeyedLock) IsLocked(key int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	return ok && len(e.sem) == 1
}

// size is the number of keys currently tracked.
func (k *KeyedLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
