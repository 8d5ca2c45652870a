// Package keylock provides per-key mutual exclusion. Locks are created
// lazily on first acquire and removed once no holder or waiter remains, so an
// arbitrary key space never accumulates idle lock state.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// KeyedLock serializes work per key. Acquires on distinct keys are fully
// independent; acquires on the same key queue behind a one-slot semaphore.
// Safe for concurrent use.
type KeyedLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty KeyedLock.
func New() *KeyedLock {
	return &KeyedLock{
		entries: make(map[string]*entry),
	}
}

// Acquire blocks until the lock for key is held or ctx is done. On success it
// returns a release function that must be called exactly once; release is
// idempotent to keep a deferred call safe next to an explicit one.
func (l *KeyedLock) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-e.sem
			l.drop(key, e)
		})
	}
	return release, nil
}

// TryAcquire attempts to take the lock without blocking. It returns the
// release function and true on success.
func (l *KeyedLock) TryAcquire(key string) (func(), bool) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	default:
		l.drop(key, e)
		return nil, false
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-e.sem
			l.drop(key, e)
		})
	}
	return release, true
}

// drop decrements the reference count for key, deleting the table entry once
// nobody holds or waits on it. The same entry pointer is compared so a
// re-created entry under the same key is never torn down by a stale waiter.
func (l *KeyedLock) drop(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 && l.entries[key] == e {
		delete(l.entries, key)
	}
}

// Len reports the number of keys with live lock state. Intended for tests
// and leak diagnostics.
func (l *KeyedLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
