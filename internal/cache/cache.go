// Package cache provides in-memory TTL caching shared by the optimizer's
// geocoding, street-graph and fuel-price lookups.
package cache

import (
	"sync"
	"time"
)

// entry is a cached value with its creation timestamp.
type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Store is a mutex-guarded TTL cache. Entries past their TTL are treated as
// misses on read and removed by Sweep. Stores are process-local and never
// persisted; values are cheap to recompute.
type Store[K comparable, V any] struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[K]entry[V]

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates a Store whose entries expire after ttl.
func NewStore[K comparable, V any](ttl time.Duration) *Store[K, V] {
	return &Store[K, V]{
		ttl:     ttl,
		entries: make(map[K]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key if it exists and is within TTL.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || s.now().Sub(e.storedAt) >= s.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key with the current timestamp, silently
// overwriting any previous entry.
func (s *Store[K, V]) Put(key K, value V) {
	s.mu.Lock()
	s.entries[key] = entry[V]{value: value, storedAt: s.now()}
	s.mu.Unlock()
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. The compute function runs under the store lock so concurrent
// callers for the same key do not duplicate work; compute must therefore be
// side-effect free with respect to this store.
func (s *Store[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock.
	if e, ok := s.entries[key]; ok && s.now().Sub(e.storedAt) < s.ttl {
		return e.value, nil
	}

	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	s.entries[key] = entry[V]{value: v, storedAt: s.now()}
	return v, nil
}

// Sweep removes every entry older than the store's TTL and returns the
// number of entries removed.
func (s *Store[K, V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if now.Sub(e.storedAt) >= s.ttl {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SetClock overrides the store's time source. Test use only.
func (s *Store[K, V]) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}
