package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a thread-safe in-memory implementation of Store.
//
// Records are held in a map guarded by a single mutex; the Update method runs
// the caller's UpdateFunc while holding the lock, which gives the atomic
// per-key read-modify-write the limiter algorithm requires. A max-key cap
// with stalest-first eviction bounds memory growth under many distinct
// client identities.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	maxKeys int
}

// InMemoryStoreConfig holds configuration for InMemoryStore.
type InMemoryStoreConfig struct {
	// MaxKeys is the maximum number of records to store in memory.
	// When the cap is reached, the records with the oldest LastAttempt
	// are evicted. Default: 10000.
	MaxKeys int
}

// NewInMemoryStore creates a new in-memory store with the given configuration.
func NewInMemoryStore(config InMemoryStoreConfig) *InMemoryStore {
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}

	return &InMemoryStore{
		records: make(map[string]Record),
		maxKeys: config.MaxKeys,
	}
}

// Update atomically applies fn to the record stored under key.
//
// The UpdateFunc runs with the table lock held, so no other operation on any
// key can interleave with it. If storing a new key would exceed the cap, the
// stalest existing records are evicted first.
func (s *InMemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[key]
	updated, keep := fn(rec, exists)

	if !keep {
		delete(s.records, key)
		return nil
	}

	if !exists && len(s.records) >= s.maxKeys {
		s.evictStalest()
	}

	s.records[key] = updated
	return nil
}

// Compact removes every record for which stale returns true.
//
// Returns the number of records removed.
func (s *InMemoryStore) Compact(ctx context.Context, stale func(key string, rec Record) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if stale(key, rec) {
			delete(s.records, key)
			removed++
		}
	}

	return removed, nil
}

// KeyCount returns the number of records currently in storage.
func (s *InMemoryStore) KeyCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records), nil
}

// evictStalest removes the 10% of records with the oldest LastAttempt
// (at least one) to avoid evicting on every insert once the cap is hit.
//
// Must be called while holding the lock.
func (s *InMemoryStore) evictStalest() {
	evictCount := s.maxKeys / 10
	if evictCount < 1 {
		evictCount = 1
	}

	type entry struct {
		key         string
		lastAttempt time.Time
	}

	entries := make([]entry, 0, len(s.records))
	for key, rec := range s.records {
		entries = append(entries, entry{key: key, lastAttempt: rec.LastAttempt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].lastAttempt.Before(entries[j].lastAttempt)
	})

	if evictCount > len(entries) {
		evictCount = len(entries)
	}
	for _, e := range entries[:evictCount] {
		delete(s.records, e.key)
	}
}
