package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local Store. It is only correct for a single
// instance; use RedisStore when several replicas share one limit.
type MemoryStore struct {
	cache *gocache.Cache
	mu    sync.Mutex
}

// NewMemoryStore creates a store whose entries also expire on their own after
// ttl, as a backstop for a sweeper that is not running.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(ttl, ttl),
	}
}

// Increment implements Store
func (s *MemoryStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Count: 1, WindowStart: now}
	if cached, found := s.cache.Get(key); found {
		if prev, ok := cached.(Entry); ok && now.Sub(prev.WindowStart) <= window {
			entry = Entry{Count: prev.Count + 1, WindowStart: prev.WindowStart}
		}
	}

	s.cache.Set(key, entry, gocache.DefaultExpiration)
	return entry, nil
}

// Sweep implements Store
func (s *MemoryStore) Sweep(_ context.Context, now time.Time, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, item := range s.cache.Items() {
		entry, ok := item.Object.(Entry)
		if !ok || now.Sub(entry.WindowStart) > maxAge {
			s.cache.Delete(key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
