package draft

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store used when Redis is unavailable and
// in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	now     Clock
}

func NewMemoryStore(ttl time.Duration, now Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]Entry), ttl: ttl, now: now}
}

func (s *MemoryStore) Put(_ context.Context, e Entry) (Entry, error) {
	e = stamp(e, s.now(), s.ttl)
	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()
	return e, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if !Valid(e.CreatedAt, s.now(), s.ttl) {
		delete(s.entries, id)
		return Entry{}, ErrExpired
	}
	return e, nil
}

func (s *MemoryStore) Evict(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}
