package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-process Store. Expiry is lazy: entries are
// checked against their deadline at read time rather than swept by
// per-entry timers.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   func() time.Time
}

type memoryEntry struct {
	ctx       Context
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, callID string, sc Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[callID] = memoryEntry{
		ctx:       sc,
		expiresAt: s.clock().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, callID string) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[callID]
	if !ok {
		return Context{}, ErrNotFound
	}
	if s.clock().After(e.expiresAt) {
		delete(s.entries, callID)
		return Context{}, ErrNotFound
	}
	return e.ctx, nil
}

func (s *MemoryStore) Delete(_ context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, callID)
	return nil
}

// Len reports live entries without pruning expired ones.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
