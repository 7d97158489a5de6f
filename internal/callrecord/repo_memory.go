package callrecord

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps call records in process memory. Used when no
// Postgres is configured, and by tests.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Record)}
}

func (r *MemoryRepo) Create(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ProviderCallID] = rec
	return nil
}

func (r *MemoryRepo) Close(_ context.Context, providerCallID string, status Status, durationSeconds int, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[providerCallID]
	if !ok || rec.EndedAt != nil {
		return nil
	}
	rec.Status = status
	rec.DurationSeconds = durationSeconds
	rec.EndedAt = &endedAt
	r.records[providerCallID] = rec
	return nil
}

func (r *MemoryRepo) FindByProviderCallID(_ context.Context, providerCallID string) (Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[providerCallID]
	return rec, ok, nil
}
