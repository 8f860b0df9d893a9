package snapshot

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It keeps at most capacity snapshots, dropping the oldest.
type InMemoryRepository struct {
	mu        sync.RWMutex
	snapshots []*Snapshot
	capacity  int
}

// NewInMemoryRepository creates a new in-memory snapshot repository.
// A non-positive capacity keeps MaxLimit snapshots.
func NewInMemoryRepository(capacity int) *InMemoryRepository {
	if capacity <= 0 {
		capacity = MaxLimit
	}
	return &InMemoryRepository{capacity: capacity}
}

// Save stores a snapshot.
func (r *InMemoryRepository) Save(_ context.Context, s *Snapshot) error {
	if s == nil || s.Report == nil {
		return ErrNilReport
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, s)
	sort.SliceStable(r.snapshots, func(i, j int) bool {
		return r.snapshots[i].TakenAt.Before(r.snapshots[j].TakenAt)
	})
	if over := len(r.snapshots) - r.capacity; over > 0 {
		r.snapshots = r.snapshots[over:]
	}
	return nil
}

// Latest returns up to limit snapshots, newest first.
func (r *InMemoryRepository) Latest(_ context.Context, limit int) ([]*Snapshot, error) {
	limit = clampLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Snapshot, 0, min(limit, len(r.snapshots)))
	for i := len(r.snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.snapshots[i])
	}
	return out, nil
}
