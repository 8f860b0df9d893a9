package snapshot

import "context"

// Repository defines the interface for snapshot persistence.
type Repository interface {
	// Save stores a snapshot.
	Save(ctx context.Context, s *Snapshot) error

	// Latest returns up to limit snapshots, newest first.
	Latest(ctx context.Context, limit int) ([]*Snapshot, error)
}

// DefaultLimit applies when Latest is called with a non-positive limit.
const DefaultLimit = 24

// MaxLimit caps a single Latest call.
const MaxLimit = 500

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
