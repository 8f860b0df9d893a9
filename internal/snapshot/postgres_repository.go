package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outbreakwatch/outbreakwatch/internal/aggregate"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// The full report is stored as JSONB next to summary columns used for history queries.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save stores a snapshot.
func (r *PostgresRepository) Save(ctx context.Context, s *Snapshot) error {
	if s == nil || s.Report == nil {
		return ErrNilReport
	}

	payload, err := json.Marshal(s.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	sum := s.Summarize()
	query := `
		INSERT INTO risk_snapshots (
			id, taken_at, regions, water_records,
			critical, high, medium, low, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.TakenAt,
		sum.Regions,
		sum.WaterRecords,
		sum.Critical,
		sum.High,
		sum.Medium,
		sum.Low,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest returns up to limit snapshots, newest first.
func (r *PostgresRepository) Latest(ctx context.Context, limit int) ([]*Snapshot, error) {
	query := `
		SELECT id, taken_at, payload
		FROM risk_snapshots
		ORDER BY taken_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		var (
			s       Snapshot
			payload []byte
		)
		if err := rows.Scan(&s.ID, &s.TakenAt, &payload); err != nil {
			return nil, err
		}

		var report aggregate.Report
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", s.ID, err)
		}
		s.Report = &report
		snapshots = append(snapshots, &s)
	}

	return snapshots, rows.Err()
}
