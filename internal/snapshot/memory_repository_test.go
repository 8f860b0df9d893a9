package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreakwatch/outbreakwatch/internal/aggregate"
	"github.com/outbreakwatch/outbreakwatch/internal/risk"
	"github.com/outbreakwatch/outbreakwatch/internal/snapshot"
)

var base = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func reportAt(offset time.Duration, states ...aggregate.StateRisk) *aggregate.Report {
	return &aggregate.Report{
		States:    states,
		UpdatedAt: base.Add(offset),
		Meta:      aggregate.Meta{WaterRecords: 12, Regions: len(states)},
	}
}

func TestNew(t *testing.T) {
	_, err := snapshot.New(nil)
	assert.ErrorIs(t, err, snapshot.ErrNilReport)

	s, err := snapshot.New(reportAt(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, base.Add(time.Hour), s.TakenAt)
}

func TestSnapshot_SummarizeAndLevels(t *testing.T) {
	s, err := snapshot.New(reportAt(0,
		aggregate.StateRisk{State: "Kerala", RiskScore: 0.82, OverallRisk: risk.LevelHigh},
		aggregate.StateRisk{State: "Delhi", RiskScore: 1, OverallRisk: risk.LevelCritical},
		aggregate.StateRisk{State: "Goa", RiskScore: 0.25, OverallRisk: risk.LevelLow},
	))
	require.NoError(t, err)

	sum := s.Summarize()
	assert.Equal(t, 3, sum.Regions)
	assert.Equal(t, 12, sum.WaterRecords)
	assert.Equal(t, 1, sum.Critical)
	assert.Equal(t, 1, sum.High)
	assert.Equal(t, 0, sum.Medium)
	assert.Equal(t, 1, sum.Low)
	assert.Equal(t, "Delhi", sum.Highest)
	assert.Equal(t, 1.0, sum.HighestScore)

	assert.Equal(t, map[string]risk.Level{
		"Kerala": risk.LevelHigh,
		"Delhi":  risk.LevelCritical,
		"Goa":    risk.LevelLow,
	}, s.Levels())
}

func TestInMemoryRepository_LatestNewestFirst(t *testing.T) {
	repo := snapshot.NewInMemoryRepository(0)
	ctx := context.Background()

	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		s, err := snapshot.New(reportAt(offset))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, s))
	}

	latest, err := repo.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, base.Add(2*time.Hour), latest[0].TakenAt)
	assert.Equal(t, base.Add(time.Hour), latest[1].TakenAt)

	all, err := repo.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInMemoryRepository_Capacity(t *testing.T) {
	repo := snapshot.NewInMemoryRepository(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s, err := snapshot.New(reportAt(time.Duration(i) * time.Hour))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, s))
	}

	all, err := repo.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, base.Add(4*time.Hour), all[0].TakenAt)
}

func TestInMemoryRepository_SaveNil(t *testing.T) {
	repo := snapshot.NewInMemoryRepository(1)
	assert.ErrorIs(t, repo.Save(context.Background(), nil), snapshot.ErrNilReport)
	assert.ErrorIs(t, repo.Save(context.Background(), &snapshot.Snapshot{}), snapshot.ErrNilReport)
}

func TestInMemoryRepository_Empty(t *testing.T) {
	latest, err := snapshot.NewInMemoryRepository(1).Latest(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, latest)
}
