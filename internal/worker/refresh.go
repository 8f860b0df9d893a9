package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/aggregate"
	"github.com/outbreakwatch/outbreakwatch/internal/alert"
	"github.com/outbreakwatch/outbreakwatch/internal/observability"
	"github.com/outbreakwatch/outbreakwatch/internal/risk"
	"github.com/outbreakwatch/outbreakwatch/internal/snapshot"
)

// ErrRefreshInProgress is returned when a run is requested while another is active.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Aggregator produces a risk report.
type Aggregator interface {
	Aggregate(ctx context.Context) (*aggregate.Report, error)
}

// RefreshJob runs aggregate, save and alert as one pass.
type RefreshJob struct {
	config     RefreshConfig
	logger     zerolog.Logger
	clock      clockwork.Clock
	aggregator Aggregator

	// Optional, nil if not configured.
	repository snapshot.Repository
	notifier   *alert.Notifier

	metrics *observability.Metrics

	running sync.Mutex

	mu         sync.RWMutex
	lastLevels map[string]risk.Level
	// undelivered is the baseline of the first pass whose alerts failed to
	// send; it stays in force until a later send succeeds.
	undelivered map[string]risk.Level
	stats       RefreshStats
}

// RefreshStats tracks refresh job statistics.
type RefreshStats struct {
	TotalRuns      int64
	FailedRuns     int64
	SnapshotsSaved int64
	AlertsSent     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	LastError       string
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config     RefreshConfig
	Logger     zerolog.Logger
	Clock      clockwork.Clock
	Aggregator Aggregator
	Repository snapshot.Repository
	Notifier   *alert.Notifier
	Metrics    *observability.Metrics
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if config.Timeout <= 0 {
		config = DefaultRefreshConfig()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}

	return &RefreshJob{
		config:     config,
		logger:     cfg.Logger,
		clock:      clock,
		aggregator: cfg.Aggregator,
		repository: cfg.Repository,
		notifier:   cfg.Notifier,
		metrics:    metrics,
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Regions    int
	Escalated  int
	SnapshotID string

	// Errors are non-fatal side-effect failures (save, alert).
	Errors []string
}

// Run executes one refresh pass. Only aggregation failure is returned as an
// error; persistence and alert failures are reported in the result.
func (j *RefreshJob) Run(ctx context.Context, opts RunOptions) (*RefreshResult, error) {
	if !j.running.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer j.running.Unlock()

	start := j.clock.Now()
	result := &RefreshResult{StartTime: start}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	previous := j.previousLevels(ctx)

	report, err := j.aggregator.Aggregate(ctx)
	if err != nil {
		j.finish(result, err)
		return result, fmt.Errorf("aggregate: %w", err)
	}
	result.Regions = len(report.States)

	if !opts.DryRun {
		j.save(ctx, report, result)
		if !opts.SkipAlerts {
			j.alert(ctx, report, previous, result)
		}
		j.remember(report)
	}

	j.finish(result, nil)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("regions", result.Regions).
		Int("escalated", result.Escalated).
		Str("snapshot_id", result.SnapshotID).
		Bool("dry_run", opts.DryRun).
		Msg("risk refresh completed")

	return result, nil
}

// previousLevels prefers the baseline of undelivered alerts, then the newest
// persisted snapshot, then the levels remembered from this process's last run.
func (j *RefreshJob) previousLevels(ctx context.Context) map[string]risk.Level {
	j.mu.RLock()
	held := j.undelivered
	j.mu.RUnlock()
	if held != nil {
		return held
	}

	if j.repository != nil {
		latest, err := j.repository.Latest(ctx, 1)
		if err != nil {
			j.logger.Warn().Err(err).Msg("failed to load previous snapshot")
		} else if len(latest) > 0 {
			return latest[0].Levels()
		}
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastLevels
}

func (j *RefreshJob) save(ctx context.Context, report *aggregate.Report, result *RefreshResult) {
	if j.repository == nil || !j.config.SaveSnapshots {
		return
	}

	snap, err := snapshot.New(report)
	if err == nil {
		err = j.repository.Save(ctx, snap)
	}
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to save snapshot")
		result.Errors = append(result.Errors, "save: "+err.Error())
		return
	}

	result.SnapshotID = snap.ID
	j.metrics.SnapshotsSaved.Inc()
}

func (j *RefreshJob) alert(ctx context.Context, report *aggregate.Report, previous map[string]risk.Level, result *RefreshResult) {
	if j.notifier == nil || !j.config.SendAlerts {
		return
	}

	n, err := j.notifier.Notify(ctx, report, previous)

	j.mu.Lock()
	switch {
	case err == nil:
		j.undelivered = nil
	case j.undelivered == nil:
		j.undelivered = make(map[string]risk.Level, len(previous))
		for state, level := range previous {
			j.undelivered[state] = level
		}
	}
	j.mu.Unlock()

	if err != nil {
		j.logger.Error().Err(err).Msg("failed to send alerts")
		result.Errors = append(result.Errors, "alert: "+err.Error())
		return
	}
	result.Escalated = n
}

func (j *RefreshJob) remember(report *aggregate.Report) {
	levels := make(map[string]risk.Level, len(report.States))
	for _, s := range report.States {
		levels[s.State] = s.OverallRisk
	}

	j.mu.Lock()
	j.lastLevels = levels
	j.mu.Unlock()
}

func (j *RefreshJob) finish(result *RefreshResult, err error) {
	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	j.mu.Lock()
	defer j.mu.Unlock()

	j.stats.TotalRuns++
	j.stats.LastRunAt = result.EndTime
	j.stats.LastRunDuration = result.Duration
	j.stats.LastError = ""
	if err != nil {
		j.stats.FailedRuns++
		j.stats.LastError = err.Error()
	}
	if result.SnapshotID != "" {
		j.stats.SnapshotsSaved++
	}
	j.stats.AlertsSent += int64(result.Escalated)
}

// Stats returns a copy of the current statistics.
func (j *RefreshJob) Stats() RefreshStats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}

// StatsSnapshot returns the current statistics as a map for status endpoints.
func (j *RefreshJob) StatsSnapshot() map[string]interface{} {
	s := j.Stats()
	return map[string]interface{}{
		"total_runs":        s.TotalRuns,
		"failed_runs":       s.FailedRuns,
		"snapshots_saved":   s.SnapshotsSaved,
		"alerts_sent":       s.AlertsSent,
		"last_run_at":       s.LastRunAt,
		"last_run_duration": s.LastRunDuration.String(),
		"last_error":        s.LastError,
	}
}
