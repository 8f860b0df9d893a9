package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler triggers the refresh job on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	job    *RefreshJob
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers job under a standard five-field cron spec or a
// descriptor such as "@hourly".
func NewScheduler(spec string, job *RefreshJob, logger zerolog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.PrintfLogger(&logger))),
		job:    job,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	if _, err := s.job.Run(s.ctx, RunOptions{}); err != nil {
		if errors.Is(err, ErrRefreshInProgress) {
			s.logger.Warn().Msg("skipping scheduled refresh, previous run still active")
			return
		}
		s.logger.Error().Err(err).Msg("scheduled refresh failed")
	}
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info().Int("entries", len(s.cron.Entries())).Msg("starting scheduler")
	s.cron.Start()
}

// Stop cancels any running pass and waits for it to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
