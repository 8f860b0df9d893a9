// Package worker runs scheduled and message-triggered risk refresh passes.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the risk refresh job.
type RefreshConfig struct {
	// Timeout bounds a whole refresh pass.
	// Default: 2 minutes
	Timeout time.Duration

	// SaveSnapshots persists each report when a repository is configured.
	// Default: true
	SaveSnapshots bool

	// SendAlerts dispatches escalation alerts when a notifier is configured.
	// Default: true
	SendAlerts bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Timeout:       2 * time.Minute,
		SaveSnapshots: true,
		SendAlerts:    true,
	}
}

// RunOptions adjusts a single run.
type RunOptions struct {
	// DryRun aggregates without saving or alerting.
	DryRun bool

	// SkipAlerts saves the snapshot but sends nothing.
	SkipAlerts bool
}
