// Package alert selects regions whose risk escalated and notifies subscribers.
package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/aggregate"
	"github.com/outbreakwatch/outbreakwatch/internal/observability"
	"github.com/outbreakwatch/outbreakwatch/internal/risk"
)

// MinLevel is the lowest level that triggers an alert.
const MinLevel = risk.LevelHigh

// MaxMessageLen keeps messages under the Telegram limit of 4096 characters.
const MaxMessageLen = 4000

// Sender delivers a rendered message to subscribers.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Alert is a single escalated region.
type Alert struct {
	State         string
	Level         risk.Level
	Previous      risk.Level
	Score         float64
	PrimaryThreat risk.Threat
	Drivers       []string
}

// Evaluate returns regions at or above MinLevel whose level rose since the
// previous pass. A region missing from previous counts as newly escalated.
// Output keeps report order.
func Evaluate(report *aggregate.Report, previous map[string]risk.Level) []Alert {
	if report == nil {
		return nil
	}

	var alerts []Alert
	for _, s := range report.States {
		if s.OverallRisk.Rank() < MinLevel.Rank() {
			continue
		}
		prev, seen := previous[s.State]
		if seen && s.OverallRisk.Rank() <= prev.Rank() {
			continue
		}
		alerts = append(alerts, Alert{
			State:         s.State,
			Level:         s.OverallRisk,
			Previous:      prev,
			Score:         s.RiskScore,
			PrimaryThreat: s.PrimaryThreat,
			Drivers:       s.Drivers,
		})
	}
	return alerts
}

// Format renders alerts as plain-text messages, splitting at MaxMessageLen.
func Format(alerts []Alert, at time.Time) []string {
	if len(alerts) == 0 {
		return nil
	}

	header := fmt.Sprintf("Outbreak risk update (%s UTC)\n", at.UTC().Format("2006-01-02 15:04"))

	var (
		messages []string
		b        strings.Builder
	)
	b.WriteString(header)
	for _, a := range alerts {
		line := formatLine(a)
		if b.Len()+len(line) > MaxMessageLen && b.Len() > len(header) {
			messages = append(messages, b.String())
			b.Reset()
			b.WriteString(header)
		}
		b.WriteString(line)
	}
	return append(messages, b.String())
}

func formatLine(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s: %s (%.2f)", a.State, a.Level, a.Score)
	if a.Previous != "" {
		fmt.Fprintf(&b, ", up from %s", a.Previous)
	}
	fmt.Fprintf(&b, "\n  main threat: %s", a.PrimaryThreat)
	if len(a.Drivers) > 0 {
		fmt.Fprintf(&b, "\n  drivers: %s", strings.Join(a.Drivers, ", "))
	}
	b.WriteString("\n")
	return b.String()
}

// NotifierConfig holds configuration for the Notifier.
type NotifierConfig struct {
	Sender  Sender
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Notifier evaluates a report and sends alerts.
type Notifier struct {
	sender  Sender
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewNotifier creates a Notifier.
func NewNotifier(cfg NotifierConfig) *Notifier {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Notifier{
		sender:  cfg.Sender,
		logger:  cfg.Logger,
		metrics: metrics,
	}
}

// Notify sends alerts for escalated regions and returns how many regions alerted.
func (n *Notifier) Notify(ctx context.Context, report *aggregate.Report, previous map[string]risk.Level) (int, error) {
	alerts := Evaluate(report, previous)
	if len(alerts) == 0 {
		n.logger.Debug().Msg("no escalated regions")
		return 0, nil
	}

	for _, msg := range Format(alerts, report.UpdatedAt) {
		if err := n.sender.Send(ctx, msg); err != nil {
			n.metrics.AlertsSent.WithLabelValues(observability.OutcomeError).Inc()
			return 0, fmt.Errorf("send alert: %w", err)
		}
		n.metrics.AlertsSent.WithLabelValues(observability.OutcomeSuccess).Inc()
	}

	n.logger.Info().
		Int("regions", len(alerts)).
		Msg("risk alerts sent")

	return len(alerts), nil
}
