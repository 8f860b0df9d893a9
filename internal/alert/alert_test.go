package alert_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreakwatch/outbreakwatch/internal/aggregate"
	"github.com/outbreakwatch/outbreakwatch/internal/alert"
	"github.com/outbreakwatch/outbreakwatch/internal/observability"
	"github.com/outbreakwatch/outbreakwatch/internal/risk"
)

type recordingSender struct {
	messages []string
	err      error
}

func (s *recordingSender) Send(_ context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, text)
	return nil
}

var at = time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC)

func testReport() *aggregate.Report {
	return &aggregate.Report{
		UpdatedAt: at,
		States: []aggregate.StateRisk{
			{State: "Kerala", RiskScore: 0.82, OverallRisk: risk.LevelHigh, PrimaryThreat: risk.ThreatVector, Drivers: []string{"Weather", "Water quality"}},
			{State: "Delhi", RiskScore: 1, OverallRisk: risk.LevelCritical, PrimaryThreat: risk.ThreatRespiratory, Drivers: []string{"Air quality"}},
			{State: "Goa", RiskScore: 0.3, OverallRisk: risk.LevelLow, PrimaryThreat: risk.ThreatWater, Drivers: []string{}},
			{State: "Assam", RiskScore: 0.75, OverallRisk: risk.LevelHigh, PrimaryThreat: risk.ThreatVector},
		},
	}
}

func TestEvaluate(t *testing.T) {
	previous := map[string]risk.Level{
		"Kerala": risk.LevelMedium,
		"Delhi":  risk.LevelCritical,
		"Goa":    risk.LevelLow,
	}

	alerts := alert.Evaluate(testReport(), previous)
	require.Len(t, alerts, 2)

	assert.Equal(t, "Kerala", alerts[0].State)
	assert.Equal(t, risk.LevelMedium, alerts[0].Previous)

	assert.Equal(t, "Assam", alerts[1].State)
	assert.Equal(t, risk.Level(""), alerts[1].Previous)
}

func TestEvaluate_FirstRun(t *testing.T) {
	alerts := alert.Evaluate(testReport(), nil)
	require.Len(t, alerts, 3)
	assert.Equal(t, []string{"Kerala", "Delhi", "Assam"}, []string{alerts[0].State, alerts[1].State, alerts[2].State})
}

func TestEvaluate_NilReport(t *testing.T) {
	assert.Nil(t, alert.Evaluate(nil, nil))
}

func TestFormat(t *testing.T) {
	alerts := alert.Evaluate(testReport(), map[string]risk.Level{"Kerala": risk.LevelMedium})
	msgs := alert.Format(alerts, at)
	require.Len(t, msgs, 1)

	msg := msgs[0]
	assert.True(t, strings.HasPrefix(msg, "Outbreak risk update (2026-07-01 06:00 UTC)"))
	assert.Contains(t, msg, "Kerala: High (0.82), up from Medium")
	assert.Contains(t, msg, "drivers: Weather, Water quality")
	assert.Contains(t, msg, "Delhi: Critical (1.00)")
	assert.Contains(t, msg, "main threat: Respiratory")
	assert.NotContains(t, msg, "Goa")
}

func TestFormat_SplitsLongMessages(t *testing.T) {
	var alerts []alert.Alert
	for i := 0; i < 200; i++ {
		alerts = append(alerts, alert.Alert{
			State:         fmt.Sprintf("Region %03d", i),
			Level:         risk.LevelCritical,
			Score:         0.95,
			PrimaryThreat: risk.ThreatWater,
			Drivers:       []string{"Water quality"},
		})
	}

	msgs := alert.Format(alerts, at)
	require.Greater(t, len(msgs), 1)
	for _, m := range msgs {
		assert.LessOrEqual(t, len(m), alert.MaxMessageLen)
	}
	assert.Contains(t, msgs[len(msgs)-1], "Region 199")
}

func TestFormat_Empty(t *testing.T) {
	assert.Nil(t, alert.Format(nil, at))
}

func TestNotifier_Notify(t *testing.T) {
	sender := &recordingSender{}
	metrics := observability.NewMetricsForTesting()
	n := alert.NewNotifier(alert.NotifierConfig{Sender: sender, Logger: zerolog.Nop(), Metrics: metrics})

	count, err := n.Notify(context.Background(), testReport(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, sender.messages, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AlertsSent.WithLabelValues(observability.OutcomeSuccess)))
}

func TestNotifier_NothingToSend(t *testing.T) {
	sender := &recordingSender{}
	n := alert.NewNotifier(alert.NotifierConfig{Sender: sender, Logger: zerolog.Nop()})

	previous := map[string]risk.Level{
		"Kerala": risk.LevelCritical,
		"Delhi":  risk.LevelCritical,
		"Assam":  risk.LevelHigh,
	}
	count, err := n.Notify(context.Background(), testReport(), previous)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, sender.messages)
}

func TestNotifier_SendError(t *testing.T) {
	sender := &recordingSender{err: errors.New("forbidden")}
	metrics := observability.NewMetricsForTesting()
	n := alert.NewNotifier(alert.NotifierConfig{Sender: sender, Logger: zerolog.Nop(), Metrics: metrics})

	_, err := n.Notify(context.Background(), testReport(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AlertsSent.WithLabelValues(observability.OutcomeError)))
}
