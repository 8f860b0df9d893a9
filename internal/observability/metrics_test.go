package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/outbreakwatch/outbreakwatch/internal/observability"
)

func TestNewMetricsForTesting(t *testing.T) {
	m := observability.NewMetricsForTesting()

	m.AggregationPasses.Inc()
	m.UpstreamCalls.WithLabelValues(observability.SourceWeather, observability.OutcomeError).Inc()
	m.UpstreamCalls.WithLabelValues(observability.SourceWeather, observability.OutcomeError).Inc()
	m.RegionsByLevel.WithLabelValues("High").Set(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AggregationPasses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues(observability.SourceWeather, observability.OutcomeError)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RegionsByLevel.WithLabelValues("High")))
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := observability.NewMetricsForTesting()
	b := observability.NewMetricsForTesting()

	a.SnapshotsSaved.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SnapshotsSaved))
}
