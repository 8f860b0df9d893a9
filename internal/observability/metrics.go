// Package observability holds the Prometheus instruments for the aggregation pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outbreakwatch"

// Upstream sources and call outcomes used as label values.
const (
	SourceWeather   = "weather"
	SourcePollution = "pollution"
	SourceWater     = "water"

	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeDegraded = "degraded"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk pipeline.
type Metrics struct {
	AggregationPasses   prometheus.Counter
	AggregationDuration prometheus.Histogram
	RegionsProcessed    prometheus.Counter

	// Upstream provider calls.
	UpstreamCalls    *prometheus.CounterVec   // labels: source={weather,pollution,water}, outcome={success,error,degraded}
	UpstreamDuration *prometheus.HistogramVec // labels: source
	WaterRecords     prometheus.Gauge

	// Latest pass results.
	RegionsByLevel *prometheus.GaugeVec // labels: level={Low,Medium,High,Critical}

	// Worker side effects.
	SnapshotsSaved prometheus.Counter
	AlertsSent     *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AggregationPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_passes_total",
			Help:      "Total completed aggregation passes.",
		}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of a full aggregation pass across all regions.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		RegionsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_processed_total",
			Help:      "Total region records produced by aggregation passes.",
		}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Upstream provider calls by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Upstream provider call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8, 15},
		}, []string{"source"}),
		WaterRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "water_records",
			Help:      "Number of water-quality records fetched in the latest pass.",
		}),
		RegionsByLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions_by_risk_level",
			Help:      "Regions at each risk level in the latest pass.",
		}, []string{"level"}),
		SnapshotsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_saved_total",
			Help:      "Total risk snapshots persisted by the worker.",
		}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "Risk alerts dispatched by outcome.",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.AggregationPasses,
		m.AggregationDuration,
		m.RegionsProcessed,
		m.UpstreamCalls,
		m.UpstreamDuration,
		m.WaterRecords,
		m.RegionsByLevel,
		m.SnapshotsSaved,
		m.AlertsSent,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AggregationPasses:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "aggregation_passes_total"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "aggregation_duration_seconds"}),
		RegionsProcessed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "regions_processed_total"}),
		UpstreamCalls:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "upstream_calls_total"}, []string{"source", "outcome"}),
		UpstreamDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "upstream_call_duration_seconds"}, []string{"source"}),
		WaterRecords:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "water_records"}),
		RegionsByLevel:      prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "regions_by_risk_level"}, []string{"level"}),
		SnapshotsSaved:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "snapshots_saved_total"}),
		AlertsSent:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "alerts_sent_total"}, []string{"outcome"}),
	}
}
