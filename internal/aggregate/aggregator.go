package aggregate

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/outbreakwatch/outbreakwatch/internal/observability"
	"github.com/outbreakwatch/outbreakwatch/internal/region"
	"github.com/outbreakwatch/outbreakwatch/internal/risk"
	"github.com/outbreakwatch/outbreakwatch/internal/telemetry"
	"github.com/outbreakwatch/outbreakwatch/internal/water"
)

const tracerName = "github.com/outbreakwatch/outbreakwatch/internal/aggregate"

// WaterSource returns the bulk water-quality dataset.
type WaterSource interface {
	FetchAll(ctx context.Context) ([]water.Record, error)
	Name() string
}

// Config holds configuration for the Aggregator.
type Config struct {
	// Regions is the monitored region catalog (default: region.Default()).
	Regions *region.Catalog

	// Fetcher gathers per-region weather and pollution. Nil uses a fetcher with no sources.
	Fetcher *Fetcher

	// Water is the bulk dataset source. Nil yields an empty dataset.
	Water WaterSource

	// WaterTimeout bounds the dataset pull (default: 30s).
	WaterTimeout time.Duration

	// Matcher selects water candidates per region (default: water.DefaultMatcher).
	Matcher water.Matcher

	Logger  zerolog.Logger
	Metrics *observability.Metrics
	Clock   clockwork.Clock
}

// Aggregator runs full aggregation passes. It holds no per-pass state and is
// safe for concurrent use.
type Aggregator struct {
	regions      *region.Catalog
	fetcher      *Fetcher
	water        WaterSource
	waterTimeout time.Duration
	matcher      water.Matcher
	logger       zerolog.Logger
	metrics      *observability.Metrics
	clock        clockwork.Clock
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	regions := cfg.Regions
	if regions == nil {
		regions = region.Default()
	}

	waterTimeout := cfg.WaterTimeout
	if waterTimeout <= 0 {
		waterTimeout = 30 * time.Second
	}

	matcher := cfg.Matcher
	if matcher == nil {
		matcher = water.DefaultMatcher{}
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(FetcherConfig{Logger: cfg.Logger, Metrics: metrics, Clock: clock})
	}

	return &Aggregator{
		regions:      regions,
		fetcher:      fetcher,
		water:        cfg.Water,
		waterTimeout: waterTimeout,
		matcher:      matcher,
		logger:       cfg.Logger,
		metrics:      metrics,
		clock:        clock,
	}
}

// Regions returns the monitored region catalog.
func (a *Aggregator) Regions() *region.Catalog {
	return a.regions
}

// Aggregate runs one pass over every region. It fails only when ctx is done;
// upstream failures degrade individual fields instead.
func (a *Aggregator) Aggregate(ctx context.Context) (*Report, error) {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "aggregate.pass")
	defer span.End()

	start := a.clock.Now()
	regions := a.regions.All()
	span.SetAttributes(attribute.Int("aggregate.regions", len(regions)))

	records := a.fetchWater(ctx)
	data := a.fetcher.FetchAll(ctx, regions)

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation cancelled")
		return nil, err
	}

	states := make([]StateRisk, len(data))
	for i, d := range data {
		rec := water.SelectWith(a.matcher, records, d.Region.Name)
		wa := water.Assess(rec)
		assessment := risk.Compute(risk.Inputs{
			Weather:   d.Weather,
			Pollution: d.Pollution,
			Water:     wa,
		})
		states[i] = shapeState(d, rec, wa, assessment)
	}

	report := &Report{
		States:    states,
		UpdatedAt: a.clock.Now().UTC(),
		Meta:      a.meta(len(records), len(regions)),
	}
	for _, d := range data {
		if d.Weather != nil && d.Weather.Stale {
			report.Meta.StaleWeather++
		}
		if d.Pollution != nil && d.Pollution.Stale {
			report.Meta.StalePollution++
		}
	}

	a.observe(report, a.clock.Since(start))
	span.SetAttributes(attribute.Int("aggregate.water_records", len(records)))

	a.logger.Info().
		Int("regions", len(states)).
		Int("water_records", len(records)).
		Dur("duration", a.clock.Since(start)).
		Msg("aggregation pass complete")

	return report, nil
}

// fetchWater pulls the dataset once per pass. Failure yields an empty dataset.
func (a *Aggregator) fetchWater(ctx context.Context) []water.Record {
	if a.water == nil {
		a.metrics.UpstreamCalls.WithLabelValues(observability.SourceWater, observability.OutcomeDegraded).Inc()
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.waterTimeout)
	defer cancel()

	start := a.clock.Now()
	records, err := a.water.FetchAll(ctx)
	a.metrics.UpstreamDuration.WithLabelValues(observability.SourceWater).Observe(a.clock.Since(start).Seconds())

	if err != nil {
		a.metrics.UpstreamCalls.WithLabelValues(observability.SourceWater, observability.OutcomeError).Inc()
		a.logger.Warn().Err(err).Str("provider", a.water.Name()).Msg("water dataset fetch failed")
		return nil
	}

	a.metrics.UpstreamCalls.WithLabelValues(observability.SourceWater, observability.OutcomeSuccess).Inc()
	return records
}

func (a *Aggregator) meta(waterRecords, regions int) Meta {
	m := Meta{
		HasWeatherKey:   a.fetcher.weather != nil,
		HasPollutionKey: a.fetcher.pollution != nil,
		HasWaterKey:     a.water != nil,
		WaterRecords:    waterRecords,
		Regions:         regions,
		Concurrency:     a.fetcher.Concurrency(),
	}

	var weatherName, pollutionName, waterName string
	if m.HasWeatherKey {
		weatherName = a.fetcher.weather.Name()
	}
	if m.HasPollutionKey {
		pollutionName = a.fetcher.pollution.Name()
	}
	if m.HasWaterKey {
		waterName = a.water.Name()
	}

	m.WeatherProvider = providerName(weatherName, m.HasWeatherKey)
	m.PollutionProvider = providerName(pollutionName, m.HasPollutionKey)
	m.WaterProvider = providerName(waterName, m.HasWaterKey)
	return m
}

func (a *Aggregator) observe(report *Report, elapsed time.Duration) {
	a.metrics.AggregationPasses.Inc()
	a.metrics.AggregationDuration.Observe(elapsed.Seconds())
	a.metrics.RegionsProcessed.Add(float64(len(report.States)))
	a.metrics.WaterRecords.Set(float64(report.Meta.WaterRecords))
	for level, n := range report.CountByLevel() {
		a.metrics.RegionsByLevel.WithLabelValues(string(level)).Set(float64(n))
	}
}
