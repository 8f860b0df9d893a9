// Package aggregate fetches per-region signals and assembles the risk report.
package aggregate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/outbreakwatch/outbreakwatch/internal/airquality"
	"github.com/outbreakwatch/outbreakwatch/internal/observability"
	"github.com/outbreakwatch/outbreakwatch/internal/region"
	"github.com/outbreakwatch/outbreakwatch/internal/weather"
)

const (
	// DefaultConcurrency caps simultaneous per-region fetches.
	DefaultConcurrency = 6

	// DefaultCallTimeout bounds every upstream call.
	DefaultCallTimeout = 8 * time.Second
)

// WeatherSource looks up current weather by region name.
type WeatherSource interface {
	CurrentByName(ctx context.Context, name string) (*weather.Reading, error)
	Name() string
}

// PollutionSource looks up current air quality for a location.
type PollutionSource interface {
	Current(ctx context.Context, loc airquality.Location) (*airquality.Reading, error)
	Name() string
}

// RegionData is the raw signal set for one region. Nil readings mean the call failed.
type RegionData struct {
	Region    region.Region
	Weather   *weather.Reading
	Pollution *airquality.Reading
}

// FetcherConfig holds configuration for the regional fetcher.
type FetcherConfig struct {
	// Weather is the weather source. Nil leaves every weather reading empty.
	Weather WeatherSource

	// Pollution is the air quality source. Nil substitutes airquality.DegradedReading.
	Pollution PollutionSource

	// Concurrency is the number of workers (default: 6).
	Concurrency int

	// CallTimeout bounds each upstream call (default: 8s).
	CallTimeout time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
	Clock   clockwork.Clock
}

// Fetcher gathers weather and pollution for many regions with bounded concurrency.
type Fetcher struct {
	weather     WeatherSource
	pollution   PollutionSource
	concurrency int
	callTimeout time.Duration
	logger      zerolog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
}

// NewFetcher creates a new Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Fetcher{
		weather:     cfg.Weather,
		pollution:   cfg.Pollution,
		concurrency: concurrency,
		callTimeout: callTimeout,
		logger:      cfg.Logger,
		metrics:     metrics,
		clock:       clock,
	}
}

// Concurrency returns the worker count.
func (f *Fetcher) Concurrency() int {
	return f.concurrency
}

// FetchAll returns one RegionData per input region, in input order.
// Upstream failures never abort the pass; they leave the reading nil.
func (f *Fetcher) FetchAll(ctx context.Context, regions []region.Region) []RegionData {
	results := make([]RegionData, len(regions))
	if len(regions) == 0 {
		return results
	}

	workers := min(f.concurrency, len(regions))
	var next atomic.Int64

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= len(regions) {
					return nil
				}
				results[i] = f.fetchRegion(ctx, regions[i])
			}
		})
	}
	_ = g.Wait()

	return results
}

// fetchRegion runs the weather and pollution lookups for one region concurrently.
func (f *Fetcher) fetchRegion(ctx context.Context, r region.Region) RegionData {
	out := RegionData{Region: r}

	var g errgroup.Group
	g.Go(func() error {
		out.Weather = f.fetchWeather(ctx, r)
		return nil
	})
	g.Go(func() error {
		out.Pollution = f.fetchPollution(ctx, r)
		return nil
	})
	_ = g.Wait()

	return out
}

func (f *Fetcher) fetchWeather(ctx context.Context, r region.Region) *weather.Reading {
	if f.weather == nil {
		f.metrics.UpstreamCalls.WithLabelValues(observability.SourceWeather, observability.OutcomeDegraded).Inc()
		return nil
	}

	reading, err := call(ctx, f, observability.SourceWeather, func(ctx context.Context) (*weather.Reading, error) {
		return f.weather.CurrentByName(ctx, r.Name)
	})
	if err != nil {
		f.logger.Warn().Err(err).Str("region", r.Name).Msg("weather fetch failed")
		return nil
	}
	return reading
}

func (f *Fetcher) fetchPollution(ctx context.Context, r region.Region) *airquality.Reading {
	if f.pollution == nil {
		f.metrics.UpstreamCalls.WithLabelValues(observability.SourcePollution, observability.OutcomeDegraded).Inc()
		return airquality.DegradedReading()
	}

	loc := airquality.Location{Name: r.Name}
	if r.HasCentroid() {
		loc.Lat, loc.Lon, loc.HasCoord = r.Centroid.Lat, r.Centroid.Lon, true
	}

	reading, err := call(ctx, f, observability.SourcePollution, func(ctx context.Context) (*airquality.Reading, error) {
		return f.pollution.Current(ctx, loc)
	})
	if err != nil {
		f.logger.Warn().Err(err).Str("region", r.Name).Msg("pollution fetch failed")
		return nil
	}
	return reading
}

// call runs fn under the per-call timeout, recording its outcome. A panic in
// fn is reported as an error.
func call[T any](ctx context.Context, f *Fetcher, source string, fn func(context.Context) (*T, error)) (result *T, err error) {
	ctx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	start := f.clock.Now()
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("provider panic: %v", p)
		}

		f.metrics.UpstreamDuration.WithLabelValues(source).Observe(f.clock.Since(start).Seconds())
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeError
		}
		f.metrics.UpstreamCalls.WithLabelValues(source, outcome).Inc()
	}()

	return fn(ctx)
}
