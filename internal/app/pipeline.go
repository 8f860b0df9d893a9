// Package app assembles the aggregation pipeline shared by the API and worker binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/aggregate"
	"github.com/outbreakwatch/outbreakwatch/internal/airquality"
	"github.com/outbreakwatch/outbreakwatch/internal/airquality/weatherapi"
	"github.com/outbreakwatch/outbreakwatch/internal/config"
	"github.com/outbreakwatch/outbreakwatch/internal/database"
	"github.com/outbreakwatch/outbreakwatch/internal/observability"
	"github.com/outbreakwatch/outbreakwatch/internal/provider/resilience"
	"github.com/outbreakwatch/outbreakwatch/internal/region"
	"github.com/outbreakwatch/outbreakwatch/internal/snapshot"
	"github.com/outbreakwatch/outbreakwatch/internal/water/datagov"
	"github.com/outbreakwatch/outbreakwatch/internal/weather"
	"github.com/outbreakwatch/outbreakwatch/internal/weather/openweathermap"
)

// Pipeline is the wired aggregation stack.
type Pipeline struct {
	Aggregator *aggregate.Aggregator
	Registry   *resilience.Registry
	Metrics    *observability.Metrics
}

// Options tweaks pipeline construction. Zero values use production defaults.
type Options struct {
	Metrics *observability.Metrics
	Clock   clockwork.Clock

	// Base URL overrides, used to point the clients at local fakes.
	WeatherBaseURL   string
	PollutionBaseURL string
	WaterBaseURL     string
}

// NewPipeline builds providers, caches, fetcher and aggregator from cfg.
// A provider without an API key is left out and its fields degrade.
func NewPipeline(cfg *config.Config, logger zerolog.Logger, opts Options) (*Pipeline, error) {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	regions := region.Default()
	if len(cfg.Regions) > 0 {
		regions = regions.Filter(cfg.Regions)
		if regions.Len() == 0 {
			return nil, fmt.Errorf("REGIONS matched no known region: %v", cfg.Regions)
		}
	}

	registry := resilience.NewRegistry()

	fetcherCfg := aggregate.FetcherConfig{
		Concurrency: cfg.Concurrency,
		CallTimeout: cfg.UpstreamTimeout,
		Logger:      logger.With().Str("component", "fetcher").Logger(),
		Metrics:     metrics,
		Clock:       clock,
	}

	if cfg.OpenWeatherKey != "" {
		client := openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:   cfg.OpenWeatherKey,
			BaseURL:  opts.WeatherBaseURL,
			Timeout:  cfg.UpstreamTimeout,
			Registry: registry,
			Clock:    clock,
			Logger:   logger,
		})
		fetcherCfg.Weather = weather.NewService(weather.ServiceConfig{
			Provider: client,
			Logger:   logger.With().Str("component", "weather").Logger(),
			CacheTTL: cfg.CacheTTL,
			Clock:    clock,
		})
	} else {
		logger.Warn().Msg("OPENWEATHER_API_KEY not set; temperature and humidity will be null")
	}

	if cfg.WeatherAPIKey != "" {
		client := weatherapi.NewClient(weatherapi.ClientConfig{
			APIKey:   cfg.WeatherAPIKey,
			BaseURL:  opts.PollutionBaseURL,
			Timeout:  cfg.UpstreamTimeout,
			Registry: registry,
			Logger:   logger,
		})
		fetcherCfg.Pollution = airquality.NewService(airquality.ServiceConfig{
			Provider: client,
			Logger:   logger.With().Str("component", "airquality").Logger(),
			CacheTTL: cfg.CacheTTL,
			Clock:    clock,
		})
	} else {
		logger.Warn().Msg("WEATHERAPI_KEY not set; pollution will use the degraded reading")
	}

	aggCfg := aggregate.Config{
		Regions: regions,
		Fetcher: aggregate.NewFetcher(fetcherCfg),
		Logger:  logger.With().Str("component", "aggregate").Logger(),
		Metrics: metrics,
		Clock:   clock,
	}

	if cfg.HasWater() {
		aggCfg.Water = datagov.NewClient(datagov.ClientConfig{
			APIKey:     cfg.DataGovKey,
			ResourceID: cfg.DataGovResourceID,
			BaseURL:    opts.WaterBaseURL,
			MaxPages:   cfg.WaterMaxPages,
			Registry:   registry,
			Logger:     logger.With().Str("component", "datagov").Logger(),
		})
	} else {
		logger.Warn().Msg("water dataset not configured; water severity defaults to Unknown")
	}

	return &Pipeline{
		Aggregator: aggregate.New(aggCfg),
		Registry:   registry,
		Metrics:    metrics,
	}, nil
}

// Store is the snapshot repository plus the pool behind it, if any.
type Store struct {
	Repository snapshot.Repository
	Pool       *pgxpool.Pool
}

// Close releases the database pool.
func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Ping checks the database. Memory-backed stores always succeed.
func (s *Store) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

// OpenStore connects to Postgres when enabled. Otherwise it returns a
// bounded in-memory repository when memoryCapacity > 0, or an empty Store.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger, memoryCapacity int) (*Store, error) {
	if !cfg.DatabaseEnabled {
		if memoryCapacity <= 0 {
			logger.Warn().Msg("DB_HOST not set; snapshot history disabled")
			return &Store{}, nil
		}
		logger.Warn().Int("capacity", memoryCapacity).Msg("DB_HOST not set; keeping snapshots in memory")
		return &Store{Repository: snapshot.NewInMemoryRepository(memoryCapacity)}, nil
	}

	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	logger.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	return &Store{Repository: snapshot.NewPostgresRepository(pool), Pool: pool}, nil
}

// NewLogger builds the process logger at the configured level.
func NewLogger(service, version, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}
