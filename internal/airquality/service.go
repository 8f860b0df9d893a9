package airquality

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/cache"
)

// Provider is an upstream source of current air quality.
type Provider interface {
	CurrentByCoordinates(ctx context.Context, lat, lon float64) (*Reading, error)
	CurrentByName(ctx context.Context, name string) (*Reading, error)
	Name() string
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long a reading is reused (default: 5m). Pollution moves
	// faster than weather, hence the shorter default.
	CacheTTL time.Duration

	// StaleIfErrorTTL bounds how old a stand-in reading may be (default: 30m).
	StaleIfErrorTTL time.Duration

	Clock clockwork.Clock
}

// Service caches air quality per location in front of a Provider.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	cache    *cache.Cache[Reading]
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	staleTTL := cfg.StaleIfErrorTTL
	if staleTTL <= 0 {
		staleTTL = 30 * time.Minute
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		cache:    cache.New[Reading](cache.Config{TTL: ttl, StaleTTL: staleTTL, Clock: cfg.Clock}),
	}
}

// Name returns the underlying provider name.
func (s *Service) Name() string {
	return s.provider.Name()
}

// Current returns the reading for loc, querying by coordinates when it has them.
func (s *Service) Current(ctx context.Context, loc Location) (*Reading, error) {
	key := loc.key()
	if key == "" {
		return nil, ErrEmptyLocation
	}

	reading, stale, err := s.cache.Get(ctx, key, func(ctx context.Context) (*Reading, error) {
		var (
			r   *Reading
			err error
		)
		if loc.HasCoord {
			r, err = s.provider.CurrentByCoordinates(ctx, loc.Lat, loc.Lon)
		} else {
			r, err = s.provider.CurrentByName(ctx, loc.Name)
		}
		if err != nil {
			s.logger.Warn().Err(err).
				Str("location", key).
				Str("provider", s.provider.Name()).
				Msg("air quality fetch failed")
		}
		return r, err
	})
	if err != nil {
		return nil, ErrProviderUnavailable
	}
	if stale {
		s.logger.Warn().Str("location", key).Msg("serving stale air quality")
		marked := *reading
		marked.Stale = true
		return &marked, nil
	}
	return reading, nil
}

// InvalidateCache drops every cached reading.
func (s *Service) InvalidateCache() {
	s.cache.Purge()
}

// CacheStats reports cache occupancy.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}
