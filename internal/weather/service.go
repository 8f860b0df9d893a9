package weather

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/cache"
)

// Provider is an upstream source of current weather.
type Provider interface {
	CurrentByName(ctx context.Context, name string) (*Reading, error)
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long a region's reading is reused (default: 10m).
	CacheTTL time.Duration

	// StaleIfErrorTTL is how old a reading may be and still stand in for a
	// failed refresh (default: 1h).
	StaleIfErrorTTL time.Duration

	Clock clockwork.Clock
}

// Service caches current weather per region name in front of a Provider.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	cache    *cache.Cache[Reading]
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	staleTTL := cfg.StaleIfErrorTTL
	if staleTTL <= 0 {
		staleTTL = time.Hour
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

// CurrentByName returns current weather for a region. Names are matched
// case- and whitespace-insensitively.
func (s *Service) CurrentByName(ctx context.Context, name string) (*Reading, error) {
	key := cacheKey(name)
	if key == "" {
		return nil, ErrEmptyLocation
	}

	reading, stale, err := s.cache.Get(ctx, key, func(ctx context.Context) (*Reading, error) {
		r, err := s.provider.CurrentByName(ctx, name)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("region", name).
				Str("provider", s.provider.Name()).
				Msg("weather fetch failed")
		}
		return r, err
	})
	if err != nil {
		return nil, ErrProviderUnavailable
	}
	if stale {
		fetchedAt, _ := s.cache.FetchedAt(key)
		s.logger.Warn().Str("region", name).Time("fetched_at", fetchedAt).Msg("serving stale weather")
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

func cacheKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
