package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreakwatch/outbreakwatch/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu        sync.Mutex
	callCount int
	readings  map[string]*weather.Reading
	err       error
}

func newMockProvider() *mockProvider {
	return &mockProvider{readings: make(map[string]*weather.Reading)}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) CurrentByName(_ context.Context, name string) (*weather.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++

	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.readings[name]; ok {
		return r, nil
	}
	return &weather.Reading{Temperature: 30, Humidity: 70, Condition: weather.ConditionClear}, nil
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func newTestService(p weather.Provider, clock clockwork.Clock) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider:        p,
		Logger:          zerolog.Nop(),
		CacheTTL:        10 * time.Minute,
		StaleIfErrorTTL: time.Hour,
		Clock:           clock,
	})
}

func TestService_CurrentByName_Caches(t *testing.T) {
	provider := newMockProvider()
	provider.readings["Kerala"] = &weather.Reading{Temperature: 31, Humidity: 88, RainLast3h: 4}
	svc := newTestService(provider, clockwork.NewFakeClock())

	r, err := svc.CurrentByName(context.Background(), "Kerala")
	require.NoError(t, err)
	assert.Equal(t, 31.0, r.Temperature)

	_, err = svc.CurrentByName(context.Background(), "  kerala ")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls())
}

func TestService_CurrentByName_ExpiresAfterTTL(t *testing.T) {
	provider := newMockProvider()
	clock := clockwork.NewFakeClock()
	svc := newTestService(provider, clock)

	_, err := svc.CurrentByName(context.Background(), "Goa")
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	_, err = svc.CurrentByName(context.Background(), "Goa")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls())
}

func TestService_CurrentByName_ServesStaleOnError(t *testing.T) {
	provider := newMockProvider()
	clock := clockwork.NewFakeClock()
	svc := newTestService(provider, clock)

	first, err := svc.CurrentByName(context.Background(), "Goa")
	require.NoError(t, err)

	provider.setErr(errors.New("upstream down"))
	clock.Advance(30 * time.Minute)

	stale, err := svc.CurrentByName(context.Background(), "Goa")
	require.NoError(t, err)
	assert.True(t, stale.Stale)
	assert.False(t, first.Stale, "cached entry is not mutated")
	assert.Equal(t, first.Temperature, stale.Temperature)

	clock.Advance(time.Hour)

	_, err = svc.CurrentByName(context.Background(), "Goa")
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_CurrentByName_ErrorWithoutCache(t *testing.T) {
	provider := newMockProvider()
	provider.setErr(errors.New("boom"))
	svc := newTestService(provider, clockwork.NewFakeClock())

	_, err := svc.CurrentByName(context.Background(), "Assam")
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_CurrentByName_EmptyName(t *testing.T) {
	provider := newMockProvider()
	svc := newTestService(provider, clockwork.NewFakeClock())

	_, err := svc.CurrentByName(context.Background(), "   ")
	assert.ErrorIs(t, err, weather.ErrEmptyLocation)
	assert.Equal(t, 0, provider.calls())
}

func TestService_CacheStats(t *testing.T) {
	provider := newMockProvider()
	clock := clockwork.NewFakeClock()
	svc := newTestService(provider, clock)

	_, _ = svc.CurrentByName(context.Background(), "Goa")
	clock.Advance(5 * time.Minute)
	_, _ = svc.CurrentByName(context.Background(), "Kerala")
	clock.Advance(6 * time.Minute)

	stats := svc.CacheStats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 1, stats.Fresh)
	assert.Equal(t, "mock", svc.Name())

	svc.InvalidateCache()
	assert.Equal(t, 0, svc.CacheStats().Entries)
}

func TestReading_HasRecentRain(t *testing.T) {
	var nilReading *weather.Reading
	assert.False(t, nilReading.HasRecentRain())
	assert.False(t, (&weather.Reading{}).HasRecentRain())
	assert.True(t, (&weather.Reading{RainLast3h: 0.1}).HasRecentRain())
}
