package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreakwatch/outbreakwatch/internal/provider/resilience"
)

// statusSequence serves the given statuses in order, then repeats the last one.
func statusSequence(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(hits.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// fastConfig retries quickly and never trips the breaker on its own.
func fastConfig(name string, retries uint64) resilience.ClientConfig {
	cb := resilience.DefaultCircuitBreakerConfig(name)
	cb.ReadyToTrip = func(gobreaker.Counts) bool { return false }
	return resilience.ClientConfig{
		Name:            name,
		Timeout:         time.Second,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		CircuitBreaker:  &cb,
	}
}

func get(t *testing.T, c *resilience.Client, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return c.Do(req)
}

func TestClient_Do(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		retries    uint64
		wantStatus int
		wantHits   int32
	}{
		{"ok first try", []int{http.StatusOK}, 3, http.StatusOK, 1},
		{"recovers after 503s", []int{503, 503, 200}, 5, http.StatusOK, 3},
		{"quota 429 is retried", []int{429, 200}, 2, http.StatusOK, 2},
		{"404 is final", []int{http.StatusNotFound}, 3, http.StatusNotFound, 1},
		{"400 is final", []int{http.StatusBadRequest}, 3, http.StatusBadRequest, 1},
		{"exhausted retries hand back the 502", []int{502}, 2, http.StatusBadGateway, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := statusSequence(t, tt.statuses...)
			client := resilience.NewClient(fastConfig("openweathermap", tt.retries))

			resp, err := get(t, client, srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestClient_CircuitOpensAndFailsFast(t *testing.T) {
	srv, hits := statusSequence(t, http.StatusInternalServerError)

	cb := resilience.CircuitBreakerConfig{
		Name:        "datagov",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: resilience.DefaultReadyToTrip,
	}
	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "datagov",
		Timeout:         time.Second,
		MaxRetries:      4,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		CircuitBreaker:  &cb,
	})

	// Five failing attempts within one call trip the default policy.
	resp, _ := get(t, client, srv.URL)
	if resp != nil {
		resp.Body.Close()
	}
	require.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())
	before := hits.Load()

	resp, err := get(t, client, srv.URL)
	if resp != nil {
		resp.Body.Close()
	}
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, before, hits.Load(), "open breaker must not reach the upstream")
}

func TestClient_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := fastConfig("weatherapi", 0)
	cfg.Timeout = 50 * time.Millisecond
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, srv.URL)
	if resp != nil {
		resp.Body.Close()
	}
	assert.Error(t, err)
}

func TestClient_ContextCancelStopsRetries(t *testing.T) {
	srv, hits := statusSequence(t, http.StatusServiceUnavailable)

	cfg := fastConfig("weatherapi", 50)
	cfg.InitialInterval = 50 * time.Millisecond
	cfg.MaxInterval = 50 * time.Millisecond
	client := resilience.NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)

	resp, _ := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	assert.Less(t, hits.Load(), int32(10))
}

func TestClient_ReportsToRegistry(t *testing.T) {
	okSrv, _ := statusSequence(t, http.StatusOK)
	failSrv, _ := statusSequence(t, http.StatusBadGateway)

	registry := resilience.NewRegistry()

	okCfg := fastConfig("openweathermap", 1)
	okCfg.Registry = registry
	okClient := resilience.NewClient(okCfg)

	failCfg := fastConfig("datagov", 1)
	failCfg.Registry = registry
	failClient := resilience.NewClient(failCfg)

	resp, err := get(t, okClient, okSrv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = get(t, failClient, failSrv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	resp.Body.Close()

	ok := registry.Health("openweathermap")
	require.NotNil(t, ok)
	assert.NotNil(t, ok.LastSuccessAt)
	assert.Nil(t, ok.LastFailureAt)

	failed := registry.Health("datagov")
	require.NotNil(t, failed)
	assert.NotNil(t, failed.LastFailureAt)
	assert.Contains(t, failed.LastError, "datagov: upstream returned 502 Bad Gateway")
}

func TestTransient(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusNotFound:            false,
		http.StatusUnauthorized:        false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusGatewayTimeout:      true,
	} {
		assert.Equal(t, want, resilience.Transient(status), "status %d", status)
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := resilience.DefaultClientConfig("weatherapi")

	assert.Equal(t, "weatherapi", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	require.NotNil(t, cfg.CircuitBreaker)
	assert.Equal(t, "weatherapi", cfg.CircuitBreaker.Name)
	assert.Equal(t, 60*time.Second, cfg.CircuitBreaker.Timeout)
}

func TestDefaultReadyToTrip(t *testing.T) {
	tests := []struct {
		counts gobreaker.Counts
		want   bool
	}{
		{gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{gobreaker.Counts{Requests: 10, TotalFailures: 4}, false},
		{gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
		{gobreaker.Counts{Requests: 5, TotalFailures: 5}, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resilience.DefaultReadyToTrip(tt.counts), "%+v", tt.counts)
	}
}
