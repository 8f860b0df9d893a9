// Package weatherapi provides a client for the WeatherAPI.com current conditions endpoint.
package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/airquality"
	"github.com/outbreakwatch/outbreakwatch/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the WeatherAPI.com API.
	DefaultBaseURL = "https://api.weatherapi.com/v1"

	// ProviderName identifies this provider.
	ProviderName = "weatherapi"

	// errNoMatchingLocation is the API error code for unknown queries.
	errNoMatchingLocation = 1006
)

// ClientConfig holds configuration for the WeatherAPI.com client.
type ClientConfig struct {
	// APIKey is the WeatherAPI.com key (required).
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 8s).
	Timeout time.Duration

	// Registry tracks provider health when the default client is built.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a WeatherAPI.com client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new WeatherAPI.com client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 8 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Registry:        cfg.Registry,
			Logger:          cfg.Logger,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// CurrentByCoordinates fetches the current air quality at a point.
func (c *Client) CurrentByCoordinates(ctx context.Context, lat, lon float64) (*airquality.Reading, error) {
	q := strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)
	return c.current(ctx, q)
}

// CurrentByName fetches the current air quality for a named place.
func (c *Client) CurrentByName(ctx context.Context, name string) (*airquality.Reading, error) {
	return c.current(ctx, name)
}

func (c *Client) current(ctx context.Context, q string) (*airquality.Reading, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", q)
	params.Set("aqi", "yes")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/current.json?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch current: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		var apiErr errorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Code == errNoMatchingLocation {
			return nil, airquality.ErrNoDataForLocation
		}
		return nil, fmt.Errorf("bad request: %s", apiErr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.UpstreamError{Provider: ProviderName, StatusCode: resp.StatusCode}
	}

	var result currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode current response: %w", err)
	}

	return toReading(&result), nil
}

// toReading converts the API payload to a domain Reading.
func toReading(r *currentResponse) *airquality.Reading {
	aq := r.Current.AirQuality
	reading := &airquality.Reading{
		PM25:      finiteOrZero(aq.PM25),
		PM10:      finiteOrZero(aq.PM10),
		UpdatedAt: time.Unix(r.Current.LastUpdatedEpoch, 0).UTC(),
	}
	// The index is sometimes sent as a float; round it onto the 1-6 scale.
	if aq.USEPAIndex != nil {
		idx := int(math.Round(*aq.USEPAIndex))
		reading.USEPAIndex = &idx
	}
	return reading
}

func finiteOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

// API response types.

type currentResponse struct {
	Current struct {
		LastUpdatedEpoch int64 `json:"last_updated_epoch"`
		AirQuality       struct {
			PM25       *float64 `json:"pm2_5"`
			PM10       *float64 `json:"pm10"`
			USEPAIndex *float64 `json:"us-epa-index"`
		} `json:"air_quality"`
	} `json:"current"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
