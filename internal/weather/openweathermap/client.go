// Package openweathermap implements weather.Provider on the OpenWeatherMap current weather API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/provider/resilience"
	"github.com/outbreakwatch/outbreakwatch/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// DefaultCountry is appended to name lookups to disambiguate regions.
	DefaultCountry = "IN"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// Country is the ISO country code for name lookups (default: IN).
	// Set to "-" to send bare names.
	Country string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Registry tracks provider health when the default client is built.
	Registry *resilience.Registry

	// Clock stamps FetchedAt (default: real clock).
	Clock clockwork.Clock

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	country    string
	httpClient *resilience.Client
	clock      clockwork.Clock
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	country := cfg.Country
	switch country {
	case "":
		country = DefaultCountry
	case "-":
		country = ""
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		rc.Registry = cfg.Registry
		rc.Logger = cfg.Logger
		httpClient = resilience.NewClient(rc)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		country:    country,
		httpClient: httpClient,
		clock:      clock,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// CurrentByName fetches current weather for a named place.
func (c *Client) CurrentByName(ctx context.Context, name string) (*weather.Reading, error) {
	q := name
	if c.country != "" {
		q = name + "," + c.country
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, weather.ErrNoDataForLocation
	default:
		return nil, &resilience.UpstreamError{Provider: ProviderName, StatusCode: resp.StatusCode}
	}

	var owmResp currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return toReading(&owmResp, c.clock.Now()), nil
}

func toReading(resp *currentWeatherResponse, fetchedAt time.Time) *weather.Reading {
	r := &weather.Reading{
		Temperature: resp.Main.Temp,
		Humidity:    resp.Main.Humidity,
		RainLast3h:  resp.Rain.ThreeHour,
		ObservedAt:  time.Unix(resp.Dt, 0).UTC(),
		FetchedAt:   fetchedAt.UTC(),
	}

	// Only the 1h bucket is reported for short showers.
	if r.RainLast3h == 0 && resp.Rain.OneHour > 0 {
		r.RainLast3h = resp.Rain.OneHour
	}

	r.Condition = weather.ConditionUnknown
	if len(resp.Weather) > 0 {
		r.Condition = mapCondition(resp.Weather[0].Main)
		r.Description = resp.Weather[0].Description
	}

	return r
}

// conditions maps the OpenWeatherMap "main" group onto domain conditions.
// Atmosphere groups other than mist and fog all read as haze.
var conditions = map[string]weather.Condition{
	"Clear":        weather.ConditionClear,
	"Clouds":       weather.ConditionClouds,
	"Rain":         weather.ConditionRain,
	"Drizzle":      weather.ConditionDrizzle,
	"Thunderstorm": weather.ConditionThunderstorm,
	"Snow":         weather.ConditionSnow,
	"Mist":         weather.ConditionMist,
	"Fog":          weather.ConditionFog,
	"Haze":         weather.ConditionHaze,
	"Dust":         weather.ConditionHaze,
	"Sand":         weather.ConditionHaze,
	"Ash":          weather.ConditionHaze,
	"Squall":       weather.ConditionHaze,
	"Tornado":      weather.ConditionHaze,
	"Smoke":        weather.ConditionHaze,
}

func mapCondition(main string) weather.Condition {
	if c, ok := conditions[main]; ok {
		return c
	}
	return weather.ConditionUnknown
}

type currentWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Rain struct {
		OneHour   float64 `json:"1h"`
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	Dt int64 `json:"dt"`
}
