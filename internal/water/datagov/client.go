// Package datagov fetches the bulk water-quality dataset from the data.gov.in resource API.
package datagov

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/provider/resilience"
	"github.com/outbreakwatch/outbreakwatch/internal/water"
)

const (
	// DefaultBaseURL is the data.gov.in resource API base URL.
	DefaultBaseURL = "https://api.data.gov.in/resource"

	// ProviderName identifies this provider.
	ProviderName = "datagov"

	// DefaultPageSize is the number of records requested per page.
	DefaultPageSize = 500

	// DefaultMaxPages bounds a single dataset pull.
	DefaultMaxPages = 10
)

// ClientConfig holds configuration for the data.gov.in client.
type ClientConfig struct {
	// APIKey is the data.gov.in API key (required).
	APIKey string

	// ResourceID is the dataset resource identifier (required).
	ResourceID string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// PageSize is the limit per request (default: 500).
	PageSize int

	// MaxPages caps pagination (default: 10).
	MaxPages int

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Registry tracks provider health when the default client is built.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a data.gov.in resource API client.
type Client struct {
	apiKey     string
	resourceID string
	baseURL    string
	pageSize   int
	maxPages   int
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new data.gov.in client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         15 * time.Second,
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Registry:        cfg.Registry,
			Logger:          cfg.Logger,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		resourceID: cfg.ResourceID,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		pageSize:   pageSize,
		maxPages:   maxPages,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchAll pulls the dataset page by page until a short page or the page cap.
func (c *Client) FetchAll(ctx context.Context) ([]water.Record, error) {
	var all []water.Record

	for page := 0; page < c.maxPages; page++ {
		records, err := c.fetchPage(ctx, page*c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)

		if len(records) < c.pageSize {
			return all, nil
		}
	}

	c.logger.Debug().
		Int("max_pages", c.maxPages).
		Int("records", len(all)).
		Msg("water dataset truncated at page cap")

	return all, nil
}

// fetchPage fetches a single page of records.
func (c *Client) fetchPage(ctx context.Context, offset int) ([]water.Record, error) {
	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("format", "json")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(c.pageSize))

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(c.resourceID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.UpstreamError{Provider: ProviderName, StatusCode: resp.StatusCode}
	}

	var result resourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode resource response: %w", err)
	}

	records := make([]water.Record, 0, len(result.Records))
	for _, raw := range result.Records {
		records = append(records, toRecord(raw))
	}
	return records, nil
}

// Field aliases seen across dataset revisions, in lookup order.
var (
	stationCodeFields = []string{"station_code", "stn_code", "stationcode"}
	stationNameFields = []string{"station_name", "name_of_monitoring_location", "location"}
	stateFields       = []string{"state_name", "state"}
	districtFields    = []string{"district_name", "district"}
	parameterFields   = []string{"parameter", "quality_parameter", "parameter_name"}
	valueFields       = []string{"value", "parameter_value", "reading"}
)

// toRecord maps a raw row to a Record, stringifying numeric cells.
func toRecord(raw map[string]any) water.Record {
	return water.Record{
		StationCode: pick(raw, stationCodeFields),
		StationName: pick(raw, stationNameFields),
		State:       pick(raw, stateFields),
		District:    pick(raw, districtFields),
		Parameter:   pick(raw, parameterFields),
		Value:       pick(raw, valueFields),
	}
}

func pick(raw map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

// API response types.

type resourceResponse struct {
	Total   int              `json:"total"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records"`
}
