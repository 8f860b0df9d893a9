// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Upstream credentials. An empty key disables that provider and the
	// aggregator reports it as fallback.
	OpenWeatherKey    string
	WeatherAPIKey     string
	DataGovKey        string
	DataGovResourceID string
	WaterMaxPages     int

	// Aggregation tuning.
	Concurrency     int
	UpstreamTimeout time.Duration
	CacheTTL        time.Duration

	// Regions restricts the monitored catalog. Empty means every default region.
	Regions []string

	// Alerts.
	TelegramToken   string
	TelegramChatIDs []int64

	// Worker triggers.
	WorkerSchedule     string
	PubSubProjectID    string
	PubSubSubscription string

	// Snapshot persistence is enabled when DB_HOST or DATABASE_URL is set.
	DatabaseEnabled bool

	// RequireTLS rejects plain-HTTP requests that did not arrive through a TLS proxy.
	RequireTLS bool

	OTelEnabled  bool
	OTLPEndpoint string

	// TraceSampleRatio is the fraction of root traces kept (0, 1].
	TraceSampleRatio float64
}

// Load reads configuration from the environment, applying defaults where unset.
// A .env file in the working directory is loaded first when present; it never
// overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	waterMaxPages, err := positiveInt("WATER_MAX_PAGES", 10)
	if err != nil {
		return nil, err
	}

	concurrency, err := positiveInt("AGGREGATE_CONCURRENCY", 6)
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := positiveDuration("UPSTREAM_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := positiveDuration("CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	sampleRatio, err := ratio("OTEL_TRACES_SAMPLER_ARG", 1)
	if err != nil {
		return nil, err
	}

	chatIDs, err := parseChatIDs(os.Getenv("TELEGRAM_CHAT_IDS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:     envOrDefault("APP_PORT", "8080"),
		Env:      envOrDefault("APP_ENV", "development"),
		LogLevel: envOrDefault("LOG_LEVEL", "info"),

		OpenWeatherKey:    os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIKey:     os.Getenv("WEATHERAPI_KEY"),
		DataGovKey:        os.Getenv("DATAGOV_API_KEY"),
		DataGovResourceID: os.Getenv("DATAGOV_RESOURCE_ID"),
		WaterMaxPages:     waterMaxPages,

		Concurrency:     concurrency,
		UpstreamTimeout: upstreamTimeout,
		CacheTTL:        cacheTTL,

		Regions: splitList(os.Getenv("REGIONS")),

		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatIDs: chatIDs,

		WorkerSchedule:     envOrDefault("WORKER_SCHEDULE", "@hourly"),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),

		DatabaseEnabled: os.Getenv("DB_HOST") != "" || os.Getenv("DATABASE_URL") != "",

		RequireTLS: os.Getenv("REQUIRE_TLS") == "true",

		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint: envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		TraceSampleRatio: sampleRatio,
	}

	if cfg.DataGovKey != "" && cfg.DataGovResourceID == "" {
		return nil, errors.New("DATAGOV_API_KEY is set but DATAGOV_RESOURCE_ID is not")
	}
	if cfg.TelegramToken != "" && len(cfg.TelegramChatIDs) == 0 {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is set but TELEGRAM_CHAT_IDS is empty")
	}
	if cfg.PubSubSubscription != "" && cfg.PubSubProjectID == "" {
		return nil, errors.New("PUBSUB_SUBSCRIPTION is set but PUBSUB_PROJECT_ID is not")
	}
	if _, err := cron.ParseStandard(cfg.WorkerSchedule); err != nil {
		return nil, fmt.Errorf("invalid WORKER_SCHEDULE: %w", err)
	}

	return cfg, nil
}

// HasWater reports whether the water dataset can be fetched.
func (c *Config) HasWater() bool {
	return c.DataGovKey != "" && c.DataGovResourceID != ""
}

// HasAlerts reports whether Telegram alerts are configured.
func (c *Config) HasAlerts() bool {
	return c.TelegramToken != "" && len(c.TelegramChatIDs) > 0
}

// HasPubSub reports whether the Pub/Sub trigger is configured.
func (c *Config) HasPubSub() bool {
	return c.PubSubProjectID != "" && c.PubSubSubscription != ""
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func positiveDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func ratio(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > 1 {
		return 0, fmt.Errorf("invalid %s: must be a number in (0, 1]", key)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseChatIDs(s string) ([]int64, error) {
	parts := splitList(s)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_IDS entry %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
