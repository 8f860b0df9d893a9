// Package api provides the HTTP API for outbreak risk reports.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/api/handler"
	"github.com/outbreakwatch/outbreakwatch/internal/api/middleware"
	"github.com/outbreakwatch/outbreakwatch/internal/provider/resilience"
	"github.com/outbreakwatch/outbreakwatch/internal/snapshot"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string

	// Metrics records OpenTelemetry HTTP metrics (optional).
	Metrics *middleware.Metrics

	// PrometheusHandler serves /metrics (default: promhttp.Handler()).
	PrometheusHandler http.Handler

	Aggregator handler.Aggregator

	// Snapshots backs /v1/risk/history (optional).
	Snapshots snapshot.Repository

	Registry *resilience.Registry
	Checks   []handler.ReadinessCheck

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "outbreakwatch-api"
	}

	// Order matters: request ID first so every later layer can log it.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	promHandler := cfg.PrometheusHandler
	if promHandler == nil {
		promHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", promHandler)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Checks:    cfg.Checks,
	})
	riskHandler := handler.NewRiskHandler(cfg.Aggregator, cfg.Snapshots, cfg.Logger)

	aggregateRateLimit := middleware.RateLimitByIP(middleware.AggregateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.ReadLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/risk", func(r chi.Router) {
			r.With(aggregateRateLimit).Get("/states", riskHandler.ListStates)
			r.With(aggregateRateLimit).Get("/states/{state}", riskHandler.GetState)
			r.With(standardRateLimit).Get("/history", riskHandler.History)
		})
	})

	return r
}
