// Package main provides the entrypoint for the OutbreakWatch refresh worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/alert"
	"github.com/outbreakwatch/outbreakwatch/internal/alert/telegram"
	"github.com/outbreakwatch/outbreakwatch/internal/api/middleware"
	"github.com/outbreakwatch/outbreakwatch/internal/api/response"
	"github.com/outbreakwatch/outbreakwatch/internal/app"
	"github.com/outbreakwatch/outbreakwatch/internal/config"
	"github.com/outbreakwatch/outbreakwatch/internal/telemetry"
	"github.com/outbreakwatch/outbreakwatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	serviceName = "outbreakwatch-worker"

	// memorySnapshots is how many passes the worker keeps without a database,
	// enough to diff levels between runs.
	memorySnapshots = 24
)

func main() {
	if err := run(); err != nil {
		logger := zerolog.New(os.Stderr)
		logger.Fatal().Err(err).Msg("worker exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := app.NewLogger(serviceName, Version, cfg.LogLevel)
	log.Info().
		Str("build_time", BuildTime).
		Str("schedule", cfg.WorkerSchedule).
		Msg("starting OutbreakWatch worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	pipeline, err := app.NewPipeline(cfg, log, app.Options{})
	if err != nil {
		return err
	}

	store, err := app.OpenStore(ctx, cfg, log, memorySnapshots)
	if err != nil {
		return err
	}
	defer store.Close()

	var notifier *alert.Notifier
	if cfg.HasAlerts() {
		sender, err := telegram.NewSender(cfg.TelegramToken, cfg.TelegramChatIDs, log.With().Str("component", "telegram").Logger())
		if err != nil {
			return err
		}
		notifier = alert.NewNotifier(alert.NotifierConfig{
			Sender:  sender,
			Logger:  log.With().Str("component", "alert").Logger(),
			Metrics: pipeline.Metrics,
		})
		log.Info().Int("chats", len(cfg.TelegramChatIDs)).Msg("telegram alerts enabled")
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set; alerts disabled")
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:     worker.DefaultRefreshConfig(),
		Logger:     log.With().Str("component", "refresh").Logger(),
		Aggregator: pipeline.Aggregator,
		Repository: store.Repository,
		Notifier:   notifier,
		Metrics:    pipeline.Metrics,
	})

	scheduler, err := worker.NewScheduler(cfg.WorkerSchedule, job, log.With().Str("component", "scheduler").Logger())
	if err != nil {
		return err
	}
	scheduler.Start()

	var pubsubHandler *worker.PubSubHandler
	if cfg.HasPubSub() {
		pubsubHandler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			RefreshJob:       job,
			Logger:           log.With().Str("component", "pubsub").Logger(),
		})
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := pubsubHandler.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	// Cloud Run needs a listening port even for background work.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"refresh": job.StatsSnapshot(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down worker")
	case err := <-serverErr:
		log.Error().Err(err).Msg("health server failed")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("scheduler did not stop cleanly")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
	return nil
}
