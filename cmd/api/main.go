// Package main provides the entrypoint for the demand prediction API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/middleware"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/artifact"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/config"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/demand"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/logging"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "demand-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.New(cfg.Logging, os.Stdout).
		With().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Msg("starting demand prediction API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg, serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, closeStore, err := artifact.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open artifact store")
	}
	defer closeStore()

	state := loadState(ctx, store, log)

	demandService := demand.NewService(demand.ServiceConfig{
		State:              state,
		Logger:             log,
		Metrics:            demand.NewMetrics(registry),
		HeatmapConcurrency: cfg.Heatmap.Concurrency,
	})

	var rateLimit *middleware.RateLimitConfig
	if cfg.RateLimit.Enabled {
		rateLimit = &middleware.RateLimitConfig{
			RequestLimit: cfg.RateLimit.Requests,
			WindowLength: cfg.RateLimit.Window,
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		Logger:        log,
		ServiceName:   serviceName,
		Metrics:       httpMetrics,
		DemandService: demandService,
		Gatherer:      registry,
		CORSOrigins:   cfg.CORS.AllowedOrigins,
		RateLimit:     rateLimit,
		RequireTLS:    cfg.Server.RequireTLS,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Bool("model_loaded", demandService.Loaded()).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

// loadState loads the trained artifacts. Missing or unusable artifacts are
// logged and leave the service running without a model.
func loadState(ctx context.Context, store artifact.Store, log zerolog.Logger) *demand.State {
	bundle, err := store.Load(ctx)
	if errors.Is(err, artifact.ErrNotFound) {
		log.Warn().Err(err).Msg("model artifacts not found, serving without a model; run the trainer first")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load model artifacts, serving without a model")
		return nil
	}

	state, err := demand.NewState(bundle.Model, bundle.Encoders)
	if err != nil {
		log.Error().Err(err).Msg("model artifacts are unusable, serving without a model")
		return nil
	}

	log.Info().
		Str("kind", bundle.Model.Kind).
		Time("trained_at", bundle.Model.TrainedAt).
		Float64("mae", bundle.Model.Evaluation.MAE).
		Float64("r2", bundle.Model.Evaluation.R2).
		Msg("model loaded")
	return state
}
