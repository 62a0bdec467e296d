// Package api provides the HTTP API for the demand prediction service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/handler"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/middleware"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/response"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/demand"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	Logger        zerolog.Logger
	ServiceName   string
	Metrics       *middleware.Metrics
	DemandService *demand.Service

	// Gatherer backs GET /metrics. Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	// CORSOrigins enables CORS when non-empty.
	CORSOrigins []string

	// RateLimit applies to prediction routes; the heatmap uses the stricter
	// middleware.HeatmapRateLimit. Nil disables rate limiting.
	RateLimit *middleware.RateLimitConfig

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "demand-api"
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r, r.Method+" is not allowed on "+r.URL.Path)
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.DemandService)
	demandHandler := handler.NewDemandHandler(cfg.DemandService, cfg.Logger)

	standardRateLimit := passthrough
	heatmapRateLimit := passthrough
	if cfg.RateLimit != nil {
		standardRateLimit = middleware.RateLimitByIP(*cfg.RateLimit)
		heatmapRateLimit = middleware.RateLimitByIP(middleware.HeatmapRateLimit)
	}

	r.Get("/health", opsHandler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/predict-demand", func(r chi.Router) {
		r.Use(standardRateLimit)
		r.Get("/", demandHandler.PredictUsage)
		r.With(demandHandler.RequireModel, middleware.RequireJSON).Post("/", demandHandler.PredictDemand)
	})

	r.With(heatmapRateLimit).Get("/demand-heatmap", demandHandler.DemandHeatmap)

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
