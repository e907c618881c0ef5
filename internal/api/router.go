// Package api provides the control API router.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/metrics"
)

// RouterConfig holds configuration for the API router.
type RouterConfig struct {
	// RequestTimeout bounds handler execution. A full live cycle stops and
	// starts an instance, so this must cover the lifecycle wait.
	RequestTimeout time.Duration
	// Stats is the Prometheus registry wrapper (optional).
	Stats *metrics.Metrics
}

// NewRouter creates a new control API router.
func NewRouter(handler *Handler, logger zerolog.Logger, config RouterConfig) *chi.Mux {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 5 * time.Minute
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(NewMetricsMiddleware(config.Stats))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(config.RequestTimeout))

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/autoscale", handler.Autoscale)
	r.Get("/status", handler.Status)

	return r
}
