package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pratik-mahalle/usagepulse/internal/api/handlers"
	"github.com/pratik-mahalle/usagepulse/internal/api/middleware"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/metrics"
)

// Handlers groups the handlers mounted on the operational server
type Handlers struct {
	Health *handlers.HealthHandler
}

// New builds the operational router: probes and the Prometheus scrape endpoint
func New(log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log, "/health", "/healthz", "/readyz", "/metrics"))
	r.Use(middleware.Recovery(log))
	r.Use(chimiddleware.StripSlashes)
	r.Use(metrics.Middleware)

	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
