package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/utils"
)

// Check reports whether a dependency is reachable
type Check func(ctx context.Context) error

// HealthHandler handles health check requests
type HealthHandler struct {
	checks map[string]Check
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler. checks are run by the readiness probe.
func NewHealthHandler(checks map[string]Check, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: log,
	}
}

// Healthz handles liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles readiness probe
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := map[string]string{"status": "ready"}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WithFields(map[string]interface{}{
				"dependency": name,
			}).ErrorWithErr(err, "Readiness check failed")
			utils.WriteError(w, errors.ServiceUnavailable(name+" unavailable"))
			return
		}
		status[name] = "connected"
	}

	utils.WriteSuccess(w, http.StatusOK, status)
}
