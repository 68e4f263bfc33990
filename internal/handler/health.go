package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/actuallystonmai/beer-recommender/internal/logging"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency checked by Health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WithHealthChecks sets the dependencies Health checks. A nil Pinger is
// reported as unchecked.
func (h *Handler) WithHealthChecks(db, cache Pinger) *Handler {
	h.db, h.cache = db, cache
	return h
}

// Health reports 503 when the ratings store is unreachable. A failing cache
// only degrades the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:   "healthy",
		Database: checkDependency(ctx, "database", h.db),
		Cache:    checkDependency(ctx, "cache", h.cache),
	}
	status := http.StatusOK
	switch {
	case resp.Database == depDown:
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	case resp.Cache == depDown:
		resp.Status = "degraded"
	}
	writeJSON(w, status, resp)
}

const (
	depUp        = "up"
	depDown      = "down"
	depUnchecked = "unchecked"
)

func checkDependency(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return depUnchecked
	}
	if err := p.Ping(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("dependency", name).Msg("[handler] health check failed")
		return depDown
	}
	return depUp
}
