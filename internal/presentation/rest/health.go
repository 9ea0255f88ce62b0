package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const readinessTimeout = 2 * time.Second

// Check reports whether one dependency can serve traffic.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandler serves liveness, readiness and metrics over HTTP.
type HealthHandler struct {
	service string
	checks  []Check
	metrics http.Handler
	logger  *slog.Logger
}

// NewHealthHandler creates the HTTP handler. metrics may be nil.
func NewHealthHandler(service string, metrics http.Handler, logger *slog.Logger, checks ...Check) *HealthHandler {
	return &HealthHandler{service: service, checks: checks, metrics: metrics, logger: logger}
}

// RegisterRoutes attaches the probe and metrics routes to the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.liveness)
	mux.HandleFunc("GET /readyz", h.readiness)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.service,
	})
}

func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	failing := map[string]string{}
	for _, c := range h.checks {
		if err := c.Probe(ctx); err != nil {
			h.logger.WarnContext(ctx, "readiness check failed", "check", c.Name, "error", err)
			failing[c.Name] = err.Error()
		}
	}
	if len(failing) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"service": h.service,
			"checks":  failing,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"service": h.service,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck
}
