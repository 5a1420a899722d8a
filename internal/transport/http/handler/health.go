package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const readinessTimeout = 3 * time.Second

// HealthHandler handles liveness and readiness probes.
type HealthHandler struct {
	checks map[string]func(ctx context.Context) error
}

func NewHealthHandler(checks map[string]func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Ping answers "ping" with pong and "ready" with the result of every
// registered component check.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "ready":
		h.ready(w, r)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *HealthHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	env := ReadinessEnvelope{Status: "ok", Components: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "component", name, "err", err)
			env.Components[name] = "down"
			env.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		env.Components[name] = "up"
	}
	writeJSON(w, status, env)
}
