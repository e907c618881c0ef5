// Package api provides the control API handlers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/autoscale"
	"github.com/Atharva0045/cloud-autoscaler/internal/cloud"
)

// CycleEngine is the engine surface the handlers drive.
type CycleEngine interface {
	RunCycle(ctx context.Context) (*autoscale.CycleResult, error)
	CooldownRemaining() time.Duration
	CurrentInstance(ctx context.Context) (cloud.InstanceInfo, error)
}

// Handler handles control API requests.
type Handler struct {
	engine  CycleEngine
	dryRun  bool
	version string
	started time.Time
	logger  zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(engine CycleEngine, dryRun bool, version string, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		dryRun:  dryRun,
		version: version,
		started: time.Now(),
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// StatusResponse is the response for GET /status.
type StatusResponse struct {
	Status                   string              `json:"status"`
	Version                  string              `json:"version"`
	UptimeSeconds            int64               `json:"uptime_seconds"`
	DryRun                   bool                `json:"dry_run"`
	CooldownRemainingSeconds int64               `json:"cooldown_remaining_seconds"`
	Instance                 *cloud.InstanceInfo `json:"instance,omitempty"`
	InstanceError            string              `json:"instance_error,omitempty"`
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// Autoscale handles GET /autoscale. It triggers one full cycle and returns
// the cycle result. Absorbed execution failures still produce a 200; only a
// cycle that could not decide at all maps to an error status.
func (h *Handler) Autoscale(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.RunCycle(r.Context())
	if h.HandleError(w, err) {
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:                   "running",
		Version:                  h.version,
		UptimeSeconds:            int64(time.Since(h.started).Seconds()),
		DryRun:                   h.dryRun,
		CooldownRemainingSeconds: int64(h.engine.CooldownRemaining().Seconds()),
	}

	if info, err := h.engine.CurrentInstance(r.Context()); err != nil {
		resp.InstanceError = err.Error()
	} else {
		resp.Instance = &info
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
