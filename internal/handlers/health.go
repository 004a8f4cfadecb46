package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/l5yth/potato-mesh/internal/models"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string             `json:"status"` // "healthy" or "degraded"
	Version    string             `json:"version"`
	Instance   string             `json:"instance,omitempty"`
	Checks     map[string]Check   `json:"checks"`
	Checkpoint *models.Checkpoint `json:"checkpoint,omitempty"`
	LastPoll   string             `json:"last_poll,omitempty"`
	Timestamp  string             `json:"timestamp"`
}

// Health reports checkpoint store reachability and the last poll outcome.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	if h.store != nil {
		start := time.Now()
		if err := h.store.Ping(ctx); err != nil {
			checks["checkpoint_store"] = Check{Status: "fail", Message: "unreachable"}
			allHealthy = false
		} else {
			checks["checkpoint_store"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	}

	resp := HealthResponse{
		Version:   Version,
		Instance:  os.Getenv("HOSTNAME"),
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.bridge != nil {
		resp.Checkpoint = h.bridge.Checkpoint()
		status, polled := h.bridge.LastStatus()
		switch {
		case !polled:
			checks["poll"] = Check{Status: "pass", Message: "no poll completed yet"}
		case status.Err != "":
			checks["poll"] = Check{Status: "fail", Message: status.Err}
			allHealthy = false
		default:
			checks["poll"] = Check{Status: "pass"}
		}
		if polled {
			resp.LastPoll = status.At.UTC().Format(time.RFC3339)
		}
	}

	resp.Status = "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, resp)
}
