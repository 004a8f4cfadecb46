package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/l5yth/potato-mesh/internal/bridge"
	"github.com/l5yth/potato-mesh/internal/models"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BridgeStatus exposes forwarding loop state to the HTTP surface.
type BridgeStatus interface {
	LastStatus() (bridge.Status, bool)
	Checkpoint() *models.Checkpoint
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	serverName string
	store      Pinger
	bridge     BridgeStatus
	logger     zerolog.Logger
}

// NewHandler creates a new Handler. store and status may be nil.
func NewHandler(serverName string, store Pinger, status BridgeStatus, logger zerolog.Logger) *Handler {
	return &Handler{
		serverName: serverName,
		store:      store,
		bridge:     status,
		logger:     logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Empty sends an empty JSON object, the only body appservice callbacks use.
func (h *Handler) Empty(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("{}"))
}

// NotFound answers unknown routes with 404 {}.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Empty(w, http.StatusNotFound)
}

// MethodNotAllowed answers known routes with the wrong method with 405 {}.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.Empty(w, http.StatusMethodNotAllowed)
}
