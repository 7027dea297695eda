package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for round connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	stateManager      *RoundStateManager
	warningThresholds []int
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, sm *RoundStateManager, warningThresholds []int) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		stateManager:      sm,
		warningThresholds: warningThresholds,
	}
}

// HandleRoundConnection handles WebSocket connections for a specific round
func (h *WebSocketHandler) HandleRoundConnection(w http.ResponseWriter, r *http.Request) {
	roundIDStr := r.URL.Query().Get("round_id")
	if roundIDStr == "" {
		http.Error(w, "round_id is required", http.StatusBadRequest)
		return
	}

	roundID, err := uuid.Parse(roundIDStr)
	if err != nil {
		http.Error(w, "invalid round_id format", http.StatusBadRequest)
		return
	}

	// Screen identifies which display is connecting (team, evaluator,
	// admin). In production this would come from a session.
	screen := r.URL.Query().Get("screen")
	if screen == "" {
		screen = "team"
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, screen, roundID)
	if err != nil {
		log.Error().
			Err(err).
			Str("round_id", roundID.String()).
			Str("screen", screen).
			Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}

	// Push the current round snapshot so a reconnecting screen can
	// rearm its countdown without waiting for the next event.
	if state := h.stateManager.GetState(roundID); state != nil {
		data, err := json.Marshal(map[string]any{
			"type":                   "RoundState",
			"data":                   state,
			"warning_thresholds_sec": h.warningThresholds,
		})
		if err != nil {
			log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to marshal round state")
			return
		}
		h.connectionManager.SendDirect(conn, data)
	}
}

// HandleRoundState returns the current snapshot of a round as JSON.
func (h *WebSocketHandler) HandleRoundState(w http.ResponseWriter, r *http.Request) {
	roundIDStr := r.URL.Query().Get("round_id")
	roundID, err := uuid.Parse(roundIDStr)
	if err != nil {
		http.Error(w, "invalid round_id format", http.StatusBadRequest)
		return
	}

	state := h.stateManager.GetState(roundID)
	if state == nil {
		http.Error(w, "round not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to encode round state")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, rounds := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// Simple JSON response
	w.Write([]byte("{"))
	w.Write([]byte("\"total_connections\":" + strconv.Itoa(total) + ","))
	w.Write([]byte("\"active_rounds\":" + strconv.Itoa(rounds)))
	w.Write([]byte("}"))
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/round", h.HandleRoundConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("/api/round/state", h.HandleRoundState)
}
