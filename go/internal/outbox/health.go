package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthStatus is a point-in-time snapshot of the relay's moving parts.
type HealthStatus struct {
	Healthy           bool
	PendingEvents     int
	DatabaseConnected bool
	NATSConnected     bool
	ListenerActive    bool
	Errors            []string
}

// pendingAlertThreshold is the backlog size past which the relay is
// presumably not keeping up with the round's event volume.
const pendingAlertThreshold = 1000

// RelayHealthChecker inspects the relay's database connection, its NATS
// connection, and the listener loop.
type RelayHealthChecker struct {
	db        *sql.DB
	repo      *Repository
	publisher *JetStreamPublisher
	listener  *Listener
}

func NewRelayHealthChecker(db *sql.DB, repo *Repository, publisher *JetStreamPublisher, listener *Listener) *RelayHealthChecker {
	return &RelayHealthChecker{
		db:        db,
		repo:      repo,
		publisher: publisher,
		listener:  listener,
	}
}

func (h *RelayHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.DatabaseConnected = false
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.publisher != nil {
		status.NATSConnected = h.publisher.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	status.ListenerActive = h.listener.Active()
	if !status.ListenerActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "listener not active")
	}

	if status.DatabaseConnected {
		pending, err := h.repo.CountUnsentOutbox(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending
			if pending > pendingAlertThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	return status
}

func (h *RelayHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	response := map[string]interface{}{
		"healthy":            status.Healthy,
		"pending_events":     status.PendingEvents,
		"database_connected": status.DatabaseConnected,
		"nats_connected":     status.NATSConnected,
		"listener_active":    status.ListenerActive,
		"errors":             status.Errors,
	}

	w.Header().Set("Content-Type", "application/json")

	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}
