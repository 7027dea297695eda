package events

import (
	"encoding/json"
	"time"
)

// Event types carried over the change-notification feed. Subjects are
// "gelateria.events.<type>".
const (
	TypeRoundCreated      = "RoundCreated"
	TypeRoundStarted      = "RoundStarted"
	TypeRoundPaused       = "RoundPaused"
	TypeRoundResumed      = "RoundResumed"
	TypeRoundFinished     = "RoundFinished"
	TypeRoundExtended     = "RoundExtended"
	TypeItemSubmitted     = "ItemSubmitted"
	TypeItemEvaluated     = "ItemEvaluated"
	TypeItemsAutoRejected = "ItemsAutoRejected"
)

// Envelope is the wire format published to NATS by the outbox relay and
// consumed by every screen's realtime layer.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	RoundID   string          `json:"roundId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// RoundCreatedPayload is the payload for a RoundCreated event
type RoundCreatedPayload struct {
	RoundID          string `json:"round_id"`
	SequenceNumber   int    `json:"sequence_number"`
	TimeLimitSec     int    `json:"time_limit_sec"`
	PlannedItemCount int    `json:"planned_item_count"`
}

// RoundStartedPayload is the payload for a RoundStarted event
type RoundStartedPayload struct {
	RoundID      string    `json:"round_id"`
	StartedAt    time.Time `json:"started_at"`
	TimeLimitSec int       `json:"time_limit_sec"`
}

// RoundPausedPayload is the payload for a RoundPaused event
type RoundPausedPayload struct {
	RoundID  string    `json:"round_id"`
	PausedAt time.Time `json:"paused_at"`
}

// RoundResumedPayload is the payload for a RoundResumed event. StartedAt is
// the pause-compensated anchor clients must re-derive remaining time from.
type RoundResumedPayload struct {
	RoundID   string    `json:"round_id"`
	ResumedAt time.Time `json:"resumed_at"`
	StartedAt time.Time `json:"started_at"`
}

// RoundFinishedPayload is the payload for a RoundFinished event
type RoundFinishedPayload struct {
	RoundID    string    `json:"round_id"`
	FinishedAt time.Time `json:"finished_at"`
	Duration   string    `json:"duration"`
}

// RoundExtendedPayload is the payload for a RoundExtended event
type RoundExtendedPayload struct {
	RoundID      string `json:"round_id"`
	DeltaMin     int    `json:"delta_min"`
	TimeLimitSec int    `json:"time_limit_sec"`
}

// ItemSubmittedPayload is the payload for an ItemSubmitted event
type ItemSubmittedPayload struct {
	ItemID    string    `json:"item_id"`
	RoundID   string    `json:"round_id"`
	TeamID    string    `json:"team_id"`
	FlavorID  string    `json:"flavor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemEvaluatedPayload is the payload for an ItemEvaluated event
type ItemEvaluatedPayload struct {
	ItemID      string    `json:"item_id"`
	RoundID     string    `json:"round_id"`
	TeamID      string    `json:"team_id"`
	Result      string    `json:"result"`
	Reason      string    `json:"reason,omitempty"`
	EvaluatedBy string    `json:"evaluated_by"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// ItemsAutoRejectedPayload is the payload for the rejector's bulk pass.
type ItemsAutoRejectedPayload struct {
	RoundID       string    `json:"round_id"`
	RejectedCount int       `json:"rejected_count"`
	Reason        string    `json:"reason"`
	RejectedAt    time.Time `json:"rejected_at"`
}
