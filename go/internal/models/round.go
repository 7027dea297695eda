package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus defines the lifecycle status of a production round.
type RoundStatus string

const (
	RoundStatusAwaiting RoundStatus = "AWAITING"
	RoundStatusActive   RoundStatus = "ACTIVE"
	RoundStatusPaused   RoundStatus = "PAUSED"
	RoundStatusFinished RoundStatus = "FINISHED"
)

// Terminal reports whether the status admits no further transitions.
func (s RoundStatus) Terminal() bool {
	return s == RoundStatusFinished
}

// Round represents one timed production cycle. At most one round may be
// non-finished at any time; the shared store is authoritative for all fields.
type Round struct {
	ID               uuid.UUID   `json:"id"`
	SequenceNumber   int         `json:"sequence_number"`
	Status           RoundStatus `json:"status"`
	TimeLimitSec     int         `json:"time_limit_sec"`
	PlannedItemCount int         `json:"planned_item_count"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	PausedAt         *time.Time  `json:"paused_at,omitempty"`
	FinishedAt       *time.Time  `json:"finished_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
