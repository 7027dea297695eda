package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus defines where a production item sits in the evaluation funnel.
type ItemStatus string

const (
	ItemStatusProducing ItemStatus = "PRODUCING"
	ItemStatusReady     ItemStatus = "READY"
	ItemStatusEvaluated ItemStatus = "EVALUATED"
)

// ItemResult is the terminal verdict of an evaluation. It is meaningful only
// once the item status is EVALUATED and never changes afterwards.
type ItemResult string

const (
	ItemResultNone     ItemResult = "NONE"
	ItemResultApproved ItemResult = "APPROVED"
	ItemResultRejected ItemResult = "REJECTED"
)

// Evaluator markers stored alongside a verdict, distinguishing a manual
// decision from the timeout rejector's bulk pass.
const (
	EvaluatorManual = "manual"
	EvaluatorSystem = "system:timeout"
)

// ProductionItem is one unit produced by a team within a round. An item counts
// toward the team's round quota from the moment it is created.
type ProductionItem struct {
	ID              uuid.UUID  `json:"id"`
	RoundID         uuid.UUID  `json:"round_id"`
	TeamID          uuid.UUID  `json:"team_id"`
	FlavorID        uuid.UUID  `json:"flavor_id"`
	Status          ItemStatus `json:"status"`
	Result          ItemResult `json:"result"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	EvaluatedBy     *string    `json:"evaluated_by,omitempty"`
	EvaluatedAt     *time.Time `json:"evaluated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
