package queue

import (
	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
)

// SubmitItemRequest carries a team's submission of one produced item.
type SubmitItemRequest struct {
	TeamID   uuid.UUID
	RoundID  uuid.UUID
	FlavorID uuid.UUID
}

// EvaluateItemRequest carries an evaluator's verdict on one item.
type EvaluateItemRequest struct {
	ItemID uuid.UUID
	Result models.ItemResult
	Reason string
	Judge  string
}

// CreateItemParams is the repository-level insert shape.
type CreateItemParams struct {
	ID       uuid.UUID
	RoundID  uuid.UUID
	TeamID   uuid.UUID
	FlavorID uuid.UUID
	Status   models.ItemStatus
}
