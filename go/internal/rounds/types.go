package rounds

import (
	"github.com/google/uuid"
)

// CreateRoundRequest carries everything needed to open a new round.
type CreateRoundRequest struct {
	ID               uuid.UUID
	SequenceNumber   int
	TimeLimitSec     int
	PlannedItemCount int
}
