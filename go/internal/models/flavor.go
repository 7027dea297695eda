package models

import (
	"time"

	"github.com/google/uuid"
)

// Flavor is an entry in the production catalog.
type Flavor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// FlavorSequenceEntry pins one flavor to one ordinal position of a round's
// planned production sequence. Entries are written once at round setup and are
// immutable afterwards; ordinals within a round are contiguous starting at 0.
type FlavorSequenceEntry struct {
	ID       uuid.UUID `json:"id"`
	RoundID  uuid.UUID `json:"round_id"`
	FlavorID uuid.UUID `json:"flavor_id"`
	Ordinal  int       `json:"ordinal"`
}
