package models

import (
	"time"

	"github.com/google/uuid"
)

// Team (equipe) is a producing team. Balance bookkeeping lives outside the
// round core; the quota gate only needs per-round item counts.
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}
