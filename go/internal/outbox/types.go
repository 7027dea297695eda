package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one pending or sent row of the round_outbox table.
type OutboxEvent struct {
	ID        uuid.UUID
	RoundID   uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
}

// EventPublisher pushes an outbox event onto the change feed.
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
