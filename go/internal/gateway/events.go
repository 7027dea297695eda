package gateway

import (
	"encoding/json"
	"time"

	"github.com/mvcampos/gelateria/go/internal/events"
)

// RoundEvent is the frame pushed to websocket clients.
type RoundEvent struct {
	ID        string          `json:"id"`        // Event UUID
	RoundID   string          `json:"round_id"`  // Round UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of round event
type EventType string

const (
	EventTypeRoundCreated      EventType = "RoundCreated"
	EventTypeRoundStarted      EventType = "RoundStarted"
	EventTypeRoundPaused       EventType = "RoundPaused"
	EventTypeRoundResumed      EventType = "RoundResumed"
	EventTypeRoundFinished     EventType = "RoundFinished"
	EventTypeRoundExtended     EventType = "RoundExtended"
	EventTypeItemSubmitted     EventType = "ItemSubmitted"
	EventTypeItemEvaluated     EventType = "ItemEvaluated"
	EventTypeItemsAutoRejected EventType = "ItemsAutoRejected"
)

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *RoundEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeRoundCreated:
		var payload events.RoundCreatedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundStarted:
		var payload events.RoundStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundPaused:
		var payload events.RoundPausedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundResumed:
		var payload events.RoundResumedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundFinished:
		var payload events.RoundFinishedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundExtended:
		var payload events.RoundExtendedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeItemSubmitted:
		var payload events.ItemSubmittedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeItemEvaluated:
		var payload events.ItemEvaluatedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeItemsAutoRejected:
		var payload events.ItemsAutoRejectedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
