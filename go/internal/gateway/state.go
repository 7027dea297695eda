package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/clocksync"
	"github.com/mvcampos/gelateria/go/internal/events"
)

// RoundState is the snapshot pushed to a screen on (re)connect so it
// can rearm its timer without waiting for the next event.
type RoundState struct {
	RoundID          string     `json:"round_id"`
	Status           string     `json:"status"`
	TimeLimitSec     int        `json:"time_limit_sec"`
	RemainingSec     int        `json:"remaining_sec"`
	SubmittedItems   int        `json:"submitted_items"`
	EvaluatedItems   int        `json:"evaluated_items"`
	AutoRejectedLast int        `json:"auto_rejected_last"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	PausedAt         *time.Time `json:"paused_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// remaining recomputes the remaining seconds from the anchored
// timestamps; it never trusts a previously computed value.
func (s *RoundState) remaining(now time.Time) int {
	if s.FinishedAt != nil {
		return 0
	}
	if s.StartedAt == nil {
		// Not started yet: the full budget is still on the clock.
		return s.TimeLimitSec
	}
	anchor := *s.StartedAt
	if s.PausedAt != nil {
		now = *s.PausedAt
	}
	return clocksync.RemainingSeconds(anchor, s.TimeLimitSec, now)
}

// RoundStateManager tracks the live state of rounds from the event
// stream.
type RoundStateManager struct {
	mu     sync.RWMutex
	states map[uuid.UUID]*RoundState
}

func NewRoundStateManager() *RoundStateManager {
	return &RoundStateManager{
		states: make(map[uuid.UUID]*RoundState),
	}
}

// GetState returns a copy of the round's state with RemainingSec
// freshly derived, or nil if the round is unknown.
func (m *RoundStateManager) GetState(roundID uuid.UUID) *RoundState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[roundID]
	if !ok {
		return nil
	}
	c := *state
	c.RemainingSec = c.remaining(time.Now())
	return &c
}

// RemoveState drops a round's state (e.g. long after it finished).
func (m *RoundStateManager) RemoveState(roundID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, roundID)
}

// ProcessEvent folds an incoming event into the round's state.
func (m *RoundStateManager) ProcessEvent(event *RoundEvent) error {
	roundID, err := uuid.Parse(event.RoundID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[roundID]
	if !ok {
		state = &RoundState{RoundID: event.RoundID}
	}

	payload, err := ParseEventPayload(event)
	if err != nil {
		return err
	}

	switch event.Type {
	case EventTypeRoundCreated:
		p := payload.(events.RoundCreatedPayload)
		state.Status = "AWAITING"
		state.TimeLimitSec = p.TimeLimitSec

	case EventTypeRoundStarted:
		p := payload.(events.RoundStartedPayload)
		state.Status = "ACTIVE"
		state.TimeLimitSec = p.TimeLimitSec
		startedAt := p.StartedAt
		state.StartedAt = &startedAt
		state.PausedAt = nil

	case EventTypeRoundPaused:
		p := payload.(events.RoundPausedPayload)
		state.Status = "PAUSED"
		pausedAt := p.PausedAt
		state.PausedAt = &pausedAt

	case EventTypeRoundResumed:
		p := payload.(events.RoundResumedPayload)
		state.Status = "ACTIVE"
		// The resumed anchor is shifted forward by the paused duration.
		startedAt := p.StartedAt
		state.StartedAt = &startedAt
		state.PausedAt = nil

	case EventTypeRoundFinished:
		p := payload.(events.RoundFinishedPayload)
		state.Status = "FINISHED"
		finishedAt := p.FinishedAt
		state.FinishedAt = &finishedAt

	case EventTypeRoundExtended:
		p := payload.(events.RoundExtendedPayload)
		state.TimeLimitSec = p.TimeLimitSec

	case EventTypeItemSubmitted:
		state.SubmittedItems++

	case EventTypeItemEvaluated:
		state.EvaluatedItems++

	case EventTypeItemsAutoRejected:
		p := payload.(events.ItemsAutoRejectedPayload)
		state.EvaluatedItems += p.RejectedCount
		state.AutoRejectedLast = p.RejectedCount
	}

	m.states[roundID] = state
	return nil
}
