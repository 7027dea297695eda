package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvcampos/gelateria/go/internal/events"
)

func stateEvent(t *testing.T, roundID uuid.UUID, eventType EventType, payload any) *RoundEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &RoundEvent{
		ID:        uuid.NewString(),
		RoundID:   roundID.String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func TestStateTracksRoundLifecycle(t *testing.T) {
	sm := NewRoundStateManager()
	roundID := uuid.New()

	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundCreated, events.RoundCreatedPayload{
		RoundID:      roundID.String(),
		TimeLimitSec: 300,
	})))

	state := sm.GetState(roundID)
	require.NotNil(t, state)
	assert.Equal(t, "AWAITING", state.Status)
	assert.Equal(t, 300, state.TimeLimitSec)
	// Pre-start the full budget remains, matching what the rounds API
	// reports for an AWAITING round.
	assert.Equal(t, 300, state.RemainingSec)

	startedAt := time.Now().Add(-30 * time.Second)
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundStarted, events.RoundStartedPayload{
		RoundID:      roundID.String(),
		StartedAt:    startedAt,
		TimeLimitSec: 300,
	})))

	state = sm.GetState(roundID)
	assert.Equal(t, "ACTIVE", state.Status)
	assert.InDelta(t, 270, state.RemainingSec, 2)

	finishedAt := time.Now()
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundFinished, events.RoundFinishedPayload{
		RoundID:    roundID.String(),
		FinishedAt: finishedAt,
	})))

	state = sm.GetState(roundID)
	assert.Equal(t, "FINISHED", state.Status)
	assert.Equal(t, 0, state.RemainingSec)
}

func TestStateRemainingFreezesWhilePaused(t *testing.T) {
	sm := NewRoundStateManager()
	roundID := uuid.New()

	startedAt := time.Now().Add(-60 * time.Second)
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundStarted, events.RoundStartedPayload{
		RoundID:      roundID.String(),
		StartedAt:    startedAt,
		TimeLimitSec: 300,
	})))

	pausedAt := time.Now().Add(-10 * time.Second)
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundPaused, events.RoundPausedPayload{
		RoundID:  roundID.String(),
		PausedAt: pausedAt,
	})))

	// Remaining is anchored to the pause instant, not to now.
	state := sm.GetState(roundID)
	assert.Equal(t, "PAUSED", state.Status)
	assert.InDelta(t, 250, state.RemainingSec, 2)

	// Resume ships a pause-compensated anchor.
	newAnchor := time.Now().Add(-50 * time.Second)
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundResumed, events.RoundResumedPayload{
		RoundID:   roundID.String(),
		ResumedAt: time.Now(),
		StartedAt: newAnchor,
	})))

	state = sm.GetState(roundID)
	assert.Equal(t, "ACTIVE", state.Status)
	assert.InDelta(t, 250, state.RemainingSec, 2)
}

func TestStateExtendAddsTime(t *testing.T) {
	sm := NewRoundStateManager()
	roundID := uuid.New()

	startedAt := time.Now()
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundStarted, events.RoundStartedPayload{
		RoundID:      roundID.String(),
		StartedAt:    startedAt,
		TimeLimitSec: 300,
	})))

	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundExtended, events.RoundExtendedPayload{
		RoundID:      roundID.String(),
		DeltaMin:     5,
		TimeLimitSec: 600,
	})))

	state := sm.GetState(roundID)
	assert.Equal(t, 600, state.TimeLimitSec)
	assert.InDelta(t, 600, state.RemainingSec, 2)
}

func TestStateCountsItems(t *testing.T) {
	sm := NewRoundStateManager()
	roundID := uuid.New()

	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundStarted, events.RoundStartedPayload{
		RoundID:      roundID.String(),
		StartedAt:    time.Now(),
		TimeLimitSec: 300,
	})))

	for i := 0; i < 3; i++ {
		require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeItemSubmitted, events.ItemSubmittedPayload{
			ItemID:  uuid.NewString(),
			RoundID: roundID.String(),
		})))
	}
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeItemEvaluated, events.ItemEvaluatedPayload{
		ItemID:  uuid.NewString(),
		RoundID: roundID.String(),
		Result:  "APPROVED",
	})))
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeItemsAutoRejected, events.ItemsAutoRejectedPayload{
		RoundID:       roundID.String(),
		RejectedCount: 2,
	})))

	state := sm.GetState(roundID)
	assert.Equal(t, 3, state.SubmittedItems)
	assert.Equal(t, 3, state.EvaluatedItems)
	assert.Equal(t, 2, state.AutoRejectedLast)
}

func TestStateUnknownRound(t *testing.T) {
	sm := NewRoundStateManager()
	assert.Nil(t, sm.GetState(uuid.New()))

	roundID := uuid.New()
	require.NoError(t, sm.ProcessEvent(stateEvent(t, roundID, EventTypeRoundCreated, events.RoundCreatedPayload{
		RoundID: roundID.String(),
	})))
	sm.RemoveState(roundID)
	assert.Nil(t, sm.GetState(roundID))
}

func TestStateRejectsMalformedEvent(t *testing.T) {
	sm := NewRoundStateManager()
	err := sm.ProcessEvent(&RoundEvent{
		ID:      uuid.NewString(),
		RoundID: "not-a-uuid",
		Type:    EventTypeRoundCreated,
		Data:    []byte(`{}`),
	})
	assert.Error(t, err)
}
