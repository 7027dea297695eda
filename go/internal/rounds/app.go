package rounds

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mvcampos/gelateria/go/internal/clocksync"
	"github.com/mvcampos/gelateria/go/internal/events"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// RoundRepository defines what the round app layer needs from the repository
type RoundRepository interface {
	CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error)
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	GetCurrentRound(ctx context.Context) (*models.Round, error)
	NextSequenceNumber(ctx context.Context) (int, error)
	ActivateRound(ctx context.Context, id uuid.UUID, now time.Time) (*models.Round, error)
	ResumeRound(ctx context.Context, id uuid.UUID, now time.Time) (*models.Round, error)
	PauseRound(ctx context.Context, id uuid.UUID, now time.Time) (*models.Round, error)
	FinishRound(ctx context.Context, id uuid.UUID, now time.Time) (*models.Round, bool, error)
	ExtendRound(ctx context.Context, id uuid.UUID, deltaSec int, now time.Time) (*models.Round, error)
}

// OutboxApp defines what the round app needs from the outbox
type OutboxApp interface {
	InsertRoundEvent(ctx context.Context, eventType string, roundID uuid.UUID, payload []byte) error
}

// SequencePlanner sets up a round's flavor sequence at creation time. The
// implementation must be idempotent so a racing second client is harmless.
type SequencePlanner interface {
	PlanForRound(ctx context.Context, round *models.Round) error
}

// App owns the round state machine: awaiting -> active <-> paused -> finished.
// Every successful mutation lands in the outbox so other screens observe it
// through the change feed; callers must not assume synchronous visibility.
type App struct {
	repo    RoundRepository
	outbox  OutboxApp
	planner SequencePlanner
	clock   clockwork.Clock
}

// NewApp creates a new round App
func NewApp(repo RoundRepository, outbox OutboxApp, planner SequencePlanner, clock clockwork.Clock) *App {
	return &App{
		repo:    repo,
		outbox:  outbox,
		planner: planner,
		clock:   clock,
	}
}

// CreateRound opens a new round in AWAITING and plans its flavor sequence.
// Fails with ErrRoundConflict while another round is still non-finished.
func (a *App) CreateRound(ctx context.Context, timeLimitSec, plannedItemCount int) (*models.Round, error) {
	if timeLimitSec <= 0 {
		return nil, fmt.Errorf("time_limit_sec must be greater than 0")
	}
	if plannedItemCount <= 0 {
		return nil, fmt.Errorf("planned_item_count must be greater than 0")
	}

	seq, err := a.repo.NextSequenceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	round, err := a.repo.CreateRound(ctx, CreateRoundRequest{
		ID:               uuid.New(),
		SequenceNumber:   seq,
		TimeLimitSec:     timeLimitSec,
		PlannedItemCount: plannedItemCount,
	})
	if err != nil {
		return nil, err
	}

	if err := a.planner.PlanForRound(ctx, round); err != nil {
		// The planner is idempotent and re-runs on the next read; the round
		// itself is already committed.
		log.Error().Err(err).Str("round_id", round.ID.String()).Msg("failed to plan flavor sequence")
	}

	a.emit(ctx, events.TypeRoundCreated, round.ID, events.RoundCreatedPayload{
		RoundID:          round.ID.String(),
		SequenceNumber:   round.SequenceNumber,
		TimeLimitSec:     round.TimeLimitSec,
		PlannedItemCount: round.PlannedItemCount,
	})

	log.Info().
		Str("round_id", round.ID.String()).
		Int("sequence_number", round.SequenceNumber).
		Int("time_limit_sec", round.TimeLimitSec).
		Msg("round created")
	return round, nil
}

// GetRound retrieves a round by ID
func (a *App) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	return a.repo.GetRound(ctx, id)
}

// GetCurrentRound retrieves the most recent round.
func (a *App) GetCurrentRound(ctx context.Context) (*models.Round, error) {
	return a.repo.GetCurrentRound(ctx)
}

// StartRound activates an awaiting or paused round. The first activation sets
// started_at; resuming shifts started_at forward by the paused duration so
// elapsed time excludes the pause.
func (a *App) StartRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	current, err := a.repo.GetRound(ctx, id)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()

	switch current.Status {
	case models.RoundStatusAwaiting:
		round, err := a.repo.ActivateRound(ctx, id, now)
		if err != nil {
			return nil, err
		}
		a.emit(ctx, events.TypeRoundStarted, round.ID, events.RoundStartedPayload{
			RoundID:      round.ID.String(),
			StartedAt:    *round.StartedAt,
			TimeLimitSec: round.TimeLimitSec,
		})
		log.Info().Str("round_id", id.String()).Msg("round started")
		return round, nil

	case models.RoundStatusPaused:
		round, err := a.repo.ResumeRound(ctx, id, now)
		if err != nil {
			return nil, err
		}
		a.emit(ctx, events.TypeRoundResumed, round.ID, events.RoundResumedPayload{
			RoundID:   round.ID.String(),
			ResumedAt: now,
			StartedAt: *round.StartedAt,
		})
		log.Info().Str("round_id", id.String()).Msg("round resumed")
		return round, nil

	default:
		return nil, fmt.Errorf("%w: cannot start round from %s", ErrInvalidTransition, current.Status)
	}
}

// PauseRound pauses an active round, recording the pause-start instant.
func (a *App) PauseRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	now := a.clock.Now()
	round, err := a.repo.PauseRound(ctx, id, now)
	if err != nil {
		return nil, err
	}

	a.emit(ctx, events.TypeRoundPaused, round.ID, events.RoundPausedPayload{
		RoundID:  round.ID.String(),
		PausedAt: now,
	})
	log.Info().Str("round_id", id.String()).Msg("round paused")
	return round, nil
}

// FinishRound terminates a round. Finishing an already-finished round is a
// no-op, not an error, so concurrent timeout triggers from multiple screens
// converge on a single finished_at value.
func (a *App) FinishRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	round, changed, err := a.repo.FinishRound(ctx, id, a.clock.Now())
	if err != nil {
		return nil, err
	}
	if !changed {
		log.Debug().Str("round_id", id.String()).Msg("round already finished")
		return round, nil
	}

	var duration string
	if round.StartedAt != nil {
		duration = round.FinishedAt.Sub(*round.StartedAt).String()
	}
	a.emit(ctx, events.TypeRoundFinished, round.ID, events.RoundFinishedPayload{
		RoundID:    round.ID.String(),
		FinishedAt: *round.FinishedAt,
		Duration:   duration,
	})
	log.Info().Str("round_id", id.String()).Msg("round finished")
	return round, nil
}

// ExtendRound adds deltaMin minutes to an active round's time limit. Negative
// deltas may shrink it, but never below the elapsed time already consumed
// plus one second.
func (a *App) ExtendRound(ctx context.Context, id uuid.UUID, deltaMin int) (*models.Round, error) {
	if deltaMin == 0 {
		return nil, fmt.Errorf("delta_min must be non-zero")
	}

	round, err := a.repo.ExtendRound(ctx, id, deltaMin*60, a.clock.Now())
	if err != nil {
		return nil, err
	}

	a.emit(ctx, events.TypeRoundExtended, round.ID, events.RoundExtendedPayload{
		RoundID:      round.ID.String(),
		DeltaMin:     deltaMin,
		TimeLimitSec: round.TimeLimitSec,
	})
	log.Info().
		Str("round_id", id.String()).
		Int("delta_min", deltaMin).
		Int("time_limit_sec", round.TimeLimitSec).
		Msg("round extended")
	return round, nil
}

// RemainingSeconds re-derives remaining time for a round from its persisted
// anchors and the current clock. Paused rounds freeze at the instant of pause.
func (a *App) RemainingSeconds(round *models.Round) int {
	if round.StartedAt == nil {
		return round.TimeLimitSec
	}
	switch round.Status {
	case models.RoundStatusFinished:
		return 0
	case models.RoundStatusPaused:
		if round.PausedAt != nil {
			return clocksync.RemainingSeconds(*round.StartedAt, round.TimeLimitSec, *round.PausedAt)
		}
	}
	return clocksync.RemainingSeconds(*round.StartedAt, round.TimeLimitSec, a.clock.Now())
}

func (a *App) emit(ctx context.Context, eventType string, roundID uuid.UUID, payload any) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}
	if err := a.outbox.InsertRoundEvent(ctx, eventType, roundID, payloadBytes); err != nil {
		// Don't fail the operation, just log.
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to insert outbox event")
	}
}
