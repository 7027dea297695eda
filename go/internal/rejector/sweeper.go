package rejector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mvcampos/gelateria/go/internal/events"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TimeoutReason is the system-generated reason written on every item
// rejected by the sweep.
const TimeoutReason = "not evaluated before round deadline"

// DefaultGraceWindow is how long after a round finishes that pending
// items may still receive a manual verdict.
const DefaultGraceWindow = 60 * time.Second

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// SweepSource reads rounds that are candidates for the timeout sweep.
type SweepSource interface {
	FetchNextSweepDeadline(ctx context.Context) (*SweepDeadline, error)
	FetchRoundsDueForSweep(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// ItemSweeper is what the sweeper needs from the production queue.
type ItemSweeper interface {
	BulkRejectReady(ctx context.Context, roundID uuid.UUID, reason, judge string, now time.Time) (int, error)
}

// OutboxApp defines what the sweeper needs from the outbox app.
type OutboxApp interface {
	InsertRoundEvent(ctx context.Context, eventType string, roundID uuid.UUID, payload []byte) error
}

// Sweeper mass-rejects every still-ready item of a finished round once
// the grace window elapses. The bulk update's predicate makes the sweep
// idempotent: concurrent sweepers race on the same conditional UPDATE
// and only one sees affected rows.
type Sweeper struct {
	source     SweepSource
	items      ItemSweeper
	outboxApp  OutboxApp
	grace      time.Duration
	batchSize  int
	clock      Clock
	wakeCh     chan struct{}
	instanceID string
}

// NewSweeper creates a timeout sweeper with the given grace window.
func NewSweeper(source SweepSource, items ItemSweeper, outboxApp OutboxApp, grace time.Duration) *Sweeper {
	return &Sweeper{
		source:     source,
		items:      items,
		outboxApp:  outboxApp,
		grace:      grace,
		batchSize:  20,
		clock:      clockwork.NewRealClock(),
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8],
	}
}

// Wake nudges the scheduler loop, e.g. after a round just finished and
// its grace deadline may be sooner than the one being waited on.
func (s *Sweeper) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run loops forever, sleeping until the next grace deadline and firing
// sweeps. It returns when the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	log.Info().Str("instance", s.instanceID).Dur("grace", s.grace).Msg("timeout sweeper started")

	timer := s.clock.NewTimer(0)
	defer timer.Stop()

	const idlePollDuration = 5 * time.Second

	for {
		select {
		case <-s.wakeCh:
			log.Debug().Str("instance", s.instanceID).Msg("drained wake channel")
		default:
		}

		sd, err := s.source.FetchNextSweepDeadline(ctx)
		if err != nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching next sweep deadline")
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if sd == nil {
			timer.Reset(idlePollDuration)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during idle")
				return nil
			case <-s.wakeCh:
				log.Debug().Str("instance", s.instanceID).Msg("woken up from idle")
				continue
			}
		}

		deadline := sd.FinishedAt.Add(s.grace)
		wait := deadline.Sub(s.clock.Now())
		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during wait")
				return nil
			case <-s.wakeCh:
				log.Debug().Str("instance", s.instanceID).Msg("woken up early")
				continue
			}
		}

		now := s.clock.Now()
		due, err := s.source.FetchRoundsDueForSweep(ctx, now.Add(-s.grace), s.batchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching rounds due for sweep")
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		for _, roundID := range due {
			if err := s.SweepRound(ctx, roundID); err != nil {
				log.Error().Err(err).Str("round_id", roundID.String()).Str("instance", s.instanceID).Msg("sweep failed")
			}
		}
	}
}

// SweepRound rejects every still-ready item of the round in one atomic
// update. Invoking it again, or concurrently from another instance,
// matches zero rows and emits nothing.
func (s *Sweeper) SweepRound(ctx context.Context, roundID uuid.UUID) error {
	now := s.clock.Now()
	count, err := s.items.BulkRejectReady(ctx, roundID, TimeoutReason, models.EvaluatorSystem, now)
	if err != nil {
		return err
	}
	if count == 0 {
		log.Debug().Str("round_id", roundID.String()).Str("instance", s.instanceID).Msg("nothing to sweep")
		return nil
	}

	log.Info().
		Str("round_id", roundID.String()).
		Int("rejected", count).
		Str("instance", s.instanceID).
		Msg("auto-rejected timed-out items")

	payload := events.ItemsAutoRejectedPayload{
		RoundID:       roundID.String(),
		RejectedCount: count,
		Reason:        TimeoutReason,
		RejectedAt:    now,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to marshal ItemsAutoRejected payload")
		return nil
	}
	if err := s.outboxApp.InsertRoundEvent(ctx, events.TypeItemsAutoRejected, roundID, payloadBytes); err != nil {
		log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to emit ItemsAutoRejected event")
		// Don't fail the operation, just log the error
	}
	return nil
}
