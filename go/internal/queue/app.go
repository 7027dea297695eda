package queue

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

// ItemRepository defines what the queue app needs from the repository
type ItemRepository interface {
	CreateItem(ctx context.Context, params CreateItemParams) (*models.ProductionItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.ProductionItem, error)
	CountItemsForTeam(ctx context.Context, roundID, teamID uuid.UUID) (int, error)
	EvaluateItem(ctx context.Context, id uuid.UUID, result models.ItemResult, reason *string, judge string, now time.Time) (*models.ProductionItem, error)
	ListReadyItems(ctx context.Context, roundID uuid.UUID) ([]models.ProductionItem, error)
	ListItemsForRound(ctx context.Context, roundID uuid.UUID) ([]models.ProductionItem, error)
}

// RoundReader supplies the round snapshot used for submission gating.
type RoundReader interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
}

// OutboxApp defines what the queue app needs from the outbox
type OutboxApp interface {
	InsertRoundEvent(ctx context.Context, eventType string, roundID uuid.UUID, payload []byte) error
}

// App moves items through producing -> ready -> evaluated and enforces the
// per-round per-team quota. Submission charges the quota at creation time;
// later rejection does not refund it.
type App struct {
	repo   ItemRepository
	rounds RoundReader
	outbox OutboxApp
	quota  int
	clock  clockwork.Clock
}

// NewApp creates a new queue App
func NewApp(repo ItemRepository, rounds RoundReader, outbox OutboxApp, quota int, clock clockwork.Clock) *App {
	return &App{
		repo:   repo,
		rounds: rounds,
		outbox: outbox,
		quota:  quota,
		clock:  clock,
	}
}

// Submit creates a team's item in READY status, gated on the round accepting
// submissions and the team's remaining quota.
func (a *App) Submit(ctx context.Context, req SubmitItemRequest) (*models.ProductionItem, error) {
	round, err := a.rounds.GetRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}

	if round.Status != models.RoundStatusActive || round.StartedAt == nil {
		return nil, fmt.Errorf("%w: round is %s", ErrRoundNotAccepting, round.Status)
	}
	if clocksync.RemainingSeconds(*round.StartedAt, round.TimeLimitSec, a.clock.Now()) <= 0 {
		return nil, fmt.Errorf("%w: time limit reached", ErrRoundNotAccepting)
	}

	count, err := a.repo.CountItemsForTeam(ctx, req.RoundID, req.TeamID)
	if err != nil {
		return nil, err
	}
	if count >= a.quota {
		return nil, fmt.Errorf("%w: %d of %d items used", ErrQuotaExceeded, count, a.quota)
	}

	item, err := a.repo.CreateItem(ctx, CreateItemParams{
		ID:       uuid.New(),
		RoundID:  req.RoundID,
		TeamID:   req.TeamID,
		FlavorID: req.FlavorID,
		Status:   models.ItemStatusReady,
	})
	if err != nil {
		return nil, err
	}

	a.emit(ctx, events.TypeItemSubmitted, item.RoundID, events.ItemSubmittedPayload{
		ItemID:    item.ID.String(),
		RoundID:   item.RoundID.String(),
		TeamID:    item.TeamID.String(),
		FlavorID:  item.FlavorID.String(),
		CreatedAt: item.CreatedAt,
	})

	log.Info().
		Str("item_id", item.ID.String()).
		Str("team_id", req.TeamID.String()).
		Int("team_count", count+1).
		Msg("item submitted")
	return item, nil
}

// Evaluate records a single terminal verdict. A rejection requires a reason;
// an approval must not carry one.
func (a *App) Evaluate(ctx context.Context, req EvaluateItemRequest) (*models.ProductionItem, error) {
	var reason *string
	switch req.Result {
	case models.ItemResultRejected:
		if req.Reason == "" {
			return nil, fmt.Errorf("rejection requires a reason")
		}
		reason = &req.Reason
	case models.ItemResultApproved:
		if req.Reason != "" {
			return nil, fmt.Errorf("approval must not carry a reason")
		}
	default:
		return nil, fmt.Errorf("invalid verdict: %s", req.Result)
	}

	judge := req.Judge
	if judge == "" {
		judge = models.EvaluatorManual
	}

	item, err := a.repo.EvaluateItem(ctx, req.ItemID, req.Result, reason, judge, a.clock.Now())
	if err != nil {
		return nil, err
	}

	a.emit(ctx, events.TypeItemEvaluated, item.RoundID, events.ItemEvaluatedPayload{
		ItemID:      item.ID.String(),
		RoundID:     item.RoundID.String(),
		TeamID:      item.TeamID.String(),
		Result:      string(item.Result),
		Reason:      req.Reason,
		EvaluatedBy: judge,
		EvaluatedAt: *item.EvaluatedAt,
	})

	log.Info().
		Str("item_id", item.ID.String()).
		Str("result", string(item.Result)).
		Msg("item evaluated")
	return item, nil
}

// ListReady returns the evaluation queue oldest-first.
func (a *App) ListReady(ctx context.Context, roundID uuid.UUID) ([]models.ProductionItem, error) {
	return a.repo.ListReadyItems(ctx, roundID)
}

// ListForRound returns every item of the round.
func (a *App) ListForRound(ctx context.Context, roundID uuid.UUID) ([]models.ProductionItem, error) {
	return a.repo.ListItemsForRound(ctx, roundID)
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
