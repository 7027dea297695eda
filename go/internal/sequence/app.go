package sequence

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mvcampos/gelateria/go/internal/clocksync"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SelectionPolicy controls how flavors are drawn from the catalog when a
// round's sequence is planned. It is a configuration knob, not a correctness
// invariant.
type SelectionPolicy string

const (
	PolicyRoundRobin SelectionPolicy = "round_robin"
	PolicyRandom     SelectionPolicy = "random"
)

// SequenceRepository defines what the sequence app needs from the repository
type SequenceRepository interface {
	CountEntries(ctx context.Context, roundID uuid.UUID) (int, error)
	CreateEntries(ctx context.Context, entries []models.FlavorSequenceEntry) error
	ListEntries(ctx context.Context, roundID uuid.UUID) ([]models.FlavorSequenceEntry, error)
}

// FlavorCatalog supplies the active flavors available for sequencing.
type FlavorCatalog interface {
	ListActiveFlavors(ctx context.Context) ([]models.Flavor, error)
}

// Window is the time-driven view over a round's sequence: the entry being
// produced now, the two that follow, and everything already behind the cursor.
type Window struct {
	Cursor    int                          `json:"cursor"`
	Current   *models.FlavorSequenceEntry  `json:"current,omitempty"`
	Next      *models.FlavorSequenceEntry  `json:"next,omitempty"`
	AfterNext *models.FlavorSequenceEntry  `json:"after_next,omitempty"`
	Past      []models.FlavorSequenceEntry `json:"past,omitempty"`
}

// App plans and reads per-round flavor sequences. The cursor is derived from
// elapsed time alone, never from production events, so every screen lands on
// the same position without coordination.
type App struct {
	repo    SequenceRepository
	catalog FlavorCatalog
	policy  SelectionPolicy
	clock   clockwork.Clock
}

// NewApp creates a new sequence App
func NewApp(repo SequenceRepository, catalog FlavorCatalog, policy SelectionPolicy, clock clockwork.Clock) *App {
	return &App{
		repo:    repo,
		catalog: catalog,
		policy:  policy,
		clock:   clock,
	}
}

// PlanForRound generates the round's N sequence entries with ordinals 0..N-1.
// If any entries already exist the whole setup is skipped, so a second client
// racing to start the same round is harmless.
func (a *App) PlanForRound(ctx context.Context, round *models.Round) error {
	existing, err := a.repo.CountEntries(ctx, round.ID)
	if err != nil {
		return fmt.Errorf("failed to check existing sequence: %w", err)
	}
	if existing > 0 {
		log.Debug().
			Str("round_id", round.ID.String()).
			Int("entries", existing).
			Msg("sequence already planned, skipping")
		return nil
	}

	flavors, err := a.catalog.ListActiveFlavors(ctx)
	if err != nil {
		return fmt.Errorf("failed to load flavor catalog: %w", err)
	}
	if len(flavors) == 0 {
		return fmt.Errorf("flavor catalog is empty")
	}

	entries := make([]models.FlavorSequenceEntry, round.PlannedItemCount)
	for i := range entries {
		entries[i] = models.FlavorSequenceEntry{
			ID:       uuid.New(),
			RoundID:  round.ID,
			FlavorID: a.pick(flavors, i),
			Ordinal:  i,
		}
	}

	if err := a.repo.CreateEntries(ctx, entries); err != nil {
		return fmt.Errorf("failed to create sequence entries: %w", err)
	}

	log.Info().
		Str("round_id", round.ID.String()).
		Int("entries", len(entries)).
		Str("policy", string(a.policy)).
		Msg("flavor sequence planned")
	return nil
}

func (a *App) pick(flavors []models.Flavor, ordinal int) uuid.UUID {
	switch a.policy {
	case PolicyRandom:
		return flavors[rand.Intn(len(flavors))].ID
	default:
		return flavors[ordinal%len(flavors)].ID
	}
}

// CursorFor computes the sequence position for a round at the current clock:
// floor(elapsed / interval) clamped to [0, N-1], where interval is the round's
// time limit divided by its planned item count.
func (a *App) CursorFor(round *models.Round) int {
	if round.StartedAt == nil || round.PlannedItemCount <= 0 {
		return 0
	}

	now := a.clock.Now()
	if round.Status == models.RoundStatusPaused && round.PausedAt != nil {
		now = *round.PausedAt
	}
	if round.Status == models.RoundStatusFinished && round.FinishedAt != nil {
		now = *round.FinishedAt
	}

	interval := round.TimeLimitSec / round.PlannedItemCount
	if interval <= 0 {
		interval = 1
	}
	cursor := clocksync.ElapsedSeconds(*round.StartedAt, now) / interval
	if cursor > round.PlannedItemCount-1 {
		cursor = round.PlannedItemCount - 1
	}
	return cursor
}

// WindowFor returns the current/next/after-next entries at the round's
// elapsed-time cursor plus the already-passed entries for display.
func (a *App) WindowFor(ctx context.Context, round *models.Round) (*Window, error) {
	entries, err := a.repo.ListEntries(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &Window{}, nil
	}

	cursor := a.CursorFor(round)
	if cursor > len(entries)-1 {
		cursor = len(entries) - 1
	}

	w := &Window{
		Cursor:  cursor,
		Current: &entries[cursor],
		Past:    entries[:cursor],
	}
	if cursor+1 < len(entries) {
		w.Next = &entries[cursor+1]
	}
	if cursor+2 < len(entries) {
		w.AfterNext = &entries[cursor+2]
	}
	return w, nil
}

// EntriesFor returns a round's full planned sequence in ordinal order.
func (a *App) EntriesFor(ctx context.Context, roundID uuid.UUID) ([]models.FlavorSequenceEntry, error) {
	return a.repo.ListEntries(ctx, roundID)
}
