package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSeqRepo struct {
	entries map[uuid.UUID][]models.FlavorSequenceEntry
}

func newFakeSeqRepo() *fakeSeqRepo {
	return &fakeSeqRepo{entries: make(map[uuid.UUID][]models.FlavorSequenceEntry)}
}

func (f *fakeSeqRepo) CountEntries(_ context.Context, roundID uuid.UUID) (int, error) {
	return len(f.entries[roundID]), nil
}

func (f *fakeSeqRepo) CreateEntries(_ context.Context, entries []models.FlavorSequenceEntry) error {
	for _, e := range entries {
		// Mirror the ON CONFLICT (round_id, ordinal) DO NOTHING guard.
		dup := false
		for _, existing := range f.entries[e.RoundID] {
			if existing.Ordinal == e.Ordinal {
				dup = true
				break
			}
		}
		if !dup {
			f.entries[e.RoundID] = append(f.entries[e.RoundID], e)
		}
	}
	return nil
}

func (f *fakeSeqRepo) ListEntries(_ context.Context, roundID uuid.UUID) ([]models.FlavorSequenceEntry, error) {
	return f.entries[roundID], nil
}

type fakeCatalog struct {
	flavors []models.Flavor
}

func (f *fakeCatalog) ListActiveFlavors(_ context.Context) ([]models.Flavor, error) {
	return f.flavors, nil
}

func testCatalog(n int) *fakeCatalog {
	c := &fakeCatalog{}
	for i := 0; i < n; i++ {
		c.flavors = append(c.flavors, models.Flavor{ID: uuid.New(), Active: true})
	}
	return c
}

func activeRound(clock clockwork.Clock, limitSec, planned int) *models.Round {
	started := clock.Now()
	return &models.Round{
		ID:               uuid.New(),
		Status:           models.RoundStatusActive,
		TimeLimitSec:     limitSec,
		PlannedItemCount: planned,
		StartedAt:        &started,
	}
}

func TestPlanForRoundOrdinalsAreContiguous(t *testing.T) {
	repo := newFakeSeqRepo()
	clock := clockwork.NewFakeClock()
	app := NewApp(repo, testCatalog(3), PolicyRoundRobin, clock)
	round := activeRound(clock, 300, 10)

	require.NoError(t, app.PlanForRound(context.Background(), round))

	entries, _ := repo.ListEntries(context.Background(), round.ID)
	require.Len(t, entries, 10)
	seen := make(map[int]bool)
	for _, e := range entries {
		assert.False(t, seen[e.Ordinal], "duplicate ordinal %d", e.Ordinal)
		seen[e.Ordinal] = true
		assert.GreaterOrEqual(t, e.Ordinal, 0)
		assert.Less(t, e.Ordinal, 10)
	}
}

func TestPlanForRoundIsIdempotent(t *testing.T) {
	repo := newFakeSeqRepo()
	clock := clockwork.NewFakeClock()
	app := NewApp(repo, testCatalog(3), PolicyRoundRobin, clock)
	round := activeRound(clock, 300, 10)
	ctx := context.Background()

	require.NoError(t, app.PlanForRound(ctx, round))
	first, _ := repo.ListEntries(ctx, round.ID)

	// A second client racing to set up the same round changes nothing.
	require.NoError(t, app.PlanForRound(ctx, round))
	second, _ := repo.ListEntries(ctx, round.ID)
	assert.Equal(t, first, second)
}

func TestPlanRoundRobinCyclesCatalog(t *testing.T) {
	repo := newFakeSeqRepo()
	clock := clockwork.NewFakeClock()
	catalog := testCatalog(3)
	app := NewApp(repo, catalog, PolicyRoundRobin, clock)
	round := activeRound(clock, 300, 7)

	require.NoError(t, app.PlanForRound(context.Background(), round))

	entries, _ := repo.ListEntries(context.Background(), round.ID)
	for i, e := range entries {
		assert.Equal(t, catalog.flavors[i%3].ID, e.FlavorID)
	}
}

func TestCursorAdvancesWithElapsedTime(t *testing.T) {
	repo := newFakeSeqRepo()
	clock := clockwork.NewFakeClock()
	app := NewApp(repo, testCatalog(3), PolicyRoundRobin, clock)
	// 300s / 10 items = one position every 30s.
	round := activeRound(clock, 300, 10)

	assert.Equal(t, 0, app.CursorFor(round))

	clock.Advance(29 * time.Second)
	assert.Equal(t, 0, app.CursorFor(round))

	clock.Advance(1 * time.Second)
	assert.Equal(t, 1, app.CursorFor(round))

	clock.Advance(120 * time.Second)
	assert.Equal(t, 5, app.CursorFor(round))

	// Clamped at N-1 even long past the limit.
	clock.Advance(time.Hour)
	assert.Equal(t, 9, app.CursorFor(round))
}

func TestCursorFrozenWhilePaused(t *testing.T) {
	repo := newFakeSeqRepo()
	clock := clockwork.NewFakeClock()
	app := NewApp(repo, testCatalog(3), PolicyRoundRobin, clock)
	round := activeRound(clock, 300, 10)

	clock.Advance(65 * time.Second)
	pausedAt := clock.Now()
	round.Status = models.RoundStatusPaused
	round.PausedAt = &pausedAt

	assert.Equal(t, 2, app.CursorFor(round))
	clock.Advance(10 * time.Minute)
	assert.Equal(t, 2, app.CursorFor(round))
}

func TestWindowExposesCurrentNextAfterNextAndPast(t *testing.T) {
	repo := newFakeSeqRepo()
	clock := clockwork.NewFakeClock()
	app := NewApp(repo, testCatalog(4), PolicyRoundRobin, clock)
	round := activeRound(clock, 300, 10)
	ctx := context.Background()

	require.NoError(t, app.PlanForRound(ctx, round))

	clock.Advance(90 * time.Second) // cursor = 3
	w, err := app.WindowFor(ctx, round)
	require.NoError(t, err)

	assert.Equal(t, 3, w.Cursor)
	require.NotNil(t, w.Current)
	assert.Equal(t, 3, w.Current.Ordinal)
	require.NotNil(t, w.Next)
	assert.Equal(t, 4, w.Next.Ordinal)
	require.NotNil(t, w.AfterNext)
	assert.Equal(t, 5, w.AfterNext.Ordinal)
	require.Len(t, w.Past, 3)
	assert.Equal(t, 0, w.Past[0].Ordinal)
}

func TestWindowAtEndOfSequence(t *testing.T) {
	repo := newFakeSeqRepo()
	clock := clockwork.NewFakeClock()
	app := NewApp(repo, testCatalog(4), PolicyRoundRobin, clock)
	round := activeRound(clock, 300, 10)
	ctx := context.Background()

	require.NoError(t, app.PlanForRound(ctx, round))

	clock.Advance(400 * time.Second)
	w, err := app.WindowFor(ctx, round)
	require.NoError(t, err)

	assert.Equal(t, 9, w.Cursor)
	assert.Equal(t, 9, w.Current.Ordinal)
	assert.Nil(t, w.Next)
	assert.Nil(t, w.AfterNext)
	assert.Len(t, w.Past, 9)
}
