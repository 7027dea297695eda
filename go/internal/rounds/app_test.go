package rounds

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo mirrors the conditional-update semantics of the Postgres
// repository in memory.
type fakeRepo struct {
	rounds  map[uuid.UUID]*models.Round
	nextSeq int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rounds: make(map[uuid.UUID]*models.Round), nextSeq: 1}
}

func (f *fakeRepo) CreateRound(_ context.Context, req CreateRoundRequest) (*models.Round, error) {
	for _, r := range f.rounds {
		if r.Status != models.RoundStatusFinished {
			return nil, ErrRoundConflict
		}
	}
	round := &models.Round{
		ID:               req.ID,
		SequenceNumber:   req.SequenceNumber,
		Status:           models.RoundStatusAwaiting,
		TimeLimitSec:     req.TimeLimitSec,
		PlannedItemCount: req.PlannedItemCount,
	}
	f.rounds[req.ID] = round
	return copyRound(round), nil
}

func (f *fakeRepo) GetRound(_ context.Context, id uuid.UUID) (*models.Round, error) {
	r, ok := f.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	return copyRound(r), nil
}

func (f *fakeRepo) GetCurrentRound(_ context.Context) (*models.Round, error) {
	var latest *models.Round
	for _, r := range f.rounds {
		if latest == nil || r.SequenceNumber > latest.SequenceNumber {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrRoundNotFound
	}
	return copyRound(latest), nil
}

func (f *fakeRepo) NextSequenceNumber(_ context.Context) (int, error) {
	n := f.nextSeq
	f.nextSeq++
	return n, nil
}

func (f *fakeRepo) ActivateRound(_ context.Context, id uuid.UUID, now time.Time) (*models.Round, error) {
	r, ok := f.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	if r.Status != models.RoundStatusAwaiting {
		return nil, fmt.Errorf("%w: round is %s", ErrInvalidTransition, r.Status)
	}
	r.Status = models.RoundStatusActive
	if r.StartedAt == nil {
		t := now
		r.StartedAt = &t
	}
	return copyRound(r), nil
}

func (f *fakeRepo) ResumeRound(_ context.Context, id uuid.UUID, now time.Time) (*models.Round, error) {
	r, ok := f.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	if r.Status != models.RoundStatusPaused || r.PausedAt == nil {
		return nil, fmt.Errorf("%w: round is %s", ErrInvalidTransition, r.Status)
	}
	shifted := r.StartedAt.Add(now.Sub(*r.PausedAt))
	r.StartedAt = &shifted
	r.PausedAt = nil
	r.Status = models.RoundStatusActive
	return copyRound(r), nil
}

func (f *fakeRepo) PauseRound(_ context.Context, id uuid.UUID, now time.Time) (*models.Round, error) {
	r, ok := f.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	if r.Status != models.RoundStatusActive {
		return nil, fmt.Errorf("%w: round is %s", ErrInvalidTransition, r.Status)
	}
	r.Status = models.RoundStatusPaused
	t := now
	r.PausedAt = &t
	return copyRound(r), nil
}

func (f *fakeRepo) FinishRound(_ context.Context, id uuid.UUID, now time.Time) (*models.Round, bool, error) {
	r, ok := f.rounds[id]
	if !ok {
		return nil, false, ErrRoundNotFound
	}
	if r.Status == models.RoundStatusFinished {
		return copyRound(r), false, nil
	}
	r.Status = models.RoundStatusFinished
	t := now
	r.FinishedAt = &t
	r.PausedAt = nil
	return copyRound(r), true, nil
}

func (f *fakeRepo) ExtendRound(_ context.Context, id uuid.UUID, deltaSec int, now time.Time) (*models.Round, error) {
	r, ok := f.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	if r.Status != models.RoundStatusActive {
		return nil, fmt.Errorf("%w: round is %s", ErrInvalidTransition, r.Status)
	}
	newLimit := r.TimeLimitSec + deltaSec
	elapsed := int(now.Sub(*r.StartedAt).Seconds())
	if newLimit < elapsed+1 {
		newLimit = elapsed + 1
	}
	r.TimeLimitSec = newLimit
	return copyRound(r), nil
}

func copyRound(r *models.Round) *models.Round {
	c := *r
	return &c
}

type fakeOutbox struct {
	types []string
}

func (f *fakeOutbox) InsertRoundEvent(_ context.Context, eventType string, _ uuid.UUID, _ []byte) error {
	f.types = append(f.types, eventType)
	return nil
}

type fakePlanner struct {
	calls int
}

func (f *fakePlanner) PlanForRound(_ context.Context, _ *models.Round) error {
	f.calls++
	return nil
}

func newTestApp() (*App, *fakeRepo, *fakeOutbox, *fakePlanner, *clockwork.FakeClock) {
	repo := newFakeRepo()
	outbox := &fakeOutbox{}
	planner := &fakePlanner{}
	clock := clockwork.NewFakeClock()
	return NewApp(repo, outbox, planner, clock), repo, outbox, planner, clock
}

func TestCreateRoundPlansSequenceAndEmits(t *testing.T) {
	app, _, outbox, planner, _ := newTestApp()

	round, err := app.CreateRound(context.Background(), 300, 10)
	require.NoError(t, err)

	assert.Equal(t, models.RoundStatusAwaiting, round.Status)
	assert.Equal(t, 1, round.SequenceNumber)
	assert.Nil(t, round.StartedAt)
	assert.Equal(t, 1, planner.calls)
	assert.Equal(t, []string{"RoundCreated"}, outbox.types)
}

func TestCreateRoundConflictsWhileAnotherIsOpen(t *testing.T) {
	app, _, _, _, _ := newTestApp()
	ctx := context.Background()

	_, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)

	_, err = app.CreateRound(ctx, 300, 10)
	assert.ErrorIs(t, err, ErrRoundConflict)
}

func TestCreateRoundAllowedAfterFinish(t *testing.T) {
	app, _, _, _, _ := newTestApp()
	ctx := context.Background()

	first, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)
	_, err = app.FinishRound(ctx, first.ID)
	require.NoError(t, err)

	second, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, second.SequenceNumber)
}

func TestStartRoundSetsStartedAtOnce(t *testing.T) {
	app, _, _, _, clock := newTestApp()
	ctx := context.Background()

	round, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)

	started, err := app.StartRound(ctx, round.ID)
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, models.RoundStatusActive, started.Status)
	firstAnchor := *started.StartedAt

	// Starting an active round is not permitted.
	_, err = app.StartRound(ctx, round.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Pause and resume: the anchor shifts by exactly the paused duration.
	clock.Advance(60 * time.Second)
	_, err = app.PauseRound(ctx, round.ID)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	resumed, err := app.StartRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, firstAnchor.Add(30*time.Second), *resumed.StartedAt)
}

func TestPauseFreezesRemainingTime(t *testing.T) {
	app, _, _, _, clock := newTestApp()
	ctx := context.Background()

	round, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)
	_, err = app.StartRound(ctx, round.ID)
	require.NoError(t, err)

	clock.Advance(100 * time.Second)
	paused, err := app.PauseRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, app.RemainingSeconds(paused))

	// Time passing while paused changes nothing.
	clock.Advance(45 * time.Second)
	assert.Equal(t, 200, app.RemainingSeconds(paused))

	resumed, err := app.StartRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, app.RemainingSeconds(resumed))
}

func TestPauseOnlyFromActive(t *testing.T) {
	app, _, _, _, _ := newTestApp()
	ctx := context.Background()

	round, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)

	_, err = app.PauseRound(ctx, round.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFinishRoundIsIdempotent(t *testing.T) {
	app, _, outbox, _, clock := newTestApp()
	ctx := context.Background()

	round, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)
	_, err = app.StartRound(ctx, round.ID)
	require.NoError(t, err)

	finished, err := app.FinishRound(ctx, round.ID)
	require.NoError(t, err)
	require.NotNil(t, finished.FinishedAt)
	firstFinishedAt := *finished.FinishedAt

	// A concurrent timeout trigger finishing again is a no-op with the same
	// finished_at and no second RoundFinished event.
	clock.Advance(10 * time.Second)
	again, err := app.FinishRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, firstFinishedAt, *again.FinishedAt)

	finishEvents := 0
	for _, et := range outbox.types {
		if et == "RoundFinished" {
			finishEvents++
		}
	}
	assert.Equal(t, 1, finishEvents)
}

func TestFinishFromAwaiting(t *testing.T) {
	app, _, _, _, _ := newTestApp()
	ctx := context.Background()

	round, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)

	finished, err := app.FinishRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusFinished, finished.Status)
	assert.Nil(t, finished.StartedAt)
}

func TestExtendRoundFloorsAtElapsed(t *testing.T) {
	app, _, _, _, clock := newTestApp()
	ctx := context.Background()

	round, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)
	_, err = app.StartRound(ctx, round.ID)
	require.NoError(t, err)

	extended, err := app.ExtendRound(ctx, round.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 420, extended.TimeLimitSec)

	// Shrinking below consumed time clamps to elapsed + 1.
	clock.Advance(200 * time.Second)
	shrunk, err := app.ExtendRound(ctx, round.ID, -6)
	require.NoError(t, err)
	assert.Equal(t, 201, shrunk.TimeLimitSec)
}

func TestExtendOnlyWhileActive(t *testing.T) {
	app, _, _, _, _ := newTestApp()
	ctx := context.Background()

	round, err := app.CreateRound(ctx, 300, 10)
	require.NoError(t, err)

	_, err = app.ExtendRound(ctx, round.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = app.ExtendRound(ctx, round.ID, 0)
	assert.Error(t, err)
}

func TestRemainingSecondsBeforeStart(t *testing.T) {
	app, _, _, _, _ := newTestApp()

	round, err := app.CreateRound(context.Background(), 300, 10)
	require.NoError(t, err)
	assert.Equal(t, 300, app.RemainingSeconds(round))
}
