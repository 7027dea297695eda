package rejector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/events"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepRound struct {
	finishedAt time.Time
	ready      int
}

// fakeStore backs both the sweep source and the item sweeper, mirroring
// the atomic bulk-update semantics: the first reject takes all ready
// items, later ones find zero.
type fakeStore struct {
	mu     sync.Mutex
	rounds map[uuid.UUID]*sweepRound
}

func newFakeStore() *fakeStore {
	return &fakeStore{rounds: make(map[uuid.UUID]*sweepRound)}
}

func (f *fakeStore) addFinishedRound(finishedAt time.Time, ready int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.rounds[id] = &sweepRound{finishedAt: finishedAt, ready: ready}
	return id
}

func (f *fakeStore) FetchNextSweepDeadline(_ context.Context) (*SweepDeadline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *SweepDeadline
	for id, r := range f.rounds {
		if r.ready == 0 {
			continue
		}
		if next == nil || r.finishedAt.Before(next.FinishedAt) {
			next = &SweepDeadline{RoundID: id, FinishedAt: r.finishedAt}
		}
	}
	return next, nil
}

func (f *fakeStore) FetchRoundsDueForSweep(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, r := range f.rounds {
		if r.ready > 0 && !r.finishedAt.After(cutoff) {
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (f *fakeStore) BulkRejectReady(_ context.Context, roundID uuid.UUID, _, _ string, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[roundID]
	if !ok {
		return 0, nil
	}
	count := r.ready
	r.ready = 0
	return count, nil
}

type recordingOutbox struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingOutbox) InsertRoundEvent(_ context.Context, eventType string, _ uuid.UUID, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return nil
}

func (r *recordingOutbox) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestSweepRoundRejectsOnce(t *testing.T) {
	store := newFakeStore()
	outbox := &recordingOutbox{}
	s := NewSweeper(store, store, outbox, DefaultGraceWindow)
	roundID := store.addFinishedRound(time.Now(), 2)

	require.NoError(t, s.SweepRound(context.Background(), roundID))
	require.Equal(t, []string{events.TypeItemsAutoRejected}, outbox.events)

	// Second pass matches nothing and stays silent.
	require.NoError(t, s.SweepRound(context.Background(), roundID))
	assert.Equal(t, 1, outbox.count())
}

func TestSweepRoundWithNothingReadyEmitsNothing(t *testing.T) {
	store := newFakeStore()
	outbox := &recordingOutbox{}
	s := NewSweeper(store, store, outbox, DefaultGraceWindow)
	roundID := store.addFinishedRound(time.Now(), 0)

	require.NoError(t, s.SweepRound(context.Background(), roundID))
	assert.Zero(t, outbox.count())
}

func TestConcurrentSweepersProcessRoundOnce(t *testing.T) {
	store := newFakeStore()
	outbox := &recordingOutbox{}
	roundID := store.addFinishedRound(time.Now(), 5)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSweeper(store, store, outbox, DefaultGraceWindow)
			assert.NoError(t, s.SweepRound(context.Background(), roundID))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, outbox.count())
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Zero(t, store.rounds[roundID].ready)
}

func TestRunSweepsAfterGraceWindow(t *testing.T) {
	store := newFakeStore()
	outbox := &recordingOutbox{}
	s := NewSweeper(store, store, outbox, 20*time.Millisecond)
	roundID := store.addFinishedRound(time.Now(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return outbox.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Zero(t, store.rounds[roundID].ready)
}

func TestSweepUsesSystemEvaluator(t *testing.T) {
	// The judge marker distinguishes automatic from manual verdicts.
	assert.NotEqual(t, models.EvaluatorManual, models.EvaluatorSystem)
	assert.Equal(t, "system:timeout", models.EvaluatorSystem)
}
