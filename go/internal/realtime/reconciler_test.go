package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/bus"
	"github.com/mvcampos/gelateria/go/internal/events"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rounds map[uuid.UUID]*models.Round
	items  map[uuid.UUID]*models.ProductionItem
}

var errNotFound = assert.AnError

func newStoreFake() *fakeStore {
	return &fakeStore{
		rounds: make(map[uuid.UUID]*models.Round),
		items:  make(map[uuid.UUID]*models.ProductionItem),
	}
}

func (f *fakeStore) GetRound(_ context.Context, id uuid.UUID) (*models.Round, error) {
	r, ok := f.rounds[id]
	if !ok {
		return nil, errNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeStore) GetItem(_ context.Context, id uuid.UUID) (*models.ProductionItem, error) {
	i, ok := f.items[id]
	if !ok {
		return nil, errNotFound
	}
	c := *i
	return &c, nil
}

func (f *fakeStore) ListItemsForRound(_ context.Context, roundID uuid.UUID) ([]models.ProductionItem, error) {
	var out []models.ProductionItem
	for _, item := range f.items {
		if item.RoundID == roundID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func envelope(eventType string, roundID uuid.UUID, payload any) events.Envelope {
	raw, _ := json.Marshal(payload)
	return events.Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		RoundID:   roundID.String(),
		Timestamp: time.Now(),
		Payload:   raw,
	}
}

func TestRoundEventRefetchesFromStore(t *testing.T) {
	store := newStoreFake()
	cache := NewCache()
	b := bus.New()
	defer b.Close()
	sub := b.Subscribe(TopicRoundChanged)
	rec := NewReconciler(cache, b, store, store)

	roundID := uuid.New()
	store.rounds[roundID] = &models.Round{ID: roundID, Status: models.RoundStatusActive, TimeLimitSec: 300}

	env := envelope(events.TypeRoundStarted, roundID, events.RoundStartedPayload{RoundID: roundID.String()})
	require.NoError(t, rec.HandleEnvelope(context.Background(), env))

	// The cached round comes from the store, not the payload.
	cached, ok := cache.Round(roundID)
	require.True(t, ok)
	assert.Equal(t, models.RoundStatusActive, cached.Status)
	assert.Equal(t, 300, cached.TimeLimitSec)

	msg := <-sub.C
	change, ok := msg.Payload.(RoundChange)
	require.True(t, ok)
	assert.Equal(t, ChangeUpdated, change.Kind)
	assert.Equal(t, roundID, change.New.ID)
}

func TestDuplicateEventIsDropped(t *testing.T) {
	store := newStoreFake()
	cache := NewCache()
	b := bus.New()
	defer b.Close()
	sub := b.Subscribe(TopicRoundChanged)
	rec := NewReconciler(cache, b, store, store)

	roundID := uuid.New()
	store.rounds[roundID] = &models.Round{ID: roundID, Status: models.RoundStatusAwaiting}

	env := envelope(events.TypeRoundCreated, roundID, events.RoundCreatedPayload{RoundID: roundID.String()})
	require.NoError(t, rec.HandleEnvelope(context.Background(), env))
	require.NoError(t, rec.HandleEnvelope(context.Background(), env))

	<-sub.C
	select {
	case <-sub.C:
		t.Fatal("duplicate event produced a second bus message")
	default:
	}
}

func TestFailedRefetchDoesNotPoisonDedup(t *testing.T) {
	store := newStoreFake()
	cache := NewCache()
	b := bus.New()
	defer b.Close()
	sub := b.Subscribe(TopicRoundChanged)
	rec := NewReconciler(cache, b, store, store)

	// The round is not readable yet, so the first delivery fails.
	roundID := uuid.New()
	env := envelope(events.TypeRoundStarted, roundID, events.RoundStartedPayload{RoundID: roundID.String()})
	require.Error(t, rec.HandleEnvelope(context.Background(), env))
	_, ok := cache.Round(roundID)
	require.False(t, ok)

	// The store recovers and the feed redelivers the same event ID. It
	// must refresh the cache, not be dropped as a duplicate.
	store.rounds[roundID] = &models.Round{ID: roundID, Status: models.RoundStatusActive, TimeLimitSec: 300}
	require.NoError(t, rec.HandleEnvelope(context.Background(), env))

	cached, ok := cache.Round(roundID)
	require.True(t, ok)
	assert.Equal(t, models.RoundStatusActive, cached.Status)
	msg := <-sub.C
	change, ok := msg.Payload.(RoundChange)
	require.True(t, ok)
	assert.Equal(t, roundID, change.New.ID)

	// A third delivery after success is a real duplicate.
	require.NoError(t, rec.HandleEnvelope(context.Background(), env))
	select {
	case <-sub.C:
		t.Fatal("duplicate event produced a second bus message")
	default:
	}
}

func TestItemEventRefetchesItem(t *testing.T) {
	store := newStoreFake()
	cache := NewCache()
	b := bus.New()
	defer b.Close()
	rec := NewReconciler(cache, b, store, store)

	roundID, itemID := uuid.New(), uuid.New()
	store.items[itemID] = &models.ProductionItem{
		ID:      itemID,
		RoundID: roundID,
		Status:  models.ItemStatusReady,
		Result:  models.ItemResultNone,
	}

	env := envelope(events.TypeItemSubmitted, roundID, events.ItemSubmittedPayload{
		ItemID:  itemID.String(),
		RoundID: roundID.String(),
	})
	require.NoError(t, rec.HandleEnvelope(context.Background(), env))

	cached, ok := cache.Item(itemID)
	require.True(t, ok)
	assert.Equal(t, models.ItemStatusReady, cached.Status)
}

func TestBulkRejectReplacesRoundItems(t *testing.T) {
	store := newStoreFake()
	cache := NewCache()
	b := bus.New()
	defer b.Close()
	tableSub := b.Subscribe(bus.TopicTableChanged)
	rec := NewReconciler(cache, b, store, store)

	roundID := uuid.New()
	staleID := uuid.New()
	// The cache holds a stale ready item the store has since rejected.
	cache.ApplyItem(ItemChange{Kind: ChangeInserted, New: &models.ProductionItem{
		ID: staleID, RoundID: roundID, Status: models.ItemStatusReady, Result: models.ItemResultNone,
	}})
	store.items[staleID] = &models.ProductionItem{
		ID: staleID, RoundID: roundID, Status: models.ItemStatusEvaluated, Result: models.ItemResultRejected,
	}

	env := envelope(events.TypeItemsAutoRejected, roundID, events.ItemsAutoRejectedPayload{
		RoundID: roundID.String(), RejectedCount: 1,
	})
	require.NoError(t, rec.HandleEnvelope(context.Background(), env))

	cached, ok := cache.Item(staleID)
	require.True(t, ok)
	assert.Equal(t, models.ItemResultRejected, cached.Result)

	msg := <-tableSub.C
	assert.Equal(t, bus.TableChanged{Table: TableItems}, msg.Payload)
}

func TestUnknownEventFallsBackToRefetchSignal(t *testing.T) {
	store := newStoreFake()
	cache := NewCache()
	b := bus.New()
	defer b.Close()
	tableSub := b.Subscribe(bus.TopicTableChanged)
	rec := NewReconciler(cache, b, store, store)

	env := envelope("SomethingNew", uuid.New(), struct{}{})
	require.NoError(t, rec.HandleEnvelope(context.Background(), env))

	first := <-tableSub.C
	second := <-tableSub.C
	tables := []any{first.Payload, second.Payload}
	assert.Contains(t, tables, bus.TableChanged{Table: TableRounds})
	assert.Contains(t, tables, bus.TableChanged{Table: TableItems})
}

func TestResyncReplacesProjection(t *testing.T) {
	store := newStoreFake()
	cache := NewCache()
	b := bus.New()
	defer b.Close()
	rec := NewReconciler(cache, b, store, store)

	roundID := uuid.New()
	store.rounds[roundID] = &models.Round{ID: roundID, Status: models.RoundStatusFinished}
	itemID := uuid.New()
	store.items[itemID] = &models.ProductionItem{ID: itemID, RoundID: roundID, Status: models.ItemStatusEvaluated, Result: models.ItemResultApproved}

	// Stale cache state from a missed feed window.
	cache.PutRound(models.Round{ID: roundID, Status: models.RoundStatusActive})

	require.NoError(t, rec.Resync(context.Background(), roundID))

	round, ok := cache.Round(roundID)
	require.True(t, ok)
	assert.Equal(t, models.RoundStatusFinished, round.Status)
	items := cache.ItemsForRound(roundID)
	require.Len(t, items, 1)
	assert.Equal(t, models.ItemResultApproved, items[0].Result)
}
