package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/bus"
	"github.com/mvcampos/gelateria/go/internal/events"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Bus topics the reconciler publishes on for presentation code.
const (
	TopicRoundChanged bus.Topic = "rounds.changed"
	TopicItemChanged  bus.Topic = "items.changed"
)

// Table names used for the generic refetch fallback signal.
const (
	TableRounds = "rounds"
	TableItems  = "production_items"
)

// RoundReader reads rounds fresh from the shared store.
type RoundReader interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
}

// ItemReader reads production items fresh from the shared store.
type ItemReader interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.ProductionItem, error)
	ListItemsForRound(ctx context.Context, roundID uuid.UUID) ([]models.ProductionItem, error)
}

// Reconciler merges change-feed events into the local cache and fans
// them out on the in-process bus. Notification payloads are treated as
// hints only: the reconciler always re-reads the affected record from
// the store, which stays ground truth.
type Reconciler struct {
	cache  *Cache
	bus    *bus.Bus
	rounds RoundReader
	items  ItemReader
	dedup  *dedupSet
}

func NewReconciler(cache *Cache, b *bus.Bus, rounds RoundReader, items ItemReader) *Reconciler {
	return &Reconciler{
		cache:  cache,
		bus:    b,
		rounds: rounds,
		items:  items,
		dedup:  newDedupSet(1024),
	}
}

// HandleEnvelope processes one feed event. Duplicates are dropped by
// event ID; unknown event types degrade to the generic refetch signal.
// A returned error means the read-back failed and the event should be
// redelivered, so the ID is only marked seen after the read-back
// succeeded.
func (r *Reconciler) HandleEnvelope(ctx context.Context, env events.Envelope) error {
	if r.dedup.Seen(env.EventID) {
		log.Debug().Str("event_id", env.EventID).Str("event_type", env.EventType).Msg("dropping duplicate event")
		return nil
	}

	if err := r.apply(ctx, env); err != nil {
		return err
	}
	r.dedup.Mark(env.EventID)
	return nil
}

func (r *Reconciler) apply(ctx context.Context, env events.Envelope) error {
	roundID, err := uuid.Parse(env.RoundID)
	if err != nil {
		return fmt.Errorf("parse round ID: %w", err)
	}

	switch env.EventType {
	case events.TypeRoundCreated:
		return r.refreshRound(ctx, roundID, ChangeInserted)

	case events.TypeRoundStarted, events.TypeRoundPaused, events.TypeRoundResumed,
		events.TypeRoundFinished, events.TypeRoundExtended:
		return r.refreshRound(ctx, roundID, ChangeUpdated)

	case events.TypeItemSubmitted:
		return r.refreshItem(ctx, env.Payload, ChangeInserted)

	case events.TypeItemEvaluated:
		return r.refreshItem(ctx, env.Payload, ChangeUpdated)

	case events.TypeItemsAutoRejected:
		items, err := r.items.ListItemsForRound(ctx, roundID)
		if err != nil {
			return fmt.Errorf("refetch items after bulk reject: %w", err)
		}
		r.cache.ReplaceItemsForRound(roundID, items)
		r.bus.PublishTableChanged(TableItems)
		return nil

	default:
		log.Warn().Str("event_type", env.EventType).Msg("unknown event type, falling back to refetch signal")
		r.bus.PublishTableChanged(TableRounds)
		r.bus.PublishTableChanged(TableItems)
		return nil
	}
}

// Resync fully refetches a round and its items, replacing the cached
// projection. Used when the feed was down or a subscription errored.
func (r *Reconciler) Resync(ctx context.Context, roundID uuid.UUID) error {
	round, err := r.rounds.GetRound(ctx, roundID)
	if err != nil {
		return fmt.Errorf("resync round: %w", err)
	}
	items, err := r.items.ListItemsForRound(ctx, roundID)
	if err != nil {
		return fmt.Errorf("resync items: %w", err)
	}
	r.cache.PutRound(*round)
	r.cache.ReplaceItemsForRound(roundID, items)
	r.bus.PublishTableChanged(TableRounds)
	r.bus.PublishTableChanged(TableItems)
	return nil
}

func (r *Reconciler) refreshRound(ctx context.Context, roundID uuid.UUID, kind ChangeKind) error {
	round, err := r.rounds.GetRound(ctx, roundID)
	if err != nil {
		return fmt.Errorf("refetch round: %w", err)
	}
	ch := RoundChange{Kind: kind, New: round}
	r.cache.ApplyRound(ch)
	r.bus.Publish(TopicRoundChanged, ch)
	return nil
}

func (r *Reconciler) refreshItem(ctx context.Context, payload json.RawMessage, kind ChangeKind) error {
	var ref struct {
		ItemID string `json:"item_id"`
	}
	if err := json.Unmarshal(payload, &ref); err != nil {
		return fmt.Errorf("unmarshal item payload: %w", err)
	}
	itemID, err := uuid.Parse(ref.ItemID)
	if err != nil {
		return fmt.Errorf("parse item ID: %w", err)
	}

	item, err := r.items.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("refetch item: %w", err)
	}
	ch := ItemChange{Kind: kind, New: item}
	r.cache.ApplyItem(ch)
	r.bus.Publish(TopicItemChanged, ch)
	return nil
}
