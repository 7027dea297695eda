package realtime

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
)

// Cache is a screen's read-mostly projection of the shared store. It is
// never authoritative: deltas merge into it and a full refetch replaces
// it wholesale whenever an event is ambiguous or the feed was down.
type Cache struct {
	mu     sync.RWMutex
	rounds map[uuid.UUID]models.Round
	items  map[uuid.UUID]models.ProductionItem
}

func NewCache() *Cache {
	return &Cache{
		rounds: make(map[uuid.UUID]models.Round),
		items:  make(map[uuid.UUID]models.ProductionItem),
	}
}

// ApplyRound merges one round delta into the cache.
func (c *Cache) ApplyRound(ch RoundChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ch.Kind {
	case ChangeInserted, ChangeUpdated:
		if ch.New != nil {
			c.rounds[ch.New.ID] = *ch.New
		}
	case ChangeDeleted:
		if ch.Old != nil {
			delete(c.rounds, ch.Old.ID)
		}
	}
}

// ApplyItem merges one item delta into the cache.
func (c *Cache) ApplyItem(ch ItemChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ch.Kind {
	case ChangeInserted, ChangeUpdated:
		if ch.New != nil {
			c.items[ch.New.ID] = *ch.New
		}
	case ChangeDeleted:
		if ch.Old != nil {
			delete(c.items, ch.Old.ID)
		}
	}
}

// Round returns the cached round, if present.
func (c *Cache) Round(id uuid.UUID) (models.Round, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rounds[id]
	return r, ok
}

// Item returns the cached item, if present.
func (c *Cache) Item(id uuid.UUID) (models.ProductionItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.items[id]
	return i, ok
}

// ItemsForRound lists the cached items of a round, oldest first.
func (c *Cache) ItemsForRound(roundID uuid.UUID) []models.ProductionItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.ProductionItem
	for _, item := range c.items {
		if item.RoundID == roundID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ReplaceItemsForRound swaps the cached items of one round with a fresh
// read from the store.
func (c *Cache) ReplaceItemsForRound(roundID uuid.UUID, items []models.ProductionItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, item := range c.items {
		if item.RoundID == roundID {
			delete(c.items, id)
		}
	}
	for _, item := range items {
		c.items[item.ID] = item
	}
}

// PutRound stores a freshly read round.
func (c *Cache) PutRound(r models.Round) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rounds[r.ID] = r
}
