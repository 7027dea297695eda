package realtime

import "sync"

// dedupSet remembers recently seen event IDs so duplicate feed
// deliveries are dropped. Bounded: the oldest entries are evicted
// first.
type dedupSet struct {
	mu    sync.Mutex
	seen  map[string]bool
	order []string
	max   int
}

func newDedupSet(max int) *dedupSet {
	return &dedupSet{
		seen: make(map[string]bool, max),
		max:  max,
	}
}

// Seen reports whether the ID was already recorded.
func (d *dedupSet) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[id]
}

// Mark records the ID. Only fully processed events go in here; an event
// whose read-back failed must stay unmarked so its redelivery is not
// dropped as a duplicate.
func (d *dedupSet) Mark(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return
	}
	d.seen[id] = true
	d.order = append(d.order, id)
	if len(d.order) > d.max {
		evicted := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, evicted)
	}
}
