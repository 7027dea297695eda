package bus

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Topic names a stream of in-process notifications.
type Topic string

// TopicTableChanged is the generic fallback topic: a coarse "records of
// table X changed, refetch" signal used when the change feed is down or
// an event is too ambiguous to merge.
const TopicTableChanged Topic = "table.changed"

// TableChanged is the payload published on TopicTableChanged.
type TableChanged struct {
	Table string
}

// Message is what subscribers receive.
type Message struct {
	Topic   Topic
	Payload any
}

// Bus is a process-wide publish/subscribe dispatcher with named topics.
// Delivery is non-blocking: a subscriber that stops draining its channel
// loses messages rather than stalling publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[*Subscription]bool
	closed bool
}

// Subscription is one subscriber's handle on a topic. Close it when
// done; closing twice is a no-op.
type Subscription struct {
	C     <-chan Message
	bus   *Bus
	topic Topic
	ch    chan Message
	once  sync.Once
}

func New() *Bus {
	return &Bus{subs: make(map[Topic]map[*Subscription]bool)}
}

// Subscribe registers a new subscriber on the topic. The returned
// subscription's channel is buffered; slow consumers drop messages.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	ch := make(chan Message, 64)
	sub := &Subscription{C: ch, bus: b, topic: topic, ch: ch}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]bool)
	}
	b.subs[topic][sub] = true
	return sub
}

// Publish delivers the payload to every current subscriber of the
// topic.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.subs[topic] {
		select {
		case sub.ch <- Message{Topic: topic, Payload: payload}:
		default:
			log.Warn().Str("topic", string(topic)).Msg("subscriber buffer full, dropping message")
		}
	}
}

// PublishTableChanged raises the generic refetch signal for a table.
func (b *Bus) PublishTableChanged(table string) {
	b.Publish(TopicTableChanged, TableChanged{Table: table})
}

// Close shuts down the bus and closes every subscriber channel. After
// Close, Publish is a no-op and Subscribe returns a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
	}
	b.subs = nil
}

// Close removes the subscription and closes its channel. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if s.bus.closed {
			return
		}
		if subs, ok := s.bus.subs[s.topic]; ok {
			if subs[s] {
				delete(subs, s)
				close(s.ch)
			}
			if len(subs) == 0 {
				delete(s.bus.subs, s.topic)
			}
		}
	})
}
