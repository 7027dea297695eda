package realtime

import (
	"context"
	"sync"

	"github.com/mvcampos/gelateria/go/internal/events"
	"github.com/rs/zerolog/log"
)

// Status tracks a feed subscription's connectivity.
type Status string

const (
	StatusSubscribed Status = "subscribed"
	StatusClosed     Status = "closed"
	StatusErrored    Status = "errored"
)

// Opener establishes one change-feed subscription on a topic. The
// returned stop function releases the subscription and may be called
// more than once.
type Opener interface {
	Open(ctx context.Context, topic string, handler func(events.Envelope) error) (stop func(), err error)
}

type feedSubscription struct {
	topic  string
	status Status
	stop   func()
}

// SubscriptionManager owns the change-feed subscriptions of one client,
// holding at most one active subscription per topic. Replacing a
// subscription tears the old one down first; teardown is idempotent.
type SubscriptionManager struct {
	opener Opener

	mu     sync.Mutex
	active map[string]*feedSubscription
}

func NewSubscriptionManager(opener Opener) *SubscriptionManager {
	return &SubscriptionManager{
		opener: opener,
		active: make(map[string]*feedSubscription),
	}
}

// Subscribe opens a subscription on the topic, closing any existing one
// for the same topic first. On failure it returns a *SyncError and
// records the topic as errored; callers fall back to refetching.
func (m *SubscriptionManager) Subscribe(ctx context.Context, topic string, handler func(events.Envelope) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.active[topic]; ok {
		existing.stop()
		existing.status = StatusClosed
		delete(m.active, topic)
		log.Debug().Str("topic", topic).Msg("replaced existing feed subscription")
	}

	stop, err := m.opener.Open(ctx, topic, handler)
	if err != nil {
		m.active[topic] = &feedSubscription{topic: topic, status: StatusErrored, stop: func() {}}
		log.Warn().Err(err).Str("topic", topic).Msg("feed subscription failed, falling back to refetch")
		return &SyncError{Topic: topic, Err: err}
	}

	m.active[topic] = &feedSubscription{topic: topic, status: StatusSubscribed, stop: stop}
	return nil
}

// Unsubscribe tears down the topic's subscription if one is active.
// Calling it for an unknown topic is a no-op.
func (m *SubscriptionManager) Unsubscribe(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.active[topic]
	if !ok {
		return
	}
	sub.stop()
	sub.status = StatusClosed
	delete(m.active, topic)
}

// Status reports the topic's connectivity. Topics never subscribed
// report as closed.
func (m *SubscriptionManager) Status(topic string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.active[topic]; ok {
		return sub.status
	}
	return StatusClosed
}

// Live reports whether every tracked topic is currently subscribed;
// presentation code uses it for the "live-synchronized" indicator.
func (m *SubscriptionManager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.active {
		if sub.status != StatusSubscribed {
			return false
		}
	}
	return true
}

// Close tears down every subscription. Idempotent.
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for topic, sub := range m.active {
		sub.stop()
		sub.status = StatusClosed
		delete(m.active, topic)
	}
}
