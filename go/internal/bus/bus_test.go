package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New()
	defer b.Close()

	first := b.Subscribe("round.created")
	second := b.Subscribe("round.created")
	other := b.Subscribe("item.evaluated")

	b.Publish("round.created", "r1")

	msg := <-first.C
	assert.Equal(t, Topic("round.created"), msg.Topic)
	assert.Equal(t, "r1", msg.Payload)

	msg = <-second.C
	assert.Equal(t, "r1", msg.Payload)

	select {
	case <-other.C:
		t.Fatal("subscriber on another topic received the message")
	default:
	}
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("round.created")
	sub.Close()
	sub.Close() // idempotent

	b.Publish("round.created", "r1")

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed with nothing buffered")
}

func TestTableChangedFallbackTopic(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe(TopicTableChanged)
	b.PublishTableChanged("rounds")

	msg := <-sub.C
	payload, ok := msg.Payload.(TableChanged)
	require.True(t, ok)
	assert.Equal(t, "rounds", payload.Table)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("ticks")
	for i := 0; i < 200; i++ {
		b.Publish("ticks", i)
	}

	// The buffer holds the first messages; the rest were dropped and
	// the publisher never blocked.
	msg := <-sub.C
	assert.Equal(t, 0, msg.Payload)
}

func TestBusCloseShutsDownSubscribers(t *testing.T) {
	b := New()
	sub := b.Subscribe("round.created")

	b.Close()
	b.Close() // idempotent

	_, ok := <-sub.C
	assert.False(t, ok)

	// Publish and Subscribe after close are harmless.
	b.Publish("round.created", "r1")
	late := b.Subscribe("round.created")
	_, ok = <-late.C
	assert.False(t, ok)
}
