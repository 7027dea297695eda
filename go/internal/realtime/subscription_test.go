package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mvcampos/gelateria/go/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpener struct {
	mu    sync.Mutex
	opens int
	stops int
	err   error
}

func (f *fakeOpener) Open(_ context.Context, _ string, _ func(events.Envelope) error) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.opens++
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.stops++
		})
	}, nil
}

func (f *fakeOpener) counts() (opens, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.stops
}

func noopHandler(events.Envelope) error { return nil }

func TestSubscribeReplacesExistingSubscription(t *testing.T) {
	opener := &fakeOpener{}
	m := NewSubscriptionManager(opener)
	ctx := context.Background()

	require.NoError(t, m.Subscribe(ctx, TableRounds, noopHandler))
	assert.Equal(t, StatusSubscribed, m.Status(TableRounds))

	// A second subscribe on the same topic tears down the first.
	require.NoError(t, m.Subscribe(ctx, TableRounds, noopHandler))

	opens, stops := opener.counts()
	assert.Equal(t, 2, opens)
	assert.Equal(t, 1, stops)
	assert.Equal(t, StatusSubscribed, m.Status(TableRounds))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	opener := &fakeOpener{}
	m := NewSubscriptionManager(opener)

	require.NoError(t, m.Subscribe(context.Background(), TableItems, noopHandler))
	m.Unsubscribe(TableItems)
	m.Unsubscribe(TableItems)
	m.Unsubscribe("never-subscribed")

	_, stops := opener.counts()
	assert.Equal(t, 1, stops)
	assert.Equal(t, StatusClosed, m.Status(TableItems))
}

func TestSubscribeFailureIsSyncErrorNotFatal(t *testing.T) {
	opener := &fakeOpener{err: errors.New("feed unavailable")}
	m := NewSubscriptionManager(opener)

	err := m.Subscribe(context.Background(), TableRounds, noopHandler)
	require.Error(t, err)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, TableRounds, syncErr.Topic)

	assert.Equal(t, StatusErrored, m.Status(TableRounds))
	assert.False(t, m.Live())

	// Teardown of an errored subscription is safe.
	m.Unsubscribe(TableRounds)
	assert.Equal(t, StatusClosed, m.Status(TableRounds))
}

func TestLiveReflectsAllTopics(t *testing.T) {
	opener := &fakeOpener{}
	m := NewSubscriptionManager(opener)
	ctx := context.Background()

	require.NoError(t, m.Subscribe(ctx, TableRounds, noopHandler))
	require.NoError(t, m.Subscribe(ctx, TableItems, noopHandler))
	assert.True(t, m.Live())

	opener.err = errors.New("feed unavailable")
	_ = m.Subscribe(ctx, TableItems, noopHandler)
	assert.False(t, m.Live())
}

func TestCloseTearsDownEverything(t *testing.T) {
	opener := &fakeOpener{}
	m := NewSubscriptionManager(opener)
	ctx := context.Background()

	require.NoError(t, m.Subscribe(ctx, TableRounds, noopHandler))
	require.NoError(t, m.Subscribe(ctx, TableItems, noopHandler))

	m.Close()
	m.Close()

	_, stops := opener.counts()
	assert.Equal(t, 2, stops)
	assert.Equal(t, StatusClosed, m.Status(TableRounds))
	assert.Equal(t, StatusClosed, m.Status(TableItems))
}
