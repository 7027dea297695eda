package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutboxRepo struct {
	events []OutboxEvent
}

func (f *fakeOutboxRepo) InsertOutboxEvent(_ context.Context, id, roundID uuid.UUID, eventType string, payload []byte) error {
	f.events = append(f.events, OutboxEvent{
		ID:        id,
		RoundID:   roundID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeOutboxRepo) FetchUnsentOutbox(_ context.Context, limit int32) ([]OutboxEvent, error) {
	var out []OutboxEvent
	for _, ev := range f.events {
		if ev.SentAt == nil {
			out = append(out, ev)
			if int32(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkOutboxSent(_ context.Context, id uuid.UUID) error {
	for i := range f.events {
		if f.events[i].ID == id && f.events[i].SentAt == nil {
			now := time.Now()
			f.events[i].SentAt = &now
		}
	}
	return nil
}

func (f *fakeOutboxRepo) FetchOutboxByID(_ context.Context, id uuid.UUID) (*OutboxEvent, error) {
	for _, ev := range f.events {
		if ev.ID == id && ev.SentAt == nil {
			c := ev
			return &c, nil
		}
	}
	return nil, errors.New("outbox event not found or already sent")
}

func TestInsertRoundEventValidation(t *testing.T) {
	repo := &fakeOutboxRepo{}
	app := NewApp(repo)
	ctx := context.Background()

	err := app.InsertRoundEvent(ctx, "", uuid.New(), []byte(`{}`))
	assert.Error(t, err)

	err = app.InsertRoundEvent(ctx, "RoundStarted", uuid.New(), nil)
	assert.Error(t, err)

	err = app.InsertRoundEvent(ctx, "RoundStarted", uuid.New(), []byte(`{"round_id":"x"}`))
	require.NoError(t, err)
	require.Len(t, repo.events, 1)
	assert.Equal(t, "RoundStarted", repo.events[0].EventType)
}

func TestProcessUnsentEventsMarksSent(t *testing.T) {
	repo := &fakeOutboxRepo{}
	app := NewApp(repo)
	ctx := context.Background()

	require.NoError(t, app.InsertRoundEvent(ctx, "RoundStarted", uuid.New(), []byte(`{}`)))
	require.NoError(t, app.InsertRoundEvent(ctx, "RoundFinished", uuid.New(), []byte(`{}`)))

	var processed []string
	err := app.ProcessUnsentEvents(ctx, 10, func(ev OutboxEvent) error {
		processed = append(processed, ev.EventType)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"RoundStarted", "RoundFinished"}, processed)

	remaining, err := app.FetchUnsentEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestProcessUnsentEventsSkipsFailures(t *testing.T) {
	repo := &fakeOutboxRepo{}
	app := NewApp(repo)
	ctx := context.Background()

	require.NoError(t, app.InsertRoundEvent(ctx, "RoundStarted", uuid.New(), []byte(`{}`)))
	require.NoError(t, app.InsertRoundEvent(ctx, "RoundFinished", uuid.New(), []byte(`{}`)))

	err := app.ProcessUnsentEvents(ctx, 10, func(ev OutboxEvent) error {
		if ev.EventType == "RoundStarted" {
			return errors.New("broker down")
		}
		return nil
	})
	require.NoError(t, err)

	// The failed event stays queued for the next pass.
	remaining, err := app.FetchUnsentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "RoundStarted", remaining[0].EventType)
}

func TestFetchUnsentEventsRejectsBadLimit(t *testing.T) {
	app := NewApp(&fakeOutboxRepo{})
	_, err := app.FetchUnsentEvents(context.Background(), 0)
	assert.Error(t, err)
}
