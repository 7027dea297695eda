package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertOutboxEvent writes one event row. A trigger on round_outbox
// raises the NOTIFY that wakes the relay.
func (r *Repository) InsertOutboxEvent(ctx context.Context, id, roundID uuid.UUID, eventType string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO round_outbox (id, round_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		id, roundID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

// CountUnsentOutbox reports the backlog of rows the relay has not
// published yet.
func (r *Repository) CountUnsentOutbox(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM round_outbox WHERE sent_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsent outbox events: %w", err)
	}
	return count, nil
}

func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, round_id, event_type, payload, created_at
		FROM round_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		var payload pqtype.NullRawMessage
		if err := rows.Scan(&ev.ID, &ev.RoundID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		if payload.Valid {
			ev.Payload = payload.RawMessage
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE round_outbox SET sent_at = NOW()
		WHERE id = $1 AND sent_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, round_id, event_type, payload, created_at
		FROM round_outbox
		WHERE id = $1 AND sent_at IS NULL`, id)

	var ev OutboxEvent
	var payload pqtype.NullRawMessage
	if err := row.Scan(&ev.ID, &ev.RoundID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event not found or already sent")
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	if payload.Valid {
		ev.Payload = payload.RawMessage
	}
	return &ev, nil
}
