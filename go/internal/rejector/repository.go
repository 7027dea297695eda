package rejector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SweepDeadline is a finished round that still has unevaluated ready
// items waiting for the grace window to elapse.
type SweepDeadline struct {
	RoundID    uuid.UUID
	FinishedAt time.Time
}

// Repository reads the rounds that are candidates for the timeout
// sweep. The sweep itself runs through the production queue repository.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchNextSweepDeadline returns the earliest finished round that still
// has ready items pending a verdict, or nil when nothing is waiting.
func (r *Repository) FetchNextSweepDeadline(ctx context.Context) (*SweepDeadline, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT r.id, r.finished_at
		FROM rounds r
		WHERE r.status = 'FINISHED'
		  AND r.finished_at IS NOT NULL
		  AND EXISTS (
			SELECT 1 FROM production_items i
			WHERE i.round_id = r.id AND i.status = 'READY' AND i.result = 'NONE'
		  )
		ORDER BY r.finished_at ASC
		LIMIT 1`)

	var sd SweepDeadline
	if err := row.Scan(&sd.RoundID, &sd.FinishedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next sweep deadline: %w", err)
	}
	return &sd, nil
}

// FetchRoundsDueForSweep returns finished rounds whose grace window has
// elapsed as of the cutoff and that still have ready items.
func (r *Repository) FetchRoundsDueForSweep(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id
		FROM rounds r
		WHERE r.status = 'FINISHED'
		  AND r.finished_at IS NOT NULL
		  AND r.finished_at <= $1
		  AND EXISTS (
			SELECT 1 FROM production_items i
			WHERE i.round_id = r.id AND i.status = 'READY' AND i.result = 'NONE'
		  )
		ORDER BY r.finished_at ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rounds due for sweep: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due round: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
