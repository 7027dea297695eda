package rounds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mvcampos/gelateria/go/internal/models"
)

// Repository implements round data access on Postgres. Every transition is a
// conditional UPDATE whose WHERE clause re-checks the source status, so a
// racing client observes zero affected rows instead of clobbering state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new rounds repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roundColumns = `id, sequence_number, status, time_limit_sec, planned_item_count,
	started_at, paused_at, finished_at, created_at, updated_at`

func (r *Repository) CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error) {
	// The INSERT only succeeds while no non-finished round exists; the WHERE
	// NOT EXISTS guard makes two racing creates yield one row and one
	// zero-row result instead of two rounds.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO rounds (id, sequence_number, status, time_limit_sec, planned_item_count)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (SELECT 1 FROM rounds WHERE status <> $6)
		RETURNING `+roundColumns,
		req.ID, req.SequenceNumber, models.RoundStatusAwaiting, req.TimeLimitSec,
		req.PlannedItemCount, models.RoundStatusFinished,
	)

	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoundConflict
		}
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	return round, nil
}

func (r *Repository) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id)
	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// GetCurrentRound returns the most recent round, finished or not. Screens use
// it as the mount-time snapshot before their subscriptions come up.
func (r *Repository) GetCurrentRound(ctx context.Context) (*models.Round, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+roundColumns+` FROM rounds ORDER BY sequence_number DESC LIMIT 1`)
	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	return round, nil
}

// NextSequenceNumber reserves the next monotonic round number.
func (r *Repository) NextSequenceNumber(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM rounds`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next sequence number: %w", err)
	}
	return n, nil
}

// ActivateRound moves an awaiting round to active. started_at is only written
// on this first activation.
func (r *Repository) ActivateRound(ctx context.Context, id uuid.UUID, now time.Time) (*models.Round, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE rounds
		SET status = $2, started_at = COALESCE(started_at, $3), updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+roundColumns,
		id, models.RoundStatusActive, now, models.RoundStatusAwaiting,
	)
	return r.scanTransition(ctx, id, row)
}

// ResumeRound moves a paused round back to active, shifting started_at
// forward by the paused duration so elapsed time excludes the pause.
func (r *Repository) ResumeRound(ctx context.Context, id uuid.UUID, now time.Time) (*models.Round, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE rounds
		SET status = $2,
		    started_at = started_at + ($3::timestamptz - paused_at),
		    paused_at = NULL,
		    updated_at = $3
		WHERE id = $1 AND status = $4 AND paused_at IS NOT NULL
		RETURNING `+roundColumns,
		id, models.RoundStatusActive, now, models.RoundStatusPaused,
	)
	return r.scanTransition(ctx, id, row)
}

// PauseRound records the pause-start instant.
func (r *Repository) PauseRound(ctx context.Context, id uuid.UUID, now time.Time) (*models.Round, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE rounds
		SET status = $2, paused_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+roundColumns,
		id, models.RoundStatusPaused, now, models.RoundStatusActive,
	)
	return r.scanTransition(ctx, id, row)
}

// FinishRound terminates a round from any non-finished state. The status
// guard makes a second concurrent finish a zero-row update, which the caller
// treats as a no-op rather than an error.
func (r *Repository) FinishRound(ctx context.Context, id uuid.UUID, now time.Time) (*models.Round, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE rounds
		SET status = $2, finished_at = $3, paused_at = NULL, updated_at = $3
		WHERE id = $1 AND status <> $2
		RETURNING `+roundColumns,
		id, models.RoundStatusFinished, now,
	)
	round, err := scanRound(row)
	if err == nil {
		return round, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to finish round: %w", err)
	}
	// Zero rows: either already finished (idempotent success) or missing.
	round, getErr := r.GetRound(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	return round, false, nil
}

// ExtendRound adds deltaSec to the time limit, never letting it drop below the
// elapsed time already consumed plus one second. Legal only while active.
func (r *Repository) ExtendRound(ctx context.Context, id uuid.UUID, deltaSec int, now time.Time) (*models.Round, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE rounds
		SET time_limit_sec = GREATEST(
		        time_limit_sec + $2,
		        CAST(EXTRACT(EPOCH FROM ($3::timestamptz - started_at)) AS int) + 1
		    ),
		    updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+roundColumns,
		id, deltaSec, now, models.RoundStatusActive,
	)
	return r.scanTransition(ctx, id, row)
}

// scanTransition converts a zero-row conditional update into the taxonomy
// error: not found if the round is missing, invalid transition otherwise.
func (r *Repository) scanTransition(ctx context.Context, id uuid.UUID, row pgx.Row) (*models.Round, error) {
	round, err := scanRound(row)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update round: %w", err)
	}
	current, getErr := r.GetRound(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: round %s is %s", ErrInvalidTransition, id, current.Status)
}

func scanRound(row pgx.Row) (*models.Round, error) {
	var round models.Round
	err := row.Scan(
		&round.ID,
		&round.SequenceNumber,
		&round.Status,
		&round.TimeLimitSec,
		&round.PlannedItemCount,
		&round.StartedAt,
		&round.PausedAt,
		&round.FinishedAt,
		&round.CreatedAt,
		&round.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &round, nil
}
