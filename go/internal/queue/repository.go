package queue

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

// Repository implements production item data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new queue repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, round_id, team_id, flavor_id, status, result,
	rejection_reason, evaluated_by, evaluated_at, created_at`

func (r *Repository) CreateItem(ctx context.Context, params CreateItemParams) (*models.ProductionItem, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO production_items (id, round_id, team_id, flavor_id, status, result)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+itemColumns,
		params.ID, params.RoundID, params.TeamID, params.FlavorID,
		params.Status, models.ItemResultNone,
	)
	item, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*models.ProductionItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM production_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// CountItemsForTeam counts every item the team has created in the round,
// regardless of later status or verdict. The quota charges on creation.
func (r *Repository) CountItemsForTeam(ctx context.Context, roundID, teamID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM production_items WHERE round_id = $1 AND team_id = $2`,
		roundID, teamID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count team items: %w", err)
	}
	return n, nil
}

// EvaluateItem writes the terminal verdict. The result = NONE predicate means
// a second evaluation of the same item affects zero rows, which the caller
// surfaces as ErrAlreadyEvaluated.
func (r *Repository) EvaluateItem(ctx context.Context, id uuid.UUID, result models.ItemResult, reason *string, judge string, now time.Time) (*models.ProductionItem, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE production_items
		SET status = $2, result = $3, rejection_reason = $4, evaluated_by = $5, evaluated_at = $6
		WHERE id = $1 AND result = $7
		RETURNING `+itemColumns,
		id, models.ItemStatusEvaluated, result, reason, judge, now, models.ItemResultNone,
	)
	item, err := scanItem(row)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to evaluate item: %w", err)
	}
	if _, getErr := r.GetItem(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyEvaluated
}

// ListReadyItems returns the evaluation queue oldest-first for FIFO fairness
// across teams.
func (r *Repository) ListReadyItems(ctx context.Context, roundID uuid.UUID) ([]models.ProductionItem, error) {
	return r.listItems(ctx, `
		SELECT `+itemColumns+`
		FROM production_items
		WHERE round_id = $1 AND status = $2 AND result = $3
		ORDER BY created_at`,
		roundID, models.ItemStatusReady, models.ItemResultNone)
}

// ListItemsForRound returns every item of the round, oldest-first.
func (r *Repository) ListItemsForRound(ctx context.Context, roundID uuid.UUID) ([]models.ProductionItem, error) {
	return r.listItems(ctx, `
		SELECT `+itemColumns+`
		FROM production_items
		WHERE round_id = $1
		ORDER BY created_at`, roundID)
}

// BulkRejectReady atomically rejects every still-ready item of the round in a
// single conditional UPDATE. Either all currently-matching rows flip or none;
// a second invocation matches zero rows.
func (r *Repository) BulkRejectReady(ctx context.Context, roundID uuid.UUID, reason, judge string, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE production_items
		SET status = $2, result = $3, rejection_reason = $4, evaluated_by = $5, evaluated_at = $6
		WHERE round_id = $1 AND status = $7 AND result = $8`,
		roundID, models.ItemStatusEvaluated, models.ItemResultRejected,
		reason, judge, now, models.ItemStatusReady, models.ItemResultNone,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk reject items: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) listItems(ctx context.Context, sql string, args ...any) ([]models.ProductionItem, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []models.ProductionItem
	for rows.Next() {
		var item models.ProductionItem
		if err := rows.Scan(
			&item.ID, &item.RoundID, &item.TeamID, &item.FlavorID,
			&item.Status, &item.Result, &item.RejectionReason,
			&item.EvaluatedBy, &item.EvaluatedAt, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	return items, nil
}

func scanItem(row pgx.Row) (*models.ProductionItem, error) {
	var item models.ProductionItem
	err := row.Scan(
		&item.ID, &item.RoundID, &item.TeamID, &item.FlavorID,
		&item.Status, &item.Result, &item.RejectionReason,
		&item.EvaluatedBy, &item.EvaluatedAt, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
