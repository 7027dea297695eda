package sequence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mvcampos/gelateria/go/internal/models"
)

// Repository implements flavor sequence data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new sequence repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CountEntries(ctx context.Context, roundID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM flavor_sequence_entries WHERE round_id = $1`, roundID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sequence entries: %w", err)
	}
	return n, nil
}

// CreateEntries inserts a round's full sequence. The (round_id, ordinal)
// unique constraint plus ON CONFLICT DO NOTHING makes a racing second setup
// write zero rows instead of duplicating positions.
func (r *Repository) CreateEntries(ctx context.Context, entries []models.FlavorSequenceEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO flavor_sequence_entries (id, round_id, flavor_id, ordinal)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (round_id, ordinal) DO NOTHING`,
			e.ID, e.RoundID, e.FlavorID, e.Ordinal,
		)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert sequence entry: %w", err)
		}
	}
	return nil
}

func (r *Repository) ListEntries(ctx context.Context, roundID uuid.UUID) ([]models.FlavorSequenceEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, round_id, flavor_id, ordinal
		FROM flavor_sequence_entries
		WHERE round_id = $1
		ORDER BY ordinal`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequence entries: %w", err)
	}
	defer rows.Close()

	var entries []models.FlavorSequenceEntry
	for rows.Next() {
		var e models.FlavorSequenceEntry
		if err := rows.Scan(&e.ID, &e.RoundID, &e.FlavorID, &e.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan sequence entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sequence entries: %w", err)
	}
	return entries, nil
}
