package flavors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mvcampos/gelateria/go/internal/models"
)

var ErrFlavorNotFound = errors.New("flavor not found")

// Repository implements flavor catalog data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new flavors repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const flavorColumns = `id, name, active, created_at`

func (r *Repository) CreateFlavor(ctx context.Context, flavor models.Flavor) (*models.Flavor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO flavors (id, name, active)
		VALUES ($1, $2, $3)
		RETURNING `+flavorColumns,
		flavor.ID, flavor.Name, flavor.Active,
	)
	created, err := scanFlavor(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create flavor: %w", err)
	}
	return created, nil
}

func (r *Repository) GetFlavor(ctx context.Context, id uuid.UUID) (*models.Flavor, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+flavorColumns+` FROM flavors WHERE id = $1`, id)
	flavor, err := scanFlavor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFlavorNotFound
		}
		return nil, fmt.Errorf("failed to get flavor: %w", err)
	}
	return flavor, nil
}

func (r *Repository) ListFlavors(ctx context.Context) ([]models.Flavor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+flavorColumns+` FROM flavors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list flavors: %w", err)
	}
	defer rows.Close()
	return collectFlavors(rows)
}

func (r *Repository) ListActiveFlavors(ctx context.Context) ([]models.Flavor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+flavorColumns+` FROM flavors WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active flavors: %w", err)
	}
	defer rows.Close()
	return collectFlavors(rows)
}

// SetFlavorActive toggles whether a flavor can appear in new round sequences.
// Sequences already planned keep their entries.
func (r *Repository) SetFlavorActive(ctx context.Context, id uuid.UUID, active bool) (*models.Flavor, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE flavors SET active = $2 WHERE id = $1
		RETURNING `+flavorColumns,
		id, active,
	)
	flavor, err := scanFlavor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFlavorNotFound
		}
		return nil, fmt.Errorf("failed to update flavor: %w", err)
	}
	return flavor, nil
}

func scanFlavor(row pgx.Row) (*models.Flavor, error) {
	var f models.Flavor
	if err := row.Scan(&f.ID, &f.Name, &f.Active, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFlavors(rows pgx.Rows) ([]models.Flavor, error) {
	var out []models.Flavor
	for rows.Next() {
		f, err := scanFlavor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flavor: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flavors: %w", err)
	}
	return out, nil
}
