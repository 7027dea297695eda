package flavors

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// FlavorRepository defines what the flavor app layer needs from the repository
type FlavorRepository interface {
	CreateFlavor(ctx context.Context, flavor models.Flavor) (*models.Flavor, error)
	GetFlavor(ctx context.Context, id uuid.UUID) (*models.Flavor, error)
	ListFlavors(ctx context.Context) ([]models.Flavor, error)
	ListActiveFlavors(ctx context.Context) ([]models.Flavor, error)
	SetFlavorActive(ctx context.Context, id uuid.UUID, active bool) (*models.Flavor, error)
}

// App manages the flavor catalog that round sequences are planned from.
type App struct {
	repo FlavorRepository
}

// NewApp creates a new flavors App
func NewApp(repo FlavorRepository) *App {
	return &App{repo: repo}
}

// CreateFlavor registers a new catalog flavor, active by default.
func (a *App) CreateFlavor(ctx context.Context, name string) (*models.Flavor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("flavor name is required")
	}

	flavor, err := a.repo.CreateFlavor(ctx, models.Flavor{
		ID:     uuid.New(),
		Name:   name,
		Active: true,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("flavor_id", flavor.ID.String()).
		Str("name", flavor.Name).
		Msg("created flavor")

	return flavor, nil
}

// GetFlavor retrieves a flavor by ID
func (a *App) GetFlavor(ctx context.Context, id uuid.UUID) (*models.Flavor, error) {
	return a.repo.GetFlavor(ctx, id)
}

// ListFlavors returns the whole catalog, active and retired.
func (a *App) ListFlavors(ctx context.Context) ([]models.Flavor, error) {
	return a.repo.ListFlavors(ctx)
}

// ListActiveFlavors returns the flavors eligible for new round sequences.
func (a *App) ListActiveFlavors(ctx context.Context) ([]models.Flavor, error) {
	return a.repo.ListActiveFlavors(ctx)
}

// SetFlavorActive enables or retires a flavor. Retiring never touches
// sequences that were already planned with it.
func (a *App) SetFlavorActive(ctx context.Context, id uuid.UUID, active bool) (*models.Flavor, error) {
	flavor, err := a.repo.SetFlavorActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("flavor_id", flavor.ID.String()).
		Bool("active", flavor.Active).
		Msg("updated flavor")

	return flavor, nil
}
