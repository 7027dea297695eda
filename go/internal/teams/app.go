package teams

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TeamRepository defines what the team app layer needs from the repository
type TeamRepository interface {
	CreateTeam(ctx context.Context, team models.Team) (*models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	DeleteTeam(ctx context.Context, id uuid.UUID) error
}

// App manages the producing teams.
type App struct {
	repo TeamRepository
}

// NewApp creates a new teams App
func NewApp(repo TeamRepository) *App {
	return &App{repo: repo}
}

// CreateTeam registers a producing team.
func (a *App) CreateTeam(ctx context.Context, name, color string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}

	team, err := a.repo.CreateTeam(ctx, models.Team{
		ID:    uuid.New(),
		Name:  name,
		Color: color,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("team_id", team.ID.String()).
		Str("name", team.Name).
		Msg("created team")

	return team, nil
}

// GetTeam retrieves a team by ID
func (a *App) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	return a.repo.GetTeam(ctx, id)
}

// ListTeams returns all registered teams
func (a *App) ListTeams(ctx context.Context) ([]models.Team, error) {
	return a.repo.ListTeams(ctx)
}

// DeleteTeam removes a team. Items it produced in past rounds keep their
// team_id for the history views.
func (a *App) DeleteTeam(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.DeleteTeam(ctx, id); err != nil {
		return err
	}

	log.Info().Str("team_id", id.String()).Msg("deleted team")
	return nil
}
