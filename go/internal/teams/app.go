package teams

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
)

// TeamsRepository defines what the app layer needs from the repository
type TeamsRepository interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	ListTeams(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetTeamByOwner(ctx context.Context, leagueID, userID uuid.UUID) (*models.Team, error)
}

// App serves team reads. Team provisioning lives outside this service, and
// draft positions are rewritten only through the draft room's order update,
// so the app exposes no mutations.
type App struct {
	repo TeamsRepository
}

// NewApp creates a new teams App
func NewApp(repo TeamsRepository) *App {
	return &App{
		repo: repo,
	}
}

// ListByDraftOrder retrieves the league's teams in draft-position order.
func (a *App) ListByDraftOrder(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	_, err := a.repo.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("league not found: %w", err)
	}

	teams, err := a.repo.ListTeams(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// GetTeam retrieves a team by ID
func (a *App) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	team, err := a.repo.GetTeam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// GetOwnedTeam retrieves the team a user owns in the given league.
func (a *App) GetOwnedTeam(ctx context.Context, leagueID, userID uuid.UUID) (*models.Team, error) {
	team, err := a.repo.GetTeamByOwner(ctx, leagueID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team by owner: %w", err)
	}
	return team, nil
}
