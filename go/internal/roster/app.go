package roster

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

// RosterRepository defines what the app layer needs from the repository
type RosterRepository interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListRosterEntries(ctx context.Context, leagueID uuid.UUID) ([]models.RosterEntry, error)
	ListTeamRoster(ctx context.Context, leagueID, teamID uuid.UUID) ([]models.RosterEntry, error)
}

// App serves roster reads. Roster rows are written only inside pick, trade
// and reset transactions, so the app exposes no mutations.
type App struct {
	repo RosterRepository
}

// NewApp creates a new roster App
func NewApp(repo RosterRepository) *App {
	return &App{
		repo: repo,
	}
}

// LeagueRosters retrieves every roster entry in the league, oldest first.
func (a *App) LeagueRosters(ctx context.Context, leagueID uuid.UUID) ([]models.RosterEntry, error) {
	_, err := a.repo.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("league not found: %w", err)
	}

	entries, err := a.repo.ListRosterEntries(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list league rosters: %w", err)
	}
	return entries, nil
}

// TeamRoster retrieves one team's roster entries, oldest first.
func (a *App) TeamRoster(ctx context.Context, leagueID, teamID uuid.UUID) ([]models.RosterEntry, error) {
	team, err := a.repo.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("team not found: %w", err)
	}
	if team.LeagueID != leagueID {
		return nil, fmt.Errorf("team %s is not in league %s: %w", teamID, leagueID, repository.ErrNotFound)
	}

	entries, err := a.repo.ListTeamRoster(ctx, leagueID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team roster: %w", err)
	}
	return entries, nil
}

// TeamKeepers retrieves the keeper entries on one team's roster.
func (a *App) TeamKeepers(ctx context.Context, leagueID, teamID uuid.UUID) ([]models.RosterEntry, error) {
	entries, err := a.TeamRoster(ctx, leagueID, teamID)
	if err != nil {
		return nil, err
	}
	return filterKeepers(entries), nil
}

// LeagueKeepers retrieves every keeper entry in the league.
func (a *App) LeagueKeepers(ctx context.Context, leagueID uuid.UUID) ([]models.RosterEntry, error) {
	entries, err := a.LeagueRosters(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return filterKeepers(entries), nil
}

func filterKeepers(entries []models.RosterEntry) []models.RosterEntry {
	keepers := make([]models.RosterEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsKeeper {
			keepers = append(keepers, e)
		}
	}
	return keepers
}
