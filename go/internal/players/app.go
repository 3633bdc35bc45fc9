package players

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/draft/snapshot"
	"github.com/mcdev12/keeper/go/internal/models"
)

// PlayersRepository defines what the app layer needs from the repository
type PlayersRepository interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.Player, error)
	PlayerAvailable(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error)
}

// App serves player catalog reads and per-league availability. The catalog
// itself is maintained by the seed tooling; nothing here writes players.
type App struct {
	repo PlayersRepository
}

// NewApp creates a new players App
func NewApp(repo PlayersRepository) *App {
	return &App{
		repo: repo,
	}
}

// GetPlayer retrieves a player by ID
func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	player, err := a.repo.GetPlayer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// ListAvailable retrieves the league's undrafted pool, best rank first.
// Limits outside (0, snapshot.AvailableLimit] are clamped to the same cap
// the draft room applies to its state snapshots.
func (a *App) ListAvailable(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.Player, error) {
	_, err := a.repo.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("league not found: %w", err)
	}

	if limit <= 0 || limit > snapshot.AvailableLimit {
		limit = snapshot.AvailableLimit
	}
	players, err := a.repo.ListAvailablePlayers(ctx, leagueID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	return players, nil
}

// IsAvailable reports whether the player is active and unrostered in the
// league. Unknown players read as unavailable.
func (a *App) IsAvailable(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error) {
	available, err := a.repo.PlayerAvailable(ctx, leagueID, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return available, nil
}
