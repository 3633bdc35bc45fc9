package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

// ErrInvalidToken covers unknown and expired session tokens.
var ErrInvalidToken = errors.New("invalid token")

// Repository defines what the auth app needs from the store.
type Repository interface {
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	GetTeamByOwner(ctx context.Context, leagueID, userID uuid.UUID) (*models.Team, error)
}

// Identity is the resolved caller of a session token.
type Identity struct {
	UserID   uuid.UUID
	Username string
	IsAdmin  bool
}

// Membership describes a user's standing in one league. TeamID is set only
// when the user owns a team there; a commissioner without a team is still a
// member.
type Membership struct {
	IsMember       bool
	IsCommissioner bool
	TeamID         *uuid.UUID
}

// App resolves tokens and league membership for the gateway.
type App struct {
	repo Repository
}

func NewApp(repo Repository) *App {
	return &App{
		repo: repo,
	}
}

// Identify resolves a bearer token to an identity.
func (a *App) Identify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := a.repo.GetUserByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to identify token: %w", err)
	}
	return &Identity{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}, nil
}

// LeagueMembership resolves the user's standing in the league.
func (a *App) LeagueMembership(ctx context.Context, userID, leagueID uuid.UUID) (*Membership, error) {
	league, err := a.repo.GetLeague(ctx, leagueID)
	if errors.Is(err, repository.ErrNotFound) {
		return &Membership{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load league for membership: %w", err)
	}

	m := &Membership{}
	if league.CommissionerUserID == userID {
		m.IsMember = true
		m.IsCommissioner = true
	}
	team, err := a.repo.GetTeamByOwner(ctx, leagueID, userID)
	switch {
	case err == nil:
		m.IsMember = true
		m.TeamID = &team.ID
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load team for membership: %w", err)
	}
	return m, nil
}
