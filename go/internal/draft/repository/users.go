package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
)

const getUserQuery = `
SELECT id, username, email, is_admin, created_at
FROM users
WHERE id = $1`

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.q.getUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (q *queries) getUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserQuery, id))
}

const getUserByTokenQuery = `
SELECT u.id, u.username, u.email, u.is_admin, u.created_at
FROM api_tokens t
JOIN users u ON u.id = t.user_id
WHERE t.token = $1
  AND (t.expires_at IS NULL OR t.expires_at > now())`

// GetUserByToken resolves an opaque bearer token to its user. Expired and
// unknown tokens both return ErrNotFound.
func (s *Store) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, getUserByTokenQuery, token))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return user, nil
}

const isLeagueMemberQuery = `
SELECT EXISTS (
    SELECT 1 FROM leagues WHERE id = $1 AND commissioner_user_id = $2
    UNION ALL
    SELECT 1 FROM teams WHERE league_id = $1 AND owner_user_id = $2
)`

// IsLeagueMember reports whether the user commissions the league or owns one
// of its teams.
func (s *Store) IsLeagueMember(ctx context.Context, leagueID, userID uuid.UUID) (bool, error) {
	var member bool
	if err := s.db.QueryRowContext(ctx, isLeagueMemberQuery, leagueID, userID).Scan(&member); err != nil {
		return false, fmt.Errorf("failed to check league membership: %w", err)
	}
	return member, nil
}

const getTeamByOwnerQuery = `
SELECT id, league_id, name, owner_user_id, draft_position, created_at
FROM teams
WHERE league_id = $1 AND owner_user_id = $2`

// GetTeamByOwner returns the team the user owns in the league, or
// ErrNotFound when they own none.
func (s *Store) GetTeamByOwner(ctx context.Context, leagueID, userID uuid.UUID) (*models.Team, error) {
	team, err := scanTeam(s.db.QueryRowContext(ctx, getTeamByOwnerQuery, leagueID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get team by owner: %w", err)
	}
	return team, nil
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
