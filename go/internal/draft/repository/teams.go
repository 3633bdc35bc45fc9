package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/sqlutil"
)

const listTeamsQuery = `
SELECT id, league_id, name, owner_user_id, draft_position, created_at
FROM teams
WHERE league_id = $1
ORDER BY draft_position ASC`

// ListTeams returns the league's teams in draft-position order.
func (s *Store) ListTeams(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	teams, err := s.q.listTeams(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (q *queries) listTeams(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	rows, err := q.db.QueryContext(ctx, listTeamsQuery, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *team)
	}
	return teams, rows.Err()
}

const getTeamQuery = `
SELECT id, league_id, name, owner_user_id, draft_position, created_at
FROM teams
WHERE id = $1`

func (s *Store) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	team, err := s.q.getTeam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

func (q *queries) getTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	return scanTeam(q.db.QueryRowContext(ctx, getTeamQuery, id))
}

const createTeamQuery = `
INSERT INTO teams (id, league_id, name, owner_user_id, draft_position)
VALUES ($1, $2, $3, $4, $5)`

func (s *Store) CreateTeam(ctx context.Context, team *models.Team) error {
	_, err := s.db.ExecContext(ctx, createTeamQuery,
		team.ID, team.LeagueID, team.Name,
		sqlutil.ToNullUUID(team.OwnerUserID), team.DraftPosition,
	)
	if err != nil {
		if uniqueViolation(err, "") {
			return fmt.Errorf("failed to create team: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

const updateTeamPositionQuery = `
UPDATE teams SET draft_position = $3 WHERE league_id = $1 AND id = $2`

// updateTeamPositions rewrites draft positions to match the given order.
// Positions pass through a negative offset first so the (league_id,
// draft_position) unique constraint never trips mid-rewrite.
func (q *queries) updateTeamPositions(ctx context.Context, leagueID uuid.UUID, ordered []uuid.UUID) error {
	for i, teamID := range ordered {
		if _, err := q.db.ExecContext(ctx, updateTeamPositionQuery, leagueID, teamID, -(i + 1)); err != nil {
			return fmt.Errorf("failed to stage team position: %w", err)
		}
	}
	for i, teamID := range ordered {
		res, err := q.db.ExecContext(ctx, updateTeamPositionQuery, leagueID, teamID, i+1)
		if err != nil {
			return fmt.Errorf("failed to update team position: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("team %s: %w", teamID, ErrNotFound)
		}
	}
	return nil
}

func scanTeam(row scanner) (*models.Team, error) {
	var (
		t     models.Team
		owner uuid.NullUUID
	)
	err := row.Scan(&t.ID, &t.LeagueID, &t.Name, &owner, &t.DraftPosition, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.OwnerUserID = sqlutil.FromNullUUID(owner)
	return &t, nil
}
