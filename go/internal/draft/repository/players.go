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

const getPlayerQuery = `
SELECT id, full_name, position, nfl_team, rank, adp, bye_week, injury_status, active, created_at
FROM players
WHERE id = $1`

func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	player, err := s.q.getPlayer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

func (q *queries) getPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayerQuery, id))
}

// Availability is defined by roster membership: every completed selection
// and keeper writes a roster entry in the same transaction, so one NOT
// EXISTS covers drafted, kept and traded players alike.
const listAvailablePlayersQuery = `
SELECT p.id, p.full_name, p.position, p.nfl_team, p.rank, p.adp, p.bye_week,
       p.injury_status, p.active, p.created_at
FROM players p
WHERE p.active
  AND NOT EXISTS (
      SELECT 1 FROM roster_entries re
      WHERE re.league_id = $1 AND re.player_id = p.id
  )
ORDER BY p.rank ASC NULLS LAST, p.id ASC
LIMIT $2`

// ListAvailablePlayers returns the undrafted pool for the league, best rank
// first, unranked players last, ties broken by player id.
func (s *Store) ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.Player, error) {
	players, err := s.q.listAvailablePlayers(ctx, leagueID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	return players, nil
}

func (q *queries) listAvailablePlayers(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.Player, error) {
	rows, err := q.db.QueryContext(ctx, listAvailablePlayersQuery, leagueID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

const playerAvailableQuery = `
SELECT p.active
  AND NOT EXISTS (
      SELECT 1 FROM roster_entries re
      WHERE re.league_id = $1 AND re.player_id = p.id
  )
FROM players p
WHERE p.id = $2`

// PlayerAvailable reports whether the player exists, is active, and is not
// rostered in the league.
func (s *Store) PlayerAvailable(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error) {
	var available bool
	err := s.db.QueryRowContext(ctx, playerAvailableQuery, leagueID, playerID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check player availability: %w", err)
	}
	return available, nil
}

func scanPlayer(row scanner) (*models.Player, error) {
	var (
		p       models.Player
		rank    sql.NullInt32
		adp     sql.NullFloat64
		byeWeek sql.NullInt16
	)
	err := row.Scan(
		&p.ID, &p.FullName, &p.Position, &p.NFLTeam,
		&rank, &adp, &byeWeek, &p.InjuryStatus, &p.Active, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Rank = sqlutil.FromSqlInt32(rank)
	p.ADP = sqlutil.FromSqlFloat64(adp)
	p.ByeWeek = sqlutil.FromSqlInt16(byeWeek)
	return &p, nil
}
