package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/sqlutil"
)

const listRosterEntriesQuery = `
SELECT id, league_id, team_id, player_id, is_keeper, keeper_round, acquired_via, acquired_at
FROM roster_entries
WHERE league_id = $1
ORDER BY acquired_at ASC, id ASC`

// ListRosterEntries returns every roster entry in the league, oldest first.
func (s *Store) ListRosterEntries(ctx context.Context, leagueID uuid.UUID) ([]models.RosterEntry, error) {
	entries, err := s.q.listRosterEntries(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster entries: %w", err)
	}
	return entries, nil
}

func (q *queries) listRosterEntries(ctx context.Context, leagueID uuid.UUID) ([]models.RosterEntry, error) {
	rows, err := q.db.QueryContext(ctx, listRosterEntriesQuery, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.RosterEntry
	for rows.Next() {
		e, err := scanRosterEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

const listTeamRosterQuery = `
SELECT id, league_id, team_id, player_id, is_keeper, keeper_round, acquired_via, acquired_at
FROM roster_entries
WHERE league_id = $1 AND team_id = $2
ORDER BY acquired_at ASC, id ASC`

// ListTeamRoster returns one team's roster entries, oldest first.
func (s *Store) ListTeamRoster(ctx context.Context, leagueID, teamID uuid.UUID) ([]models.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, listTeamRosterQuery, leagueID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team roster: %w", err)
	}
	defer rows.Close()

	var entries []models.RosterEntry
	for rows.Next() {
		e, err := scanRosterEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

const insertRosterEntryQuery = `
INSERT INTO roster_entries (id, league_id, team_id, player_id, is_keeper, keeper_round, acquired_via, acquired_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (q *queries) insertRosterEntry(ctx context.Context, e models.RosterEntry) error {
	_, err := q.db.ExecContext(ctx, insertRosterEntryQuery,
		e.ID, e.LeagueID, e.TeamID, e.PlayerID, e.IsKeeper,
		sqlutil.ToSqlInt32(e.KeeperRound), e.AcquiredVia, e.AcquiredAt,
	)
	if uniqueViolation(err, "roster_entries_league_id_player_id_key") {
		return ErrPlayerTaken
	}
	return err
}

const deleteRosterEntryByPlayerQuery = `
DELETE FROM roster_entries WHERE league_id = $1 AND player_id = $2`

func (q *queries) deleteRosterEntryByPlayer(ctx context.Context, leagueID, playerID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteRosterEntryByPlayerQuery, leagueID, playerID)
	return err
}

const moveRosterEntryQuery = `
UPDATE roster_entries
SET team_id = $3, acquired_via = $4, acquired_at = $5
WHERE league_id = $1 AND player_id = $2`

// moveRosterEntry reassigns a player to another team in place, preserving
// the row rather than deleting and re-inserting. Returns ErrAssetUnavailable
// when the player has no roster entry in the league.
func (q *queries) moveRosterEntry(ctx context.Context, leagueID, playerID, toTeamID uuid.UUID, at time.Time) error {
	res, err := q.db.ExecContext(ctx, moveRosterEntryQuery,
		leagueID, playerID, toTeamID, models.AcquiredViaTraded, at,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAssetUnavailable
	}
	return nil
}

const lockRosterEntryQuery = `
SELECT id, league_id, team_id, player_id, is_keeper, keeper_round, acquired_via, acquired_at
FROM roster_entries
WHERE league_id = $1 AND player_id = $2
FOR UPDATE`

// lockRosterEntry row-locks a player's roster entry for the duration of the
// enclosing transaction.
func (q *queries) lockRosterEntry(ctx context.Context, leagueID, playerID uuid.UUID) (*models.RosterEntry, error) {
	return scanRosterEntry(q.db.QueryRowContext(ctx, lockRosterEntryQuery, leagueID, playerID))
}

const deleteNonKeeperEntriesQuery = `
DELETE FROM roster_entries
WHERE league_id = $1 AND NOT is_keeper`

// deleteNonKeeperEntries clears drafted and traded acquisitions while
// leaving keepers untouched. Used by draft reset.
func (q *queries) deleteNonKeeperEntries(ctx context.Context, leagueID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteNonKeeperEntriesQuery, leagueID)
	return err
}

func scanRosterEntry(row scanner) (*models.RosterEntry, error) {
	var (
		e           models.RosterEntry
		keeperRound sql.NullInt32
	)
	err := row.Scan(&e.ID, &e.LeagueID, &e.TeamID, &e.PlayerID,
		&e.IsKeeper, &keeperRound, &e.AcquiredVia, &e.AcquiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.KeeperRound = sqlutil.FromSqlInt32(keeperRound)
	return &e, nil
}
