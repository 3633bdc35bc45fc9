package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/sqlutil"
)

const getLeagueQuery = `
SELECT id, name, sport_id, commissioner_user_id, max_teams, roster_template,
       draft_type, total_rounds, timer_seconds, reserve_seconds, pause_on_trade,
       max_keepers, current_season, scheduled_start, keeper_deadline,
       created_at, updated_at
FROM leagues
WHERE id = $1`

func (s *Store) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	league, err := s.q.getLeague(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	return league, nil
}

func (q *queries) getLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	return scanLeague(q.db.QueryRowContext(ctx, getLeagueQuery, id))
}

const createLeagueQuery = `
INSERT INTO leagues (
    id, name, sport_id, commissioner_user_id, max_teams, roster_template,
    draft_type, total_rounds, timer_seconds, reserve_seconds, pause_on_trade,
    max_keepers, current_season, scheduled_start, keeper_deadline
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func (s *Store) CreateLeague(ctx context.Context, league *models.League) error {
	tpl, err := json.Marshal(league.RosterTemplate)
	if err != nil {
		return fmt.Errorf("failed to marshal roster template: %w", err)
	}
	_, err = s.db.ExecContext(ctx, createLeagueQuery,
		league.ID, league.Name, league.SportID, league.CommissionerUserID,
		league.MaxTeams, tpl, league.DraftType, league.TotalRounds,
		league.TimerSeconds, league.ReserveSeconds, league.PauseOnTrade,
		league.MaxKeepers, league.CurrentSeason,
		sqlutil.ToSqlTime(league.ScheduledStart),
		sqlutil.ToSqlTime(league.KeeperDeadline),
	)
	if err != nil {
		return fmt.Errorf("failed to create league: %w", err)
	}
	return nil
}

const updateLeagueSettingsQuery = `
UPDATE leagues
SET name = $2, roster_template = $3, draft_type = $4, total_rounds = $5,
    timer_seconds = $6, reserve_seconds = $7, pause_on_trade = $8,
    max_keepers = $9, scheduled_start = $10, keeper_deadline = $11,
    updated_at = now()
WHERE id = $1`

// UpdateLeagueSettings rewrites the commissioner-editable settings columns.
func (s *Store) UpdateLeagueSettings(ctx context.Context, league *models.League) error {
	tpl, err := json.Marshal(league.RosterTemplate)
	if err != nil {
		return fmt.Errorf("failed to marshal roster template: %w", err)
	}
	res, err := s.db.ExecContext(ctx, updateLeagueSettingsQuery,
		league.ID, league.Name, tpl, league.DraftType, league.TotalRounds,
		league.TimerSeconds, league.ReserveSeconds, league.PauseOnTrade,
		league.MaxKeepers,
		sqlutil.ToSqlTime(league.ScheduledStart),
		sqlutil.ToSqlTime(league.KeeperDeadline),
	)
	if err != nil {
		return fmt.Errorf("failed to update league settings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLeague(row scanner) (*models.League, error) {
	var (
		l              models.League
		tpl            []byte
		scheduledStart sql.NullTime
		keeperDeadline sql.NullTime
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.SportID, &l.CommissionerUserID, &l.MaxTeams, &tpl,
		&l.DraftType, &l.TotalRounds, &l.TimerSeconds, &l.ReserveSeconds,
		&l.PauseOnTrade, &l.MaxKeepers, &l.CurrentSeason,
		&scheduledStart, &keeperDeadline, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tpl, &l.RosterTemplate); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster template: %w", err)
	}
	l.ScheduledStart = sqlutil.FromSqlTime(scheduledStart)
	l.KeeperDeadline = sqlutil.FromSqlTime(keeperDeadline)
	return &l, nil
}
