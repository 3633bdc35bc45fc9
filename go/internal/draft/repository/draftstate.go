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

const getDraftStateQuery = `
SELECT league_id, status, current_round, current_pick, current_team_id,
       is_paused, pause_reason, timer_seconds_remaining, timer_started_at,
       last_pick_id, undo_available, started_at, completed_at, last_activity_at
FROM draft_states
WHERE league_id = $1`

func (s *Store) GetDraftState(ctx context.Context, leagueID uuid.UUID) (*models.DraftState, error) {
	state, err := s.q.getDraftState(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft state: %w", err)
	}
	return state, nil
}

func (q *queries) getDraftState(ctx context.Context, leagueID uuid.UUID) (*models.DraftState, error) {
	return scanDraftState(q.db.QueryRowContext(ctx, getDraftStateQuery, leagueID))
}

const upsertDraftStateQuery = `
INSERT INTO draft_states (
    league_id, status, current_round, current_pick, current_team_id,
    is_paused, pause_reason, timer_seconds_remaining, timer_started_at,
    last_pick_id, undo_available, started_at, completed_at, last_activity_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (league_id) DO UPDATE SET
    status = EXCLUDED.status,
    current_round = EXCLUDED.current_round,
    current_pick = EXCLUDED.current_pick,
    current_team_id = EXCLUDED.current_team_id,
    is_paused = EXCLUDED.is_paused,
    pause_reason = EXCLUDED.pause_reason,
    timer_seconds_remaining = EXCLUDED.timer_seconds_remaining,
    timer_started_at = EXCLUDED.timer_started_at,
    last_pick_id = EXCLUDED.last_pick_id,
    undo_available = EXCLUDED.undo_available,
    started_at = EXCLUDED.started_at,
    completed_at = EXCLUDED.completed_at,
    last_activity_at = EXCLUDED.last_activity_at`

// UpsertDraftState writes the full per-league draft row.
func (s *Store) UpsertDraftState(ctx context.Context, state *models.DraftState) error {
	if err := s.q.upsertDraftState(ctx, state); err != nil {
		return fmt.Errorf("failed to upsert draft state: %w", err)
	}
	return nil
}

func (q *queries) upsertDraftState(ctx context.Context, state *models.DraftState) error {
	_, err := q.db.ExecContext(ctx, upsertDraftStateQuery,
		state.LeagueID, state.Status, state.CurrentRound, state.CurrentPick,
		sqlutil.ToNullUUID(state.CurrentTeamID),
		state.IsPaused, sqlutil.ToSqlString(state.PauseReason),
		sqlutil.ToSqlInt32(state.TimerSecondsRemaining),
		sqlutil.ToSqlTime(state.TimerStartedAt),
		sqlutil.ToNullUUID(state.LastPickID),
		state.UndoAvailable,
		sqlutil.ToSqlTime(state.StartedAt),
		sqlutil.ToSqlTime(state.CompletedAt),
		state.LastActivityAt,
	)
	return err
}

// StateTransitionParams commits a lifecycle change (pause, resume, auto-pause)
// together with its journal and outbox rows.
type StateTransitionParams struct {
	State    *models.DraftState
	Activity models.ActivityEntry
	Outbox   []models.OutboxEvent
}

func (s *Store) SaveStateTransition(ctx context.Context, p StateTransitionParams) error {
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		if err := q.upsertDraftState(ctx, p.State); err != nil {
			return err
		}
		if err := q.insertActivity(ctx, p.Activity); err != nil {
			return err
		}
		return q.insertOutbox(ctx, p.Outbox)
	})
	if err != nil {
		return fmt.Errorf("failed to save state transition: %w", err)
	}
	return nil
}

const updateTimerRemainingQuery = `
UPDATE draft_states SET timer_seconds_remaining = $2 WHERE league_id = $1`

// UpdateTimerRemaining persists only the countdown column. The coordinator
// calls this every few ticks so a restart resumes near the live residual
// without paying a full-row write per second.
func (s *Store) UpdateTimerRemaining(ctx context.Context, leagueID uuid.UUID, seconds int) error {
	_, err := s.db.ExecContext(ctx, updateTimerRemainingQuery, leagueID, sqlutil.ToSqlInt32Direct(seconds))
	if err != nil {
		return fmt.Errorf("failed to update timer remaining: %w", err)
	}
	return nil
}

func scanDraftState(row scanner) (*models.DraftState, error) {
	var (
		st            models.DraftState
		currentTeamID uuid.NullUUID
		pauseReason   sql.NullString
		timerRemain   sql.NullInt32
		timerStarted  sql.NullTime
		lastPickID    uuid.NullUUID
		startedAt     sql.NullTime
		completedAt   sql.NullTime
	)
	err := row.Scan(
		&st.LeagueID, &st.Status, &st.CurrentRound, &st.CurrentPick,
		&currentTeamID, &st.IsPaused, &pauseReason, &timerRemain,
		&timerStarted, &lastPickID, &st.UndoAvailable,
		&startedAt, &completedAt, &st.LastActivityAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	st.CurrentTeamID = sqlutil.FromNullUUID(currentTeamID)
	st.PauseReason = sqlutil.FromSqlStringPtr(pauseReason)
	st.TimerSecondsRemaining = sqlutil.FromSqlInt32(timerRemain)
	st.TimerStartedAt = sqlutil.FromSqlTime(timerStarted)
	st.LastPickID = sqlutil.FromNullUUID(lastPickID)
	st.StartedAt = sqlutil.FromSqlTime(startedAt)
	st.CompletedAt = sqlutil.FromSqlTime(completedAt)
	return &st, nil
}
