package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/sqlutil"
)

const pickColumns = `
id, league_id, season, round, pick_in_round, overall_pick_number,
original_owner_team_id, current_owner_team_id, selected_player_id,
selected_at, is_complete`

const getPickQuery = `
SELECT ` + pickColumns + `
FROM draft_picks
WHERE id = $1`

func (s *Store) GetPick(ctx context.Context, id uuid.UUID) (*models.DraftPick, error) {
	pick, err := s.q.getPick(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pick: %w", err)
	}
	return pick, nil
}

func (q *queries) getPick(ctx context.Context, id uuid.UUID) (*models.DraftPick, error) {
	return scanPick(q.db.QueryRowContext(ctx, getPickQuery, id))
}

const getPickByOverallQuery = `
SELECT ` + pickColumns + `
FROM draft_picks
WHERE league_id = $1 AND season = $2 AND overall_pick_number = $3`

func (s *Store) GetPickByOverall(ctx context.Context, leagueID uuid.UUID, season, overall int) (*models.DraftPick, error) {
	pick, err := scanPick(s.db.QueryRowContext(ctx, getPickByOverallQuery, leagueID, season, overall))
	if err != nil {
		return nil, fmt.Errorf("failed to get pick by overall: %w", err)
	}
	return pick, nil
}

const getFuturePickQuery = `
SELECT ` + pickColumns + `
FROM draft_picks
WHERE league_id = $1 AND season = $2 AND round = $3 AND original_owner_team_id = $4`

// GetFuturePick looks up a future-season slot by its original owner. Future
// picks only exist as rows once a trade has materialized them, so ErrNotFound
// is the common case.
func (s *Store) GetFuturePick(ctx context.Context, leagueID uuid.UUID, season, round int, originalOwner uuid.UUID) (*models.DraftPick, error) {
	pick, err := scanPick(s.db.QueryRowContext(ctx, getFuturePickQuery, leagueID, season, round, originalOwner))
	if err != nil {
		return nil, fmt.Errorf("failed to get future pick: %w", err)
	}
	return pick, nil
}

const listPicksQuery = `
SELECT ` + pickColumns + `
FROM draft_picks
WHERE league_id = $1 AND season = $2
ORDER BY overall_pick_number ASC NULLS LAST, round ASC, id ASC`

// ListPicks returns the season's picks in overall order. Unscheduled
// future-season picks sort after numbered ones.
func (s *Store) ListPicks(ctx context.Context, leagueID uuid.UUID, season int) ([]models.DraftPick, error) {
	picks, err := s.q.listPicks(ctx, leagueID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	return picks, nil
}

func (q *queries) listPicks(ctx context.Context, leagueID uuid.UUID, season int) ([]models.DraftPick, error) {
	rows, err := q.db.QueryContext(ctx, listPicksQuery, leagueID, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPicks(rows)
}

const nextIncompletePickQuery = `
SELECT ` + pickColumns + `
FROM draft_picks
WHERE league_id = $1 AND season = $2 AND NOT is_complete
  AND overall_pick_number IS NOT NULL
ORDER BY overall_pick_number ASC
LIMIT 1`

// NextIncompletePick returns the lowest-numbered open slot, or ErrNotFound
// when the board is fully selected.
func (s *Store) NextIncompletePick(ctx context.Context, leagueID uuid.UUID, season int) (*models.DraftPick, error) {
	pick, err := s.q.nextIncompletePick(ctx, leagueID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to get next incomplete pick: %w", err)
	}
	return pick, nil
}

func (q *queries) nextIncompletePick(ctx context.Context, leagueID uuid.UUID, season int) (*models.DraftPick, error) {
	return scanPick(q.db.QueryRowContext(ctx, nextIncompletePickQuery, leagueID, season))
}

const lockPickQuery = `
SELECT ` + pickColumns + `
FROM draft_picks
WHERE id = $1
FOR UPDATE`

// lockPick row-locks a pick for the duration of the enclosing transaction.
func (q *queries) lockPick(ctx context.Context, id uuid.UUID) (*models.DraftPick, error) {
	return scanPick(q.db.QueryRowContext(ctx, lockPickQuery, id))
}

const createPicksBatchQuery = `
INSERT INTO draft_picks (
    id, league_id, season, round, pick_in_round, overall_pick_number,
    original_owner_team_id, current_owner_team_id
)
SELECT unnest($1::uuid[]), unnest($2::uuid[]), unnest($3::int[]), unnest($4::int[]),
       unnest($5::int[]), unnest($6::int[]), unnest($7::uuid[]), unnest($8::uuid[])`

func (q *queries) createPicksBatch(ctx context.Context, picks []models.DraftPick) error {
	if len(picks) == 0 {
		return nil
	}
	var (
		ids       = make([]uuid.UUID, len(picks))
		leagueIDs = make([]uuid.UUID, len(picks))
		seasons   = make([]int64, len(picks))
		rounds    = make([]int64, len(picks))
		inRound   = make([]int64, len(picks))
		overalls  = make([]int64, len(picks))
		origins   = make([]uuid.UUID, len(picks))
		owners    = make([]uuid.UUID, len(picks))
	)
	for i, p := range picks {
		if p.PickInRound == nil || p.OverallPickNumber == nil {
			return fmt.Errorf("pick %s: batch insert requires scheduled picks", p.ID)
		}
		ids[i] = p.ID
		leagueIDs[i] = p.LeagueID
		seasons[i] = int64(p.Season)
		rounds[i] = int64(p.Round)
		inRound[i] = int64(*p.PickInRound)
		overalls[i] = int64(*p.OverallPickNumber)
		origins[i] = p.OriginalOwnerTeamID
		owners[i] = p.CurrentOwnerTeamID
	}
	_, err := q.db.ExecContext(ctx, createPicksBatchQuery,
		pq.Array(ids), pq.Array(leagueIDs), pq.Array(seasons), pq.Array(rounds),
		pq.Array(inRound), pq.Array(overalls), pq.Array(origins), pq.Array(owners),
	)
	if err != nil {
		return fmt.Errorf("failed to create picks batch: %w", err)
	}
	return nil
}

const deleteSeasonPicksQuery = `
DELETE FROM draft_picks WHERE league_id = $1 AND season = $2`

func (q *queries) deleteSeasonPicks(ctx context.Context, leagueID uuid.UUID, season int) error {
	_, err := q.db.ExecContext(ctx, deleteSeasonPicksQuery, leagueID, season)
	return err
}

const completePickQuery = `
UPDATE draft_picks
SET selected_player_id = $2, selected_at = $3, is_complete = TRUE
WHERE id = $1 AND NOT is_complete
RETURNING ` + pickColumns

func (q *queries) completePick(ctx context.Context, pickID, playerID uuid.UUID, at time.Time) (*models.DraftPick, error) {
	pick, err := scanPick(q.db.QueryRowContext(ctx, completePickQuery, pickID, playerID, at))
	if errors.Is(err, ErrNotFound) {
		// Distinguish a spent slot from a missing one.
		if _, getErr := q.getPick(ctx, pickID); getErr == nil {
			return nil, ErrPickCompleted
		}
		return nil, ErrNotFound
	}
	if uniqueViolation(err, "draft_picks_player_uq") {
		return nil, ErrPlayerTaken
	}
	return pick, err
}

const clearPickSelectionQuery = `
UPDATE draft_picks
SET selected_player_id = NULL, selected_at = NULL, is_complete = FALSE
WHERE id = $1 AND is_complete
RETURNING ` + pickColumns

func (q *queries) clearPickSelection(ctx context.Context, pickID uuid.UUID) (*models.DraftPick, error) {
	return scanPick(q.db.QueryRowContext(ctx, clearPickSelectionQuery, pickID))
}

const resetSeasonPicksQuery = `
UPDATE draft_picks
SET current_owner_team_id = original_owner_team_id,
    selected_player_id = NULL, selected_at = NULL, is_complete = FALSE
WHERE league_id = $1 AND season = $2`

// resetSeasonPicks returns every current-season slot to its original owner
// and wipes selections. Used by draft reset.
func (q *queries) resetSeasonPicks(ctx context.Context, leagueID uuid.UUID, season int) error {
	_, err := q.db.ExecContext(ctx, resetSeasonPicksQuery, leagueID, season)
	return err
}

const deleteFuturePicksQuery = `
DELETE FROM draft_picks WHERE league_id = $1 AND season > $2`

func (q *queries) deleteFuturePicks(ctx context.Context, leagueID uuid.UUID, season int) error {
	_, err := q.db.ExecContext(ctx, deleteFuturePicksQuery, leagueID, season)
	return err
}

const cancelPendingTradesQuery = `
UPDATE trades
SET status = $3, responded_at = $2
WHERE league_id = $1 AND status = 'PENDING'`

func (q *queries) cancelPendingTrades(ctx context.Context, leagueID uuid.UUID, at time.Time) error {
	_, err := q.db.ExecContext(ctx, cancelPendingTradesQuery, leagueID, at, models.TradeStatusCancelled)
	return err
}

const updatePickOwnerQuery = `
UPDATE draft_picks SET current_owner_team_id = $2 WHERE id = $1`

func (q *queries) updatePickOwner(ctx context.Context, pickID, teamID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updatePickOwnerQuery, pickID, teamID)
	return err
}

// StartDraftParams seeds the board and flips the state to IN_PROGRESS in one
// transaction.
type StartDraftParams struct {
	Picks    []models.DraftPick
	State    *models.DraftState
	Activity models.ActivityEntry
	Outbox   []models.OutboxEvent
}

func (s *Store) StartDraft(ctx context.Context, p StartDraftParams) error {
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		if err := q.createPicksBatch(ctx, p.Picks); err != nil {
			return err
		}
		if err := q.upsertDraftState(ctx, p.State); err != nil {
			return err
		}
		if err := q.insertActivity(ctx, p.Activity); err != nil {
			return err
		}
		return q.insertOutbox(ctx, p.Outbox)
	})
	if err != nil {
		return fmt.Errorf("failed to start draft: %w", err)
	}
	return nil
}

// CompletePickParams records a selection: the pick row, the roster entry it
// creates, the advanced state, and the audit/outbox rows, atomically.
type CompletePickParams struct {
	PickID      uuid.UUID
	PlayerID    uuid.UUID
	SelectedAt  time.Time
	RosterEntry models.RosterEntry
	State       *models.DraftState
	Activity    models.ActivityEntry
	Outbox      []models.OutboxEvent
}

func (s *Store) CompletePick(ctx context.Context, p CompletePickParams) (*models.DraftPick, error) {
	var pick *models.DraftPick
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		var err error
		pick, err = q.completePick(ctx, p.PickID, p.PlayerID, p.SelectedAt)
		if err != nil {
			return err
		}
		if err := q.insertRosterEntry(ctx, p.RosterEntry); err != nil {
			return err
		}
		if err := q.upsertDraftState(ctx, p.State); err != nil {
			return err
		}
		if err := q.insertActivity(ctx, p.Activity); err != nil {
			return err
		}
		return q.insertOutbox(ctx, p.Outbox)
	})
	if err != nil {
		if errors.Is(err, ErrPickCompleted) || errors.Is(err, ErrPlayerTaken) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to complete pick: %w", err)
	}
	return pick, nil
}

// UndoPickParams reverses the most recent selection.
type UndoPickParams struct {
	PickID   uuid.UUID
	PlayerID uuid.UUID
	LeagueID uuid.UUID
	State    *models.DraftState
	Activity models.ActivityEntry
	Outbox   []models.OutboxEvent
}

func (s *Store) UndoPick(ctx context.Context, p UndoPickParams) (*models.DraftPick, error) {
	var pick *models.DraftPick
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		var err error
		pick, err = q.clearPickSelection(ctx, p.PickID)
		if err != nil {
			return err
		}
		if err := q.deleteRosterEntryByPlayer(ctx, p.LeagueID, p.PlayerID); err != nil {
			return err
		}
		if err := q.upsertDraftState(ctx, p.State); err != nil {
			return err
		}
		if err := q.insertActivity(ctx, p.Activity); err != nil {
			return err
		}
		return q.insertOutbox(ctx, p.Outbox)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to undo pick: %w", err)
	}
	return pick, nil
}

// ResetDraftParams returns the league to its pre-draft shape: selections and
// non-keeper roster entries wiped, every current-season pick back with its
// original owner, future-season picks deleted, pending trades cancelled.
type ResetDraftParams struct {
	LeagueID uuid.UUID
	Season   int
	At       time.Time
	State    *models.DraftState
	Activity models.ActivityEntry
	Outbox   []models.OutboxEvent
}

func (s *Store) ResetDraft(ctx context.Context, p ResetDraftParams) error {
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		if err := q.cancelPendingTrades(ctx, p.LeagueID, p.At); err != nil {
			return err
		}
		if err := q.deleteFuturePicks(ctx, p.LeagueID, p.Season); err != nil {
			return err
		}
		if err := q.resetSeasonPicks(ctx, p.LeagueID, p.Season); err != nil {
			return err
		}
		if err := q.deleteNonKeeperEntries(ctx, p.LeagueID); err != nil {
			return err
		}
		if err := q.upsertDraftState(ctx, p.State); err != nil {
			return err
		}
		if err := q.insertActivity(ctx, p.Activity); err != nil {
			return err
		}
		return q.insertOutbox(ctx, p.Outbox)
	})
	if err != nil {
		return fmt.Errorf("failed to reset draft: %w", err)
	}
	return nil
}

// ApplyDraftOrderParams rewrites team positions and, when Picks is non-empty,
// regenerates the season's board. A paused-draft reorder passes no picks:
// positions change but the existing board survives. The coordinator enforces
// when each shape is legal.
type ApplyDraftOrderParams struct {
	LeagueID       uuid.UUID
	Season         int
	OrderedTeamIDs []uuid.UUID
	Picks          []models.DraftPick
	State          *models.DraftState
	Activity       models.ActivityEntry
	Outbox         []models.OutboxEvent
}

func (s *Store) ApplyDraftOrder(ctx context.Context, p ApplyDraftOrderParams) error {
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		if err := q.updateTeamPositions(ctx, p.LeagueID, p.OrderedTeamIDs); err != nil {
			return err
		}
		if len(p.Picks) > 0 {
			if err := q.deleteSeasonPicks(ctx, p.LeagueID, p.Season); err != nil {
				return err
			}
			if err := q.createPicksBatch(ctx, p.Picks); err != nil {
				return err
			}
		}
		if p.State != nil {
			if err := q.upsertDraftState(ctx, p.State); err != nil {
				return err
			}
		}
		if err := q.insertActivity(ctx, p.Activity); err != nil {
			return err
		}
		return q.insertOutbox(ctx, p.Outbox)
	})
	if err != nil {
		return fmt.Errorf("failed to apply draft order: %w", err)
	}
	return nil
}

func scanPick(row scanner) (*models.DraftPick, error) {
	var (
		p           models.DraftPick
		pickInRound sql.NullInt32
		overall     sql.NullInt32
		playerID    uuid.NullUUID
		selectedAt  sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.LeagueID, &p.Season, &p.Round, &pickInRound, &overall,
		&p.OriginalOwnerTeamID, &p.CurrentOwnerTeamID, &playerID, &selectedAt,
		&p.IsComplete,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.PickInRound = sqlutil.FromSqlInt32(pickInRound)
	p.OverallPickNumber = sqlutil.FromSqlInt32(overall)
	p.SelectedPlayerID = sqlutil.FromNullUUID(playerID)
	p.SelectedAt = sqlutil.FromSqlTime(selectedAt)
	return &p, nil
}

func collectPicks(rows *sql.Rows) ([]models.DraftPick, error) {
	var picks []models.DraftPick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, err
		}
		picks = append(picks, *p)
	}
	return picks, rows.Err()
}
