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

// SnapshotData is everything a full client resync needs, read in a single
// consistent view.
type SnapshotData struct {
	League    *models.League
	State     *models.DraftState
	Teams     []models.Team
	Picks     []models.DraftPick
	Available []models.Player
	Rosters   []models.RosterEntry
	Pending   []models.Trade
	Queues    []models.TeamQueue
}

// ReadSnapshot collects the league's full draft picture inside one
// repeatable-read, read-only transaction so concurrent picks or trades can
// never bleed a half-applied change into the snapshot.
func (s *Store) ReadSnapshot(ctx context.Context, leagueID uuid.UUID, availableLimit int, now time.Time) (*SnapshotData, error) {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	snap := &SnapshotData{}
	err := sqlutil.RunTx(ctx, s.db, opts, newQueries, func(q *queries) error {
		var err error
		if snap.League, err = q.getLeague(ctx, leagueID); err != nil {
			return fmt.Errorf("failed to read snapshot league: %w", err)
		}
		// A league that never drafted has no state row yet; it reads as a
		// fresh NOT_STARTED draft rather than an error.
		snap.State, err = q.getDraftState(ctx, leagueID)
		if errors.Is(err, ErrNotFound) {
			snap.State = models.NewDraftState(leagueID, now)
		} else if err != nil {
			return fmt.Errorf("failed to read snapshot state: %w", err)
		}
		if snap.Teams, err = q.listTeams(ctx, leagueID); err != nil {
			return fmt.Errorf("failed to read snapshot teams: %w", err)
		}
		if snap.Picks, err = q.listPicks(ctx, leagueID, snap.League.CurrentSeason); err != nil {
			return fmt.Errorf("failed to read snapshot picks: %w", err)
		}
		if snap.Available, err = q.listAvailablePlayers(ctx, leagueID, availableLimit); err != nil {
			return fmt.Errorf("failed to read snapshot players: %w", err)
		}
		if snap.Rosters, err = q.listRosterEntries(ctx, leagueID); err != nil {
			return fmt.Errorf("failed to read snapshot rosters: %w", err)
		}
		if snap.Pending, err = q.listPendingTrades(ctx, leagueID, now); err != nil {
			return fmt.Errorf("failed to read snapshot trades: %w", err)
		}
		if snap.Queues, err = q.listTeamQueues(ctx, leagueID); err != nil {
			return fmt.Errorf("failed to read snapshot queues: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
