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

const insertTradeQuery = `
INSERT INTO trades (
    id, league_id, initiator_team_id, receiver_team_id, status,
    proposed_at, expires_at, forced_by_commissioner
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const insertTradeAssetQuery = `
INSERT INTO trade_assets (
    id, trade_id, from_team_id, kind, draft_pick_id, player_id,
    future_pick_season, future_pick_round
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// CreateTrade writes the trade header and its assets in one transaction,
// together with the proposal's activity and outbox rows.
func (s *Store) CreateTrade(ctx context.Context, trade *models.Trade, activity models.ActivityEntry, outbox []models.OutboxEvent) error {
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		_, err := q.db.ExecContext(ctx, insertTradeQuery,
			trade.ID, trade.LeagueID, trade.InitiatorTeamID, trade.ReceiverTeamID,
			trade.Status, trade.ProposedAt, trade.ExpiresAt, trade.ForcedByCommissioner,
		)
		if err != nil {
			return err
		}
		for _, a := range trade.Assets {
			_, err := q.db.ExecContext(ctx, insertTradeAssetQuery,
				a.ID, a.TradeID, a.FromTeamID, a.Kind,
				sqlutil.ToNullUUID(a.DraftPickID), sqlutil.ToNullUUID(a.PlayerID),
				sqlutil.ToSqlInt32(a.FuturePickSeason), sqlutil.ToSqlInt32(a.FuturePickRound),
			)
			if err != nil {
				return err
			}
		}
		if err := q.insertActivity(ctx, activity); err != nil {
			return err
		}
		return q.insertOutbox(ctx, outbox)
	})
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

const getTradeQuery = `
SELECT id, league_id, initiator_team_id, receiver_team_id, status,
       proposed_at, responded_at, processed_at, expires_at,
       forced_by_commissioner, commissioner_notes
FROM trades
WHERE id = $1`

func (s *Store) GetTrade(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	trade, err := s.q.getTrade(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

func (q *queries) getTrade(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Trade, error) {
	query := getTradeQuery
	if forUpdate {
		query += " FOR UPDATE"
	}
	trade, err := scanTrade(q.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	assets, err := q.listTradeAssets(ctx, id)
	if err != nil {
		return nil, err
	}
	trade.Assets = assets
	return trade, nil
}

const listTradeAssetsQuery = `
SELECT id, trade_id, from_team_id, kind, draft_pick_id, player_id,
       future_pick_season, future_pick_round
FROM trade_assets
WHERE trade_id = $1
ORDER BY id ASC`

func (q *queries) listTradeAssets(ctx context.Context, tradeID uuid.UUID) ([]models.TradeAsset, error) {
	rows, err := q.db.QueryContext(ctx, listTradeAssetsQuery, tradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []models.TradeAsset
	for rows.Next() {
		var (
			a        models.TradeAsset
			pickID   uuid.NullUUID
			playerID uuid.NullUUID
			season   sql.NullInt32
			round    sql.NullInt32
		)
		if err := rows.Scan(&a.ID, &a.TradeID, &a.FromTeamID, &a.Kind,
			&pickID, &playerID, &season, &round); err != nil {
			return nil, err
		}
		a.DraftPickID = sqlutil.FromNullUUID(pickID)
		a.PlayerID = sqlutil.FromNullUUID(playerID)
		a.FuturePickSeason = sqlutil.FromSqlInt32(season)
		a.FuturePickRound = sqlutil.FromSqlInt32(round)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Snapshot reads only surface live proposals: PENDING rows whose window is
// still open. Overdue rows flip to EXPIRED lazily, on the next touch.
const listPendingTradesQuery = `
SELECT id, league_id, initiator_team_id, receiver_team_id, status,
       proposed_at, responded_at, processed_at, expires_at,
       forced_by_commissioner, commissioner_notes
FROM trades
WHERE league_id = $1 AND status = 'PENDING' AND expires_at > $2
ORDER BY proposed_at ASC`

func (s *Store) ListPendingTrades(ctx context.Context, leagueID uuid.UUID, now time.Time) ([]models.Trade, error) {
	trades, err := s.q.listPendingTrades(ctx, leagueID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending trades: %w", err)
	}
	return trades, nil
}

func (q *queries) listPendingTrades(ctx context.Context, leagueID uuid.UUID, now time.Time) ([]models.Trade, error) {
	rows, err := q.db.QueryContext(ctx, listPendingTradesQuery, leagueID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range trades {
		assets, err := q.listTradeAssets(ctx, trades[i].ID)
		if err != nil {
			return nil, err
		}
		trades[i].Assets = assets
	}
	return trades, nil
}

const updateTradeStatusQuery = `
UPDATE trades
SET status = $2, responded_at = $3,
    commissioner_notes = COALESCE($4, commissioner_notes)
WHERE id = $1 AND status = 'PENDING'`

// ResolveTradeParams closes a PENDING trade without a swap: REJECTED,
// CANCELLED, VETOED or EXPIRED.
type ResolveTradeParams struct {
	TradeID     uuid.UUID
	Status      models.TradeStatus
	RespondedAt time.Time
	Notes       *string
	Activity    models.ActivityEntry
	Outbox      []models.OutboxEvent
}

func (s *Store) ResolveTrade(ctx context.Context, p ResolveTradeParams) error {
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		res, err := q.db.ExecContext(ctx, updateTradeStatusQuery,
			p.TradeID, p.Status, p.RespondedAt, sqlutil.ToSqlString(p.Notes),
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrTradeNotPending
		}
		if err := q.insertActivity(ctx, p.Activity); err != nil {
			return err
		}
		return q.insertOutbox(ctx, p.Outbox)
	})
	if err != nil {
		if errors.Is(err, ErrTradeNotPending) {
			return err
		}
		return fmt.Errorf("failed to resolve trade: %w", err)
	}
	return nil
}

// TradeSwapResult reports what an executed swap changed.
type TradeSwapResult struct {
	Trade        models.Trade
	UpdatedPicks []models.DraftPick
	MovedEntries []models.RosterEntry
}

// ExecuteTradeSwapParams drives the single-transaction accept path. Both
// callbacks run after the swap, still inside the transaction: State lets the
// coordinator commit a reconciled turn or an auto-pause atomically with the
// ownership changes, and Events can reference picks materialized during the
// swap. Either may be nil.
type ExecuteTradeSwapParams struct {
	TradeID uuid.UUID
	Now     time.Time
	Forced  bool
	Notes   *string
	State   func(res *TradeSwapResult) *models.DraftState
	Events  func(res *TradeSwapResult) (models.ActivityEntry, []models.OutboxEvent)
}

const claimTradeQuery = `
UPDATE trades SET status = $2 WHERE id = $1`

const completeTradeQuery = `
UPDATE trades
SET status = $2, responded_at = $3, processed_at = $3,
    forced_by_commissioner = $4,
    commissioner_notes = COALESCE($5, commissioner_notes)
WHERE id = $1`

// ExecuteTradeSwap accepts a trade atomically: it row-locks the trade,
// re-validates status and expiry, locks and re-validates every asset, swaps
// ownership in place, and completes the trade, all in one transaction.
//
// Validation failures return sentinel errors and roll the whole swap back:
// ErrTradeNotPending, ErrTradeExpired, ErrAssetUnavailable, ErrNotFound.
func (s *Store) ExecuteTradeSwap(ctx context.Context, p ExecuteTradeSwapParams) (*TradeSwapResult, error) {
	var result *TradeSwapResult
	err := sqlutil.Run(ctx, s.db, newQueries, func(q *queries) error {
		trade, err := q.getTrade(ctx, p.TradeID, true)
		if err != nil {
			return err
		}
		if trade.Status != models.TradeStatusPending {
			return ErrTradeNotPending
		}
		if trade.Expired(p.Now) {
			return ErrTradeExpired
		}
		if _, err := q.db.ExecContext(ctx, claimTradeQuery, trade.ID, models.TradeStatusProcessing); err != nil {
			return err
		}

		res := &TradeSwapResult{}
		for _, asset := range trade.Assets {
			toTeam := trade.ReceiverTeamID
			if asset.FromTeamID == trade.ReceiverTeamID {
				toTeam = trade.InitiatorTeamID
			}
			switch asset.Kind {
			case models.AssetKindDraftPick:
				pick, err := q.swapPickAsset(ctx, trade, asset, toTeam)
				if err != nil {
					return err
				}
				res.UpdatedPicks = append(res.UpdatedPicks, *pick)
			case models.AssetKindPlayer:
				entry, err := q.swapPlayerAsset(ctx, trade, asset, toTeam, p.Now)
				if err != nil {
					return err
				}
				res.MovedEntries = append(res.MovedEntries, *entry)
			case models.AssetKindFuturePick:
				pick, err := q.swapFuturePickAsset(ctx, trade, asset, toTeam)
				if err != nil {
					return err
				}
				res.UpdatedPicks = append(res.UpdatedPicks, *pick)
			default:
				return fmt.Errorf("trade %s: unknown asset kind %q", trade.ID, asset.Kind)
			}
		}

		if _, err := q.db.ExecContext(ctx, completeTradeQuery,
			trade.ID, models.TradeStatusCompleted, p.Now, p.Forced,
			sqlutil.ToSqlString(p.Notes),
		); err != nil {
			return err
		}

		trade.Status = models.TradeStatusCompleted
		trade.RespondedAt = &p.Now
		trade.ProcessedAt = &p.Now
		trade.ForcedByCommissioner = p.Forced
		if p.Notes != nil {
			trade.CommissionerNotes = p.Notes
		}
		res.Trade = *trade
		result = res

		if p.State != nil {
			if st := p.State(res); st != nil {
				if err := q.upsertDraftState(ctx, st); err != nil {
					return err
				}
			}
		}
		if p.Events != nil {
			activity, outbox := p.Events(res)
			if err := q.insertActivity(ctx, activity); err != nil {
				return err
			}
			if err := q.insertOutbox(ctx, outbox); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTradeNotPending) || errors.Is(err, ErrTradeExpired) ||
			errors.Is(err, ErrAssetUnavailable) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to execute trade swap: %w", err)
	}
	return result, nil
}

// swapPickAsset reassigns an existing pick. The sending team must still own
// the slot and it must still be unselected.
func (q *queries) swapPickAsset(ctx context.Context, trade *models.Trade, asset models.TradeAsset, toTeam uuid.UUID) (*models.DraftPick, error) {
	pick, err := q.lockPick(ctx, *asset.DraftPickID)
	if err != nil {
		return nil, err
	}
	if pick.LeagueID != trade.LeagueID || pick.CurrentOwnerTeamID != asset.FromTeamID || pick.IsComplete {
		return nil, ErrAssetUnavailable
	}
	if err := q.updatePickOwner(ctx, pick.ID, toTeam); err != nil {
		return nil, err
	}
	pick.CurrentOwnerTeamID = toTeam
	return pick, nil
}

// swapPlayerAsset moves a rostered player. Keeper flags survive the move.
func (q *queries) swapPlayerAsset(ctx context.Context, trade *models.Trade, asset models.TradeAsset, toTeam uuid.UUID, now time.Time) (*models.RosterEntry, error) {
	entry, err := q.lockRosterEntry(ctx, trade.LeagueID, *asset.PlayerID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAssetUnavailable
	}
	if err != nil {
		return nil, err
	}
	if entry.TeamID != asset.FromTeamID {
		return nil, ErrAssetUnavailable
	}
	if err := q.moveRosterEntry(ctx, trade.LeagueID, entry.PlayerID, toTeam, now); err != nil {
		return nil, err
	}
	entry.TeamID = toTeam
	entry.AcquiredVia = models.AcquiredViaTraded
	entry.AcquiredAt = now
	return entry, nil
}

const getFuturePickForUpdateQuery = `
SELECT ` + pickColumns + `
FROM draft_picks
WHERE league_id = $1 AND season = $2 AND round = $3 AND original_owner_team_id = $4
FOR UPDATE`

const insertFuturePickQuery = `
INSERT INTO draft_picks (
    id, league_id, season, round, original_owner_team_id, current_owner_team_id
) VALUES ($1, $2, $3, $4, $5, $6)`

// swapFuturePickAsset materializes the sending team's future slot on first
// trade, or reassigns the already-materialized row. A FUTURE_PICK asset
// always names the sender's own original slot; re-trading an acquired future
// pick goes through the DRAFT_PICK path with the materialized row's id.
func (q *queries) swapFuturePickAsset(ctx context.Context, trade *models.Trade, asset models.TradeAsset, toTeam uuid.UUID) (*models.DraftPick, error) {
	pick, err := scanPick(q.db.QueryRowContext(ctx, getFuturePickForUpdateQuery,
		trade.LeagueID, *asset.FuturePickSeason, *asset.FuturePickRound, asset.FromTeamID))
	switch {
	case errors.Is(err, ErrNotFound):
		fresh := models.DraftPick{
			ID:                  uuid.New(),
			LeagueID:            trade.LeagueID,
			Season:              *asset.FuturePickSeason,
			Round:               *asset.FuturePickRound,
			OriginalOwnerTeamID: asset.FromTeamID,
			CurrentOwnerTeamID:  toTeam,
		}
		if _, err := q.db.ExecContext(ctx, insertFuturePickQuery,
			fresh.ID, fresh.LeagueID, fresh.Season, fresh.Round,
			fresh.OriginalOwnerTeamID, fresh.CurrentOwnerTeamID,
		); err != nil {
			return nil, err
		}
		return &fresh, nil
	case err != nil:
		return nil, err
	}
	if pick.CurrentOwnerTeamID != asset.FromTeamID || pick.IsComplete {
		return nil, ErrAssetUnavailable
	}
	if err := q.updatePickOwner(ctx, pick.ID, toTeam); err != nil {
		return nil, err
	}
	pick.CurrentOwnerTeamID = toTeam
	return pick, nil
}

func scanTrade(row scanner) (*models.Trade, error) {
	var (
		t           models.Trade
		respondedAt sql.NullTime
		processedAt sql.NullTime
		notes       sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.LeagueID, &t.InitiatorTeamID, &t.ReceiverTeamID, &t.Status,
		&t.ProposedAt, &respondedAt, &processedAt, &t.ExpiresAt,
		&t.ForcedByCommissioner, &notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.RespondedAt = sqlutil.FromSqlTime(respondedAt)
	t.ProcessedAt = sqlutil.FromSqlTime(processedAt)
	t.CommissionerNotes = sqlutil.FromSqlStringPtr(notes)
	return &t, nil
}
