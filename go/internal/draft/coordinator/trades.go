package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/draft/trade"
	"github.com/mcdev12/keeper/go/internal/models"
)

func (c *Coordinator) ProposeTrade(ctx context.Context, actor Actor, intent events.ProposeTradeIntent) error {
	return c.do(ctx, func(ctx context.Context) error { return c.proposeTrade(ctx, actor, intent) })
}

func (c *Coordinator) AcceptTrade(ctx context.Context, actor Actor, tradeID uuid.UUID) error {
	return c.do(ctx, func(ctx context.Context) error { return c.acceptTrade(ctx, actor, tradeID, false, nil) })
}

// ForceAcceptTrade executes a pending trade with commissioner authority,
// bypassing the receiver's consent.
func (c *Coordinator) ForceAcceptTrade(ctx context.Context, actor Actor, tradeID uuid.UUID, notes *string) error {
	return c.do(ctx, func(ctx context.Context) error { return c.acceptTrade(ctx, actor, tradeID, true, notes) })
}

func (c *Coordinator) RejectTrade(ctx context.Context, actor Actor, tradeID uuid.UUID) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.resolveTrade(ctx, actor, tradeID, models.TradeStatusRejected, nil)
	})
}

func (c *Coordinator) CancelTrade(ctx context.Context, actor Actor, tradeID uuid.UUID) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.resolveTrade(ctx, actor, tradeID, models.TradeStatusCancelled, nil)
	})
}

func (c *Coordinator) VetoTrade(ctx context.Context, actor Actor, tradeID uuid.UUID, notes *string) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.resolveTrade(ctx, actor, tradeID, models.TradeStatusVetoed, notes)
	})
}

func (c *Coordinator) proposeTrade(ctx context.Context, actor Actor, intent events.ProposeTradeIntent) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("propose trade", err)
	}
	// Proposing is strictly a team-owner action; the commissioner holds no
	// shortcut here.
	if actor.TeamID == nil || *actor.TeamID != intent.InitiatorTeamID {
		return events.Faultf(events.CodeUnauthorized, "trades can only be proposed for your own team")
	}
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("propose trade", err)
	}

	now := c.clock.Now()
	tr, err := c.trades.BuildProposal(ctx, league, intent, now)
	if err != nil {
		return c.faultFor("propose trade", err)
	}

	proposed := events.TradeProposedPayload{
		LeagueID:  c.leagueID,
		Trade:     events.NewTradeView(*tr),
		Timestamp: now,
	}
	err = c.store.CreateTrade(ctx, tr,
		c.activity(models.ActivityTradeProposed, &actor.UserID, map[string]any{
			"trade_id":         tr.ID,
			"receiver_team_id": tr.ReceiverTeamID,
			"assets":           len(tr.Assets),
		}, now),
		[]models.OutboxEvent{c.outboxRow(events.EventTypeTradeProposed, proposed, now)},
	)
	if err != nil {
		return c.faultFor("propose trade", err)
	}
	c.broadcast(events.EventTypeTradeProposed, proposed)
	return nil
}

// loadPendingTrade fetches a trade for a resolution op and applies the
// touch-expiry rule: touching an expired PENDING trade flips it to EXPIRED
// and refuses the original request.
func (c *Coordinator) loadPendingTrade(ctx context.Context, tradeID uuid.UUID, now time.Time) (*models.Trade, error) {
	tr, err := c.store.GetTrade(ctx, tradeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, events.Faultf(events.CodeTradeNotFound, "trade not found")
		}
		return nil, c.faultFor("load trade", err)
	}
	if tr.LeagueID != c.leagueID {
		return nil, events.Faultf(events.CodeTradeNotFound, "trade not found")
	}
	if tr.Status != models.TradeStatusPending {
		return nil, events.Faultf(events.CodeValidationFailed, "trade is already %s", tr.Status)
	}
	if tr.Expired(now) {
		return nil, c.expireTrade(ctx, tr, now)
	}
	return tr, nil
}

// expireTrade flips a stale PENDING trade and tells the league. The returned
// fault goes to whichever requester's touch surfaced the expiry.
func (c *Coordinator) expireTrade(ctx context.Context, tr *models.Trade, now time.Time) error {
	resolved := events.TradeResolvedPayload{
		LeagueID:  c.leagueID,
		TradeID:   tr.ID,
		Status:    string(models.TradeStatusExpired),
		Timestamp: now,
	}
	err := c.store.ResolveTrade(ctx, repository.ResolveTradeParams{
		TradeID:     tr.ID,
		Status:      models.TradeStatusExpired,
		RespondedAt: now,
		Activity:    c.activity(models.ActivityTradeExpired, nil, map[string]any{"trade_id": tr.ID}, now),
		Outbox:      []models.OutboxEvent{c.outboxRow(events.EventTypeTradeExpired, resolved, now)},
	})
	switch {
	case errors.Is(err, repository.ErrTradeNotPending):
		// Somebody else already resolved it; nothing to announce.
	case err != nil:
		return c.faultFor("expire trade", err)
	default:
		c.broadcast(events.EventTypeTradeExpired, resolved)
	}
	return events.Faultf(events.CodeTradeExpired, "trade offer has expired")
}

func (c *Coordinator) resolveTrade(ctx context.Context, actor Actor, tradeID uuid.UUID, status models.TradeStatus, notes *string) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("resolve trade", err)
	}
	now := c.clock.Now()
	tr, err := c.loadPendingTrade(ctx, tradeID, now)
	if err != nil {
		return err
	}
	if err := authorizeResolution(actor, tr, status); err != nil {
		return err
	}

	var (
		event    events.EventType
		activity models.ActivityType
	)
	switch status {
	case models.TradeStatusRejected:
		event, activity = events.EventTypeTradeRejected, models.ActivityTradeRejected
	case models.TradeStatusCancelled:
		event, activity = events.EventTypeTradeCancelled, models.ActivityTradeCancelled
	case models.TradeStatusVetoed:
		event, activity = events.EventTypeTradeVetoed, models.ActivityTradeVetoed
	default:
		return events.Faultf(events.CodeValidationFailed, "unsupported trade resolution %s", status)
	}

	resolved := events.TradeResolvedPayload{
		LeagueID:  c.leagueID,
		TradeID:   tr.ID,
		Status:    string(status),
		Notes:     notes,
		Timestamp: now,
	}
	err = c.store.ResolveTrade(ctx, repository.ResolveTradeParams{
		TradeID:     tr.ID,
		Status:      status,
		RespondedAt: now,
		Notes:       notes,
		Activity:    c.activity(activity, &actor.UserID, map[string]any{"trade_id": tr.ID}, now),
		Outbox:      []models.OutboxEvent{c.outboxRow(event, resolved, now)},
	})
	if err != nil {
		return c.faultFor("resolve trade", err)
	}
	c.broadcast(event, resolved)
	return nil
}

func authorizeResolution(actor Actor, tr *models.Trade, status models.TradeStatus) error {
	if actor.IsCommissioner {
		return nil
	}
	owns := func(teamID uuid.UUID) bool {
		return actor.TeamID != nil && *actor.TeamID == teamID
	}
	switch status {
	case models.TradeStatusRejected:
		if owns(tr.ReceiverTeamID) {
			return nil
		}
	case models.TradeStatusCancelled:
		if owns(tr.InitiatorTeamID) {
			return nil
		}
	}
	return events.Faultf(events.CodeUnauthorized, "trade can only be resolved by its teams or the commissioner")
}

func (c *Coordinator) acceptTrade(ctx context.Context, actor Actor, tradeID uuid.UUID, forced bool, notes *string) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("accept trade", err)
	}
	now := c.clock.Now()
	tr, err := c.loadPendingTrade(ctx, tradeID, now)
	if err != nil {
		return err
	}
	if forced {
		if !actor.IsCommissioner {
			return events.Faultf(events.CodeUnauthorized, "only the commissioner can force-accept a trade")
		}
	} else if !actor.IsCommissioner && (actor.TeamID == nil || *actor.TeamID != tr.ReceiverTeamID) {
		return events.Faultf(events.CodeUnauthorized, "only the receiving team can accept this trade")
	}

	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("accept trade", err)
	}
	initiator, err := c.store.GetTeam(ctx, tr.InitiatorTeamID)
	if err != nil {
		return c.faultFor("accept trade", err)
	}
	receiver, err := c.store.GetTeam(ctx, tr.ReceiverTeamID)
	if err != nil {
		return c.faultFor("accept trade", err)
	}
	initRoster, err := c.store.ListTeamRoster(ctx, c.leagueID, tr.InitiatorTeamID)
	if err != nil {
		return c.faultFor("accept trade", err)
	}
	recvRoster, err := c.store.ListTeamRoster(ctx, c.leagueID, tr.ReceiverTeamID)
	if err != nil {
		return c.faultFor("accept trade", err)
	}

	wasPaused := c.state.IsPaused
	oldCurrent := c.state.CurrentTeamID
	residual := c.liveRemaining()

	// Both callbacks run inside the swap transaction, after ownership moved
	// and with the trade's rows locked. applied is the draft-state row that
	// commits with the swap; the payload mirrors it for subscribers.
	var (
		applied  *models.DraftState
		accepted events.TradeAcceptedPayload
		clock    *events.OnTheClockPayload
		paused   *events.DraftPausedPayload
	)
	_, err = c.store.ExecuteTradeSwap(ctx, repository.ExecuteTradeSwapParams{
		TradeID: tr.ID,
		Now:     now,
		Forced:  forced,
		Notes:   notes,
		State: func(res *repository.TradeSwapResult) *models.DraftState {
			applied = c.tradeStateEffect(league, &res.Trade, res.UpdatedPicks, residual, now)
			return applied
		},
		Events: func(res *repository.TradeSwapResult) (models.ActivityEntry, []models.OutboxEvent) {
			accepted = c.tradeAcceptedPayload(res, initiator, receiver, initRoster, recvRoster, applied, wasPaused, now)
			rows := []models.OutboxEvent{c.outboxRow(events.EventTypeTradeAccepted, accepted, now)}
			if p := tradeClockPayload(c.leagueID, applied, oldCurrent, initiator, receiver, league.TimerSeconds, now); p != nil {
				clock = p
				rows = append(rows, c.outboxRow(events.EventTypeOnTheClock, *p, now))
			}
			if applied != nil && applied.IsPaused && !wasPaused {
				frozen := 0
				if applied.TimerSecondsRemaining != nil {
					frozen = *applied.TimerSecondsRemaining
				}
				paused = &events.DraftPausedPayload{
					LeagueID:              c.leagueID,
					Reason:                trade.PauseReason,
					TimerSecondsRemaining: frozen,
					Timestamp:             now,
				}
				rows = append(rows, c.outboxRow(events.EventTypeDraftPaused, *paused, now))
			}
			activity := c.activity(models.ActivityTradeAccepted, &actor.UserID, map[string]any{
				"trade_id": tr.ID,
				"forced":   forced,
			}, now)
			return activity, rows
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTradeExpired):
			return c.expireTrade(ctx, tr, now)
		case errors.Is(err, repository.ErrAssetUnavailable):
			return events.Faultf(events.CodeValidationFailed, "an asset in this trade is no longer available")
		}
		return c.faultFor("accept trade", err)
	}

	if applied != nil {
		c.state = applied
		switch {
		case applied.IsPaused && !wasPaused:
			c.stopTimer()
		case applied.TimerRunning() && clock != nil:
			c.startTimer(league.TimerSeconds)
		}
	}
	c.broadcast(events.EventTypeTradeAccepted, accepted)
	if clock != nil {
		c.broadcast(events.EventTypeOnTheClock, *clock)
	}
	if paused != nil {
		c.broadcast(events.EventTypeDraftPaused, *paused)
		c.notifyIdle()
	}
	c.logger.Info().
		Str("league_id", c.leagueID.String()).
		Str("trade_id", tr.ID.String()).
		Bool("forced", forced).
		Msg("trade executed")
	return nil
}

// tradeStateEffect computes the draft-state row that must commit atomically
// with an accepted swap: undo is burned, the on-clock team is reconciled
// when the current slot changed hands, and the pause-on-trade policy may
// freeze the draft. Returns nil when nothing about the state changes.
func (c *Coordinator) tradeStateEffect(league *models.League, tr *models.Trade, updated []models.DraftPick, residual int, now time.Time) *models.DraftState {
	st := *c.state
	changed := false

	if st.UndoAvailable {
		// The last pick can no longer be cleanly reversed once assets moved.
		st.UndoAvailable = false
		st.LastPickID = nil
		changed = true
	}

	live := st.Status == models.DraftStatusInProgress || st.Status == models.DraftStatusPaused
	turnChanged := false
	if live {
		if owner := ownerOfOverall(updated, league.CurrentSeason, st.CurrentPick); owner != nil &&
			(st.CurrentTeamID == nil || *st.CurrentTeamID != *owner) {
			// The slot on the clock belongs to someone new; they get a full
			// clock rather than inheriting the old team's leftovers.
			full := league.TimerSeconds
			st.CurrentTeamID = owner
			st.TimerSecondsRemaining = &full
			if st.Status == models.DraftStatusInProgress && !st.IsPaused {
				st.TimerStartedAt = &now
			}
			turnChanged = true
			changed = true
		}
		if trade.ShouldAutoPause(league, &st, tr, updated) {
			reason := trade.PauseReason
			st.Status = models.DraftStatusPaused
			st.IsPaused = true
			st.PauseReason = &reason
			st.TimerStartedAt = nil
			if !turnChanged {
				rem := residual
				st.TimerSecondsRemaining = &rem
			}
			changed = true
		}
	}

	if !changed {
		return nil
	}
	st.LastActivityAt = now
	return &st
}

func (c *Coordinator) tradeAcceptedPayload(res *repository.TradeSwapResult, initiator, receiver *models.Team, initRoster, recvRoster []models.RosterEntry, applied *models.DraftState, wasPaused bool, now time.Time) events.TradeAcceptedPayload {
	rosters := map[uuid.UUID][]models.RosterEntry{
		initiator.ID: initRoster,
		receiver.ID:  recvRoster,
	}
	applyMoves(rosters, res.MovedEntries)
	updates := make(map[uuid.UUID][]events.RosterEntryView, len(rosters))
	for id, entries := range rosters {
		updates[id] = rosterViews(entries)
	}

	payload := events.TradeAcceptedPayload{
		LeagueID:          c.leagueID,
		TradeID:           res.Trade.ID,
		InitiatorTeam:     events.NewTeamView(*initiator),
		ReceiverTeam:      events.NewTeamView(*receiver),
		InitiatorAssets:   events.NewAssetViews(res.Trade.AssetsFrom(res.Trade.InitiatorTeamID)),
		ReceiverAssets:    events.NewAssetViews(res.Trade.AssetsFrom(res.Trade.ReceiverTeamID)),
		UpdatedDraftOrder: events.NewPickViews(res.UpdatedPicks),
		TeamRosterUpdates: updates,
		Timestamp:         now,
	}
	if applied != nil && applied.IsPaused && !wasPaused {
		payload.DraftPaused = true
		payload.PauseReason = applied.PauseReason
	}
	return payload
}

// tradeClockPayload builds the OnTheClock announcement when an accepted
// trade hands the current slot to a new team on a live draft. The new owner
// is necessarily one of the trade's two teams.
func tradeClockPayload(leagueID uuid.UUID, applied *models.DraftState, oldCurrent *uuid.UUID, initiator, receiver *models.Team, duration int, now time.Time) *events.OnTheClockPayload {
	if applied == nil || applied.Status != models.DraftStatusInProgress || applied.IsPaused {
		return nil
	}
	if applied.CurrentTeamID == nil {
		return nil
	}
	if oldCurrent != nil && *oldCurrent == *applied.CurrentTeamID {
		return nil
	}
	var team *models.Team
	switch *applied.CurrentTeamID {
	case initiator.ID:
		team = initiator
	case receiver.ID:
		team = receiver
	default:
		return nil
	}
	return &events.OnTheClockPayload{
		LeagueID:       leagueID,
		TeamID:         team.ID,
		Team:           events.NewTeamView(*team),
		PickNumber:     applied.CurrentPick,
		Round:          applied.CurrentRound,
		TimerDuration:  duration,
		TimerStartedAt: now,
	}
}

// applyMoves rewrites the pre-trade roster lists with the committed entry
// moves so the payload matches the transaction exactly.
func applyMoves(rosters map[uuid.UUID][]models.RosterEntry, moved []models.RosterEntry) {
	for _, m := range moved {
		for teamID, entries := range rosters {
			if teamID == m.TeamID {
				continue
			}
			for i, e := range entries {
				if e.PlayerID == m.PlayerID {
					rosters[teamID] = append(entries[:i], entries[i+1:]...)
					break
				}
			}
		}
		rosters[m.TeamID] = append(rosters[m.TeamID], m)
	}
}

func ownerOfOverall(picks []models.DraftPick, season, overall int) *uuid.UUID {
	for i := range picks {
		p := &picks[i]
		if p.Season == season && p.OverallPickNumber != nil && *p.OverallPickNumber == overall {
			owner := p.CurrentOwnerTeamID
			return &owner
		}
	}
	return nil
}
