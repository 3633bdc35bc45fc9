package coordinator

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

func (c *Coordinator) MakePick(ctx context.Context, actor Actor, teamID, playerID uuid.UUID) error {
	return c.do(ctx, func(ctx context.Context) error { return c.makePick(ctx, actor, teamID, playerID) })
}

func (c *Coordinator) ForcePick(ctx context.Context, actor Actor, playerID uuid.UUID) error {
	return c.do(ctx, func(ctx context.Context) error { return c.forcePick(ctx, actor, playerID) })
}

func (c *Coordinator) UndoLastPick(ctx context.Context, actor Actor) error {
	return c.do(ctx, func(ctx context.Context) error { return c.undoLastPick(ctx, actor) })
}

func (c *Coordinator) makePick(ctx context.Context, actor Actor, teamID, playerID uuid.UUID) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("make pick", err)
	}
	if c.state.IsPaused {
		return events.Faultf(events.CodeInvalidState, "draft is paused")
	}
	if c.state.Status != models.DraftStatusInProgress {
		return events.Faultf(events.CodeInvalidState, "draft is not in progress")
	}
	if !actor.IsCommissioner && (actor.TeamID == nil || *actor.TeamID != teamID) {
		return events.Faultf(events.CodeUnauthorized, "cannot pick for another team")
	}
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("make pick", err)
	}
	// Availability outranks turn order: when two teams race for a player,
	// the loser hears the player is gone even if the turn also moved on.
	available, err := c.store.PlayerAvailable(ctx, c.leagueID, playerID)
	if err != nil {
		return c.faultFor("make pick", err)
	}
	if !available {
		return events.Faultf(events.CodePlayerUnavailable, "player is not available")
	}
	if c.state.CurrentTeamID == nil || *c.state.CurrentTeamID != teamID {
		if !actor.IsCommissioner {
			return events.Faultf(events.CodeNotYourTurn, "team is not on the clock")
		}
	}
	return c.applyPick(ctx, league, &actor.UserID, playerID, false, nil)
}

func (c *Coordinator) forcePick(ctx context.Context, actor Actor, playerID uuid.UUID) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("force pick", err)
	}
	if !actor.IsCommissioner {
		return events.Faultf(events.CodeUnauthorized, "only the commissioner can force a pick")
	}
	if c.state.IsPaused {
		return events.Faultf(events.CodeInvalidState, "draft is paused")
	}
	if c.state.Status != models.DraftStatusInProgress {
		return events.Faultf(events.CodeInvalidState, "draft is not in progress")
	}
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("force pick", err)
	}
	available, err := c.store.PlayerAvailable(ctx, c.leagueID, playerID)
	if err != nil {
		return c.faultFor("force pick", err)
	}
	if !available {
		return events.Faultf(events.CodePlayerUnavailable, "player is not available")
	}
	return c.applyPick(ctx, league, &actor.UserID, playerID, false, nil)
}

// applyPick completes the current pick with playerID, then advances the turn
// with a fresh clock or completes the draft when the board is spent. Callers
// have already validated status, availability and authority; the pick always
// lands on whichever team currently owns the slot.
func (c *Coordinator) applyPick(ctx context.Context, league *models.League, actorUserID *uuid.UUID, playerID uuid.UUID, auto bool, extraOutbox []models.OutboxEvent) error {
	now := c.clock.Now()
	picks, err := c.store.ListPicks(ctx, c.leagueID, league.CurrentSeason)
	if err != nil {
		return c.faultFor("make pick", err)
	}
	current := pickByOverall(picks, c.state.CurrentPick)
	if current == nil {
		return events.Faultf(events.CodeValidationFailed, "no pick slot at overall %d", c.state.CurrentPick)
	}
	if current.IsComplete {
		return events.Faultf(events.CodeValidationFailed, "pick %d is already complete", c.state.CurrentPick)
	}
	player, err := c.store.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return events.Faultf(events.CodePlayerUnavailable, "player does not exist")
		}
		return c.faultFor("make pick", err)
	}
	team, err := c.store.GetTeam(ctx, current.CurrentOwnerTeamID)
	if err != nil {
		return c.faultFor("make pick", err)
	}
	roster, err := c.store.ListTeamRoster(ctx, c.leagueID, team.ID)
	if err != nil {
		return c.faultFor("make pick", err)
	}

	entry := models.RosterEntry{
		ID:          uuid.New(),
		LeagueID:    c.leagueID,
		TeamID:      team.ID,
		PlayerID:    playerID,
		AcquiredVia: models.AcquiredViaDrafted,
		AcquiredAt:  now,
	}

	next := nextIncomplete(picks, c.state.CurrentPick)
	duration := league.TimerSeconds

	st := *c.state
	st.LastPickID = &current.ID
	st.UndoAvailable = true
	st.LastActivityAt = now
	if next != nil {
		nextTeam := next.CurrentOwnerTeamID
		st.CurrentPick = next.Overall()
		st.CurrentRound = next.Round
		st.CurrentTeamID = &nextTeam
		st.TimerSecondsRemaining = &duration
		st.TimerStartedAt = &now
	} else {
		st.Status = models.DraftStatusCompleted
		st.CompletedAt = &now
		st.CurrentTeamID = nil
		st.TimerSecondsRemaining = nil
		st.TimerStartedAt = nil
	}

	// Payloads are built from the pre-commit reads plus the pick being
	// applied, so the outbox rows carry exactly what gets broadcast.
	completed := *current
	completed.SelectedPlayerID = &playerID
	completed.SelectedAt = &now
	completed.IsComplete = true

	made := events.PickMadePayload{
		LeagueID:   c.leagueID,
		Pick:       events.NewPickView(completed),
		Player:     events.NewPlayerView(*player),
		TeamID:     team.ID,
		TeamName:   team.Name,
		PickNumber: completed.Overall(),
		Round:      completed.Round,
		AutoPick:   auto,
		TeamRosterUpdates: map[uuid.UUID][]events.RosterEntryView{
			team.ID: rosterViews(append(roster, entry)),
		},
		Timestamp: now,
	}
	if next != nil {
		made.NextPick = &events.NextPickInfo{
			PickNumber: next.Overall(),
			Round:      next.Round,
			TeamID:     next.CurrentOwnerTeamID,
		}
	}

	outbox := append(extraOutbox, c.outboxRow(events.EventTypePickMade, made, now))
	var clock events.OnTheClockPayload
	var done events.DraftCompletedPayload
	if next != nil {
		clock, err = c.onTheClockPayload(ctx, *next, duration, now)
		if err != nil {
			return c.faultFor("make pick", err)
		}
		outbox = append(outbox, c.outboxRow(events.EventTypeOnTheClock, clock, now))
	} else {
		done = events.DraftCompletedPayload{
			LeagueID:    c.leagueID,
			TotalPicks:  completed.Overall(),
			CompletedAt: now,
			Timestamp:   now,
		}
		outbox = append(outbox, c.outboxRow(events.EventTypeDraftCompleted, done, now))
	}

	activityType := models.ActivityPickMade
	if auto {
		activityType = models.ActivityAutoPick
	}
	if _, err := c.store.CompletePick(ctx, repository.CompletePickParams{
		PickID:      current.ID,
		PlayerID:    playerID,
		SelectedAt:  now,
		RosterEntry: entry,
		State:       &st,
		Activity: c.activity(activityType, actorUserID, map[string]any{
			"overall":   completed.Overall(),
			"round":     completed.Round,
			"team_id":   team.ID,
			"player_id": playerID,
			"auto":      auto,
		}, now),
		Outbox: outbox,
	}); err != nil {
		return c.faultFor("make pick", err)
	}

	c.state = &st
	c.stopTimer()
	c.broadcast(events.EventTypePickMade, made)
	if next != nil {
		c.broadcast(events.EventTypeOnTheClock, clock)
		c.startTimer(duration)
		return nil
	}
	c.broadcast(events.EventTypeDraftCompleted, done)
	if err := c.store.AppendActivity(ctx, c.activity(models.ActivityDraftCompleted, nil, map[string]any{
		"total_picks": completed.Overall(),
	}, now)); err != nil {
		c.logger.Warn().Err(err).Str("league_id", c.leagueID.String()).Msg("journal draft completion failed")
	}
	c.notifyIdle()
	c.logger.Info().Str("league_id", c.leagueID.String()).Int("total_picks", completed.Overall()).Msg("draft completed")
	return nil
}

func (c *Coordinator) undoLastPick(ctx context.Context, actor Actor) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("undo pick", err)
	}
	if !actor.IsCommissioner {
		return events.Faultf(events.CodeUnauthorized, "only the commissioner can undo a pick")
	}
	if !c.state.UndoAvailable || c.state.LastPickID == nil {
		return events.Faultf(events.CodeValidationFailed, "nothing to undo")
	}
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("undo pick", err)
	}
	pick, err := c.store.GetPick(ctx, *c.state.LastPickID)
	if err != nil {
		return c.faultFor("undo pick", err)
	}
	if pick.SelectedPlayerID == nil {
		return events.Faultf(events.CodeValidationFailed, "last pick has no selection to undo")
	}
	playerID := *pick.SelectedPlayerID
	owner := pick.CurrentOwnerTeamID
	roster, err := c.store.ListTeamRoster(ctx, c.leagueID, owner)
	if err != nil {
		return c.faultFor("undo pick", err)
	}
	remaining := make([]models.RosterEntry, 0, len(roster))
	for _, e := range roster {
		if e.PlayerID != playerID {
			remaining = append(remaining, e)
		}
	}

	now := c.clock.Now()
	paused := c.state.IsPaused
	duration := league.TimerSeconds

	// The clock restarts from the full duration either way; a paused draft
	// just holds it frozen until the commissioner resumes.
	st := *c.state
	st.CurrentPick = pick.Overall()
	st.CurrentRound = pick.Round
	st.CurrentTeamID = &owner
	st.CompletedAt = nil
	st.UndoAvailable = false
	st.LastPickID = nil
	st.TimerSecondsRemaining = &duration
	st.LastActivityAt = now
	if paused {
		st.TimerStartedAt = nil
	} else {
		st.Status = models.DraftStatusInProgress
		st.TimerStartedAt = &now
	}

	undone := events.PickUndonePayload{
		LeagueID:   c.leagueID,
		PickNumber: pick.Overall(),
		Round:      pick.Round,
		TeamID:     owner,
		PlayerID:   playerID,
		TeamRosterUpdates: map[uuid.UUID][]events.RosterEntryView{
			owner: rosterViews(remaining),
		},
		Timestamp: now,
	}
	outbox := []models.OutboxEvent{c.outboxRow(events.EventTypePickUndone, undone, now)}
	var clock events.OnTheClockPayload
	if !paused {
		clock, err = c.onTheClockPayload(ctx, *pick, duration, now)
		if err != nil {
			return c.faultFor("undo pick", err)
		}
		outbox = append(outbox, c.outboxRow(events.EventTypeOnTheClock, clock, now))
	}

	if _, err := c.store.UndoPick(ctx, repository.UndoPickParams{
		PickID:   pick.ID,
		PlayerID: playerID,
		LeagueID: c.leagueID,
		State:    &st,
		Activity: c.activity(models.ActivityPickUndone, &actor.UserID, map[string]any{
			"overall":   pick.Overall(),
			"team_id":   owner,
			"player_id": playerID,
		}, now),
		Outbox: outbox,
	}); err != nil {
		return c.faultFor("undo pick", err)
	}

	c.state = &st
	c.stopTimer()
	c.broadcast(events.EventTypePickUndone, undone)
	if !paused {
		c.broadcast(events.EventTypeOnTheClock, clock)
		c.startTimer(duration)
	}
	return nil
}
