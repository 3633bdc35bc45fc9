package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

// Public operations hop onto the serial loop; the lowercase handlers below
// run there, one at a time.

func (c *Coordinator) StartDraft(ctx context.Context, actor Actor) error {
	return c.do(ctx, func(ctx context.Context) error { return c.startDraft(ctx, actor) })
}

func (c *Coordinator) PauseDraft(ctx context.Context, actor Actor, reason string) error {
	return c.do(ctx, func(ctx context.Context) error { return c.pauseDraft(ctx, actor, reason) })
}

func (c *Coordinator) ResumeDraft(ctx context.Context, actor Actor) error {
	return c.do(ctx, func(ctx context.Context) error { return c.resumeDraft(ctx, actor) })
}

func (c *Coordinator) ResetDraft(ctx context.Context, actor Actor) error {
	return c.do(ctx, func(ctx context.Context) error { return c.resetDraft(ctx, actor) })
}

func (c *Coordinator) SetDraftOrder(ctx context.Context, actor Actor, teamIDs []uuid.UUID) error {
	return c.do(ctx, func(ctx context.Context) error { return c.setDraftOrder(ctx, actor, teamIDs) })
}

func (c *Coordinator) UpdateQueue(ctx context.Context, actor Actor, teamID uuid.UUID, playerIDs []uuid.UUID) error {
	return c.do(ctx, func(ctx context.Context) error { return c.updateQueue(ctx, actor, teamID, playerIDs) })
}

func (c *Coordinator) startDraft(ctx context.Context, actor Actor) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("start draft", err)
	}
	if !actor.IsCommissioner {
		return events.Faultf(events.CodeUnauthorized, "only the commissioner can start the draft")
	}
	if c.state.Status != models.DraftStatusNotStarted {
		return events.Faultf(events.CodeInvalidState, "draft is already %s", c.state.Status)
	}
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("start draft", err)
	}
	teams, err := c.store.ListTeams(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("start draft", err)
	}
	if len(teams) < 2 {
		return events.Faultf(events.CodeValidationFailed, "league needs at least two teams to draft")
	}

	now := c.clock.Now()
	board, err := c.store.ListPicks(ctx, c.leagueID, league.CurrentSeason)
	if err != nil {
		return c.faultFor("start draft", err)
	}
	var created []models.DraftPick
	if len(board) == 0 {
		// First start this season. A pre-generated board is reused as-is so
		// picks traded before the start keep their owners.
		created = GeneratePicks(c.leagueID, league.CurrentSeason, league.DraftType, league.TotalRounds, teams)
		board = created
	}
	first := pickByOverall(board, 1)
	if first == nil {
		return events.Faultf(events.CodeValidationFailed, "draft board has no opening pick")
	}

	duration := league.TimerSeconds
	firstTeam := first.CurrentOwnerTeamID
	next := *c.state
	next.Status = models.DraftStatusInProgress
	next.CurrentRound = first.Round
	next.CurrentPick = 1
	next.CurrentTeamID = &firstTeam
	next.IsPaused = false
	next.PauseReason = nil
	next.TimerSecondsRemaining = &duration
	next.TimerStartedAt = &now
	next.StartedAt = &now
	next.CompletedAt = nil
	next.LastPickID = nil
	next.UndoAvailable = false
	next.LastActivityAt = now

	started := events.DraftStartedPayload{
		LeagueID:    c.leagueID,
		DraftType:   string(league.DraftType),
		TotalRounds: league.TotalRounds,
		StartedAt:   now,
		Timestamp:   now,
	}
	clock, err := c.onTheClockPayload(ctx, *first, duration, now)
	if err != nil {
		return c.faultFor("start draft", err)
	}

	err = c.store.StartDraft(ctx, repository.StartDraftParams{
		Picks: created,
		State: &next,
		Activity: c.activity(models.ActivityDraftStarted, &actor.UserID, map[string]any{
			"draft_type":   league.DraftType,
			"total_rounds": league.TotalRounds,
			"teams":        len(teams),
		}, now),
		Outbox: []models.OutboxEvent{
			c.outboxRow(events.EventTypeDraftStarted, started, now),
			c.outboxRow(events.EventTypeOnTheClock, clock, now),
		},
	})
	if err != nil {
		return c.faultFor("start draft", err)
	}
	c.state = &next
	c.broadcast(events.EventTypeDraftStarted, started)
	c.broadcast(events.EventTypeOnTheClock, clock)
	c.startTimer(duration)
	c.logger.Info().
		Str("league_id", c.leagueID.String()).
		Str("draft_type", string(league.DraftType)).
		Int("teams", len(teams)).
		Int("rounds", league.TotalRounds).
		Msg("draft started")
	return nil
}

func (c *Coordinator) pauseDraft(ctx context.Context, actor Actor, reason string) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("pause draft", err)
	}
	if !actor.IsCommissioner {
		return events.Faultf(events.CodeUnauthorized, "only the commissioner can pause the draft")
	}
	if c.state.Status != models.DraftStatusInProgress || c.state.IsPaused {
		return events.Faultf(events.CodeInvalidState, "draft is not running")
	}
	if reason == "" {
		reason = "Paused by commissioner"
	}

	now := c.clock.Now()
	residual := c.liveRemaining()
	c.stopTimer()

	next := *c.state
	next.Status = models.DraftStatusPaused
	next.IsPaused = true
	next.PauseReason = &reason
	next.TimerStartedAt = nil
	next.TimerSecondsRemaining = &residual
	next.LastActivityAt = now

	paused := events.DraftPausedPayload{
		LeagueID:              c.leagueID,
		Reason:                reason,
		PausedByUserID:        &actor.UserID,
		TimerSecondsRemaining: residual,
		Timestamp:             now,
	}
	err := c.store.SaveStateTransition(ctx, repository.StateTransitionParams{
		State:    &next,
		Activity: c.activity(models.ActivityDraftPaused, &actor.UserID, map[string]any{"reason": reason}, now),
		Outbox:   []models.OutboxEvent{c.outboxRow(events.EventTypeDraftPaused, paused, now)},
	})
	if err != nil {
		// The write failed, so the draft is still running. Put the clock
		// back with what was left.
		c.startTimer(residual)
		return c.faultFor("pause draft", err)
	}
	c.state = &next
	c.broadcast(events.EventTypeDraftPaused, paused)
	c.notifyIdle()
	return nil
}

func (c *Coordinator) resumeDraft(ctx context.Context, actor Actor) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("resume draft", err)
	}
	if !actor.IsCommissioner {
		return events.Faultf(events.CodeUnauthorized, "only the commissioner can resume the draft")
	}
	if c.state.Status != models.DraftStatusPaused || !c.state.IsPaused {
		return events.Faultf(events.CodeInvalidState, "draft is not paused")
	}
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("resume draft", err)
	}

	now := c.clock.Now()
	residual := league.TimerSeconds
	if c.state.TimerSecondsRemaining != nil && *c.state.TimerSecondsRemaining > 0 {
		residual = *c.state.TimerSecondsRemaining
	}

	next := *c.state
	next.Status = models.DraftStatusInProgress
	next.IsPaused = false
	next.PauseReason = nil
	next.TimerStartedAt = &now
	next.TimerSecondsRemaining = &residual
	next.LastActivityAt = now

	resumed := events.DraftResumedPayload{
		LeagueID:              c.leagueID,
		TimerSecondsRemaining: residual,
		TimerStartedAt:        now,
		Timestamp:             now,
	}
	err = c.store.SaveStateTransition(ctx, repository.StateTransitionParams{
		State:    &next,
		Activity: c.activity(models.ActivityDraftResumed, &actor.UserID, nil, now),
		Outbox:   []models.OutboxEvent{c.outboxRow(events.EventTypeDraftResumed, resumed, now)},
	})
	if err != nil {
		return c.faultFor("resume draft", err)
	}
	c.state = &next
	c.broadcast(events.EventTypeDraftResumed, resumed)
	c.startTimer(residual)
	return nil
}

func (c *Coordinator) resetDraft(ctx context.Context, actor Actor) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("reset draft", err)
	}
	if !actor.IsCommissioner {
		return events.Faultf(events.CodeUnauthorized, "only the commissioner can reset the draft")
	}
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("reset draft", err)
	}

	now := c.clock.Now()
	wasRunning := c.state.TimerRunning()
	residual := c.liveRemaining()
	c.stopTimer()

	next := models.NewDraftState(c.leagueID, now)
	// The relayed row stays slim; the broadcast below carries the snapshot.
	notice := events.DraftResetPayload{LeagueID: c.leagueID, Timestamp: now}
	err = c.store.ResetDraft(ctx, repository.ResetDraftParams{
		LeagueID: c.leagueID,
		Season:   league.CurrentSeason,
		At:       now,
		State:    next,
		Activity: c.activity(models.ActivityDraftReset, &actor.UserID, map[string]any{"season": league.CurrentSeason}, now),
		Outbox:   []models.OutboxEvent{c.outboxRow(events.EventTypeDraftReset, notice, now)},
	})
	if err != nil {
		if wasRunning {
			c.startTimer(residual)
		}
		return c.faultFor("reset draft", err)
	}
	c.state = next

	snap, err := c.snapshots.StateSync(ctx, c.leagueID)
	if err != nil {
		c.logger.Error().Err(err).Str("league_id", c.leagueID.String()).Msg("reset snapshot build failed")
	}
	notice.Snapshot = snap
	c.broadcast(events.EventTypeDraftReset, notice)
	c.notifyIdle()
	c.logger.Info().Str("league_id", c.leagueID.String()).Int("season", league.CurrentSeason).Msg("draft reset")
	return nil
}

func (c *Coordinator) setDraftOrder(ctx context.Context, actor Actor, teamIDs []uuid.UUID) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("set draft order", err)
	}
	if !actor.IsCommissioner {
		return events.Faultf(events.CodeUnauthorized, "only the commissioner can change the draft order")
	}
	switch c.state.Status {
	case models.DraftStatusNotStarted, models.DraftStatusPaused:
	default:
		return events.Faultf(events.CodeInvalidState, "draft order is locked while the draft is %s", c.state.Status)
	}
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("set draft order", err)
	}
	teams, err := c.store.ListTeams(ctx, c.leagueID)
	if err != nil {
		return c.faultFor("set draft order", err)
	}

	byID := make(map[uuid.UUID]models.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	ordered := make([]models.Team, 0, len(teamIDs))
	seen := make(map[uuid.UUID]bool, len(teamIDs))
	for _, id := range teamIDs {
		t, ok := byID[id]
		if !ok || seen[id] {
			return events.Faultf(events.CodeValidationFailed, "draft order must be a permutation of the league's teams")
		}
		seen[id] = true
		ordered = append(ordered, t)
	}
	if len(ordered) != len(teams) {
		return events.Faultf(events.CodeValidationFailed, "draft order must include every team exactly once")
	}
	for i := range ordered {
		ordered[i].DraftPosition = i + 1
	}

	// Before the start the board is rebuilt from the new order. Mid-draft
	// (paused) only positions move; completed picks and the current slot
	// keep their numbers.
	regenerate := c.state.Status == models.DraftStatusNotStarted
	var picks []models.DraftPick
	if regenerate {
		picks = GeneratePicks(c.leagueID, league.CurrentSeason, league.DraftType, league.TotalRounds, ordered)
	}

	now := c.clock.Now()
	updated := events.OrderUpdatedPayload{
		LeagueID:         c.leagueID,
		DraftOrder:       events.NewTeamViews(ordered),
		PicksRegenerated: regenerate,
		UpdatedByUserID:  actor.UserID,
		Timestamp:        now,
	}
	err = c.store.ApplyDraftOrder(ctx, repository.ApplyDraftOrderParams{
		LeagueID:       c.leagueID,
		Season:         league.CurrentSeason,
		OrderedTeamIDs: teamIDs,
		Picks:          picks,
		Activity: c.activity(models.ActivityOrderUpdated, &actor.UserID, map[string]any{
			"order":             teamIDs,
			"picks_regenerated": regenerate,
		}, now),
		Outbox: []models.OutboxEvent{c.outboxRow(events.EventTypeOrderUpdated, updated, now)},
	})
	if err != nil {
		return c.faultFor("set draft order", err)
	}
	c.broadcast(events.EventTypeOrderUpdated, updated)
	return nil
}

func (c *Coordinator) updateQueue(ctx context.Context, actor Actor, teamID uuid.UUID, playerIDs []uuid.UUID) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return c.faultFor("update queue", err)
	}
	if actor.TeamID == nil || *actor.TeamID != teamID {
		return events.Faultf(events.CodeUnauthorized, "queue belongs to another team")
	}
	team, err := c.store.GetTeam(ctx, teamID)
	if err != nil {
		return c.faultFor("update queue", err)
	}
	if team.LeagueID != c.leagueID {
		return events.Faultf(events.CodeValidationFailed, "team is not in this league")
	}

	now := c.clock.Now()
	queue := &models.TeamQueue{
		LeagueID:  c.leagueID,
		TeamID:    teamID,
		PlayerIDs: playerIDs,
		UpdatedAt: now,
	}
	if err := c.store.UpsertTeamQueue(ctx, queue); err != nil {
		return c.faultFor("update queue", err)
	}
	c.broadcast(events.EventTypeQueueUpdated, events.QueueUpdatedPayload{
		LeagueID:  c.leagueID,
		TeamID:    teamID,
		PlayerIDs: playerIDs,
		Timestamp: now,
	})
	return nil
}
