package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

// pickTimer is the live countdown for the current pick. Owned by the run
// loop: created, read and stopped there only. Remaining time is derived from
// the start instant rather than counted down, so a delayed or coalesced tick
// can never stretch the clock.
type pickTimer struct {
	ticker    clockwork.Ticker
	startedAt time.Time
	duration  int
	ticks     int
}

func (t *pickTimer) remaining(now time.Time) int {
	rem := t.duration - int(now.Sub(t.startedAt).Seconds())
	if rem < 0 {
		return 0
	}
	return rem
}

func (c *Coordinator) startTimer(seconds int) {
	c.stopTimer()
	c.timer = &pickTimer{
		ticker:    c.clock.NewTicker(time.Second),
		startedAt: c.clock.Now(),
		duration:  seconds,
	}
}

func (c *Coordinator) stopTimer() {
	if c.timer == nil {
		return
	}
	c.timer.ticker.Stop()
	c.timer = nil
}

// onTick runs once per second while the clock is live: broadcast the
// countdown, persist the residual every tenth tick, fire expiry at zero.
func (c *Coordinator) onTick(ctx context.Context) {
	if c.timer == nil {
		return
	}
	if c.state == nil || !c.state.TimerRunning() {
		c.stopTimer()
		return
	}
	remaining := c.timer.remaining(c.clock.Now())
	c.timer.ticks++
	if remaining <= 0 {
		c.expire(ctx)
		return
	}

	rem := remaining
	c.state.TimerSecondsRemaining = &rem
	c.broadcast(events.EventTypeTimerTick, events.TimerTickPayload{
		LeagueID:         c.leagueID,
		SecondsRemaining: remaining,
		CurrentPick:      c.state.CurrentPick,
		CurrentTeamID:    c.state.CurrentTeamID,
	})
	if c.timer.ticks%tickPersistEvery == 0 {
		if err := c.store.UpdateTimerRemaining(ctx, c.leagueID, remaining); err != nil {
			c.logger.Warn().Err(err).Str("league_id", c.leagueID.String()).Msg("persist timer residual failed")
		}
	}
}

// expire handles a clock that hit zero: journal the expiry, then auto-draft
// the best available player for the team on the clock, or pause the draft
// when the pool is empty.
func (c *Coordinator) expire(ctx context.Context) {
	c.stopTimer()
	if c.state == nil || c.state.Status != models.DraftStatusInProgress || c.state.IsPaused {
		return
	}
	now := c.clock.Now()
	league, err := c.store.GetLeague(ctx, c.leagueID)
	if err != nil {
		c.logger.Error().Err(err).Str("league_id", c.leagueID.String()).Msg("expiry league load failed")
		c.invalidate()
		return
	}

	var teamID uuid.UUID
	if c.state.CurrentTeamID != nil {
		teamID = *c.state.CurrentTeamID
	}
	expired := events.TimerExpiredPayload{
		LeagueID:   c.leagueID,
		TeamID:     teamID,
		PickNumber: c.state.CurrentPick,
		Timestamp:  now,
	}
	c.broadcast(events.EventTypeTimerExpired, expired)
	if err := c.store.AppendActivity(ctx, c.activity(models.ActivityTimerExpired, nil, map[string]any{
		"team_id": teamID,
		"overall": c.state.CurrentPick,
	}, now)); err != nil {
		c.logger.Warn().Err(err).Str("league_id", c.leagueID.String()).Msg("journal timer expiry failed")
	}

	candidates, err := c.store.ListAvailablePlayers(ctx, c.leagueID, autoPickCandidates)
	if err != nil {
		c.logger.Error().Err(err).Str("league_id", c.leagueID.String()).Msg("expiry pool load failed")
		// Give the pick a fresh clock and retry at the next expiry rather
		// than stalling the draft with no timer at all.
		c.startTimer(league.TimerSeconds)
		return
	}
	if len(candidates) == 0 {
		c.stalePause(ctx, expired, now)
		return
	}

	player := c.autopick.Select(candidates)
	extra := []models.OutboxEvent{c.outboxRow(events.EventTypeTimerExpired, expired, now)}
	if err := c.applyPick(ctx, league, nil, player.ID, true, extra); err != nil {
		c.logger.Error().Err(err).Str("league_id", c.leagueID.String()).Str("player_id", player.ID.String()).Msg("auto-pick failed")
		c.startTimer(league.TimerSeconds)
	}
}

// stalePause freezes a draft whose clock expired with no draftable player
// left. Requires a commissioner resume after the pool problem is fixed.
func (c *Coordinator) stalePause(ctx context.Context, expired events.TimerExpiredPayload, now time.Time) {
	const reason = "no available players"

	warning := events.StaleWarningPayload{
		LeagueID:  c.leagueID,
		Message:   "timer expired with no available players; draft paused",
		Timestamp: now,
	}
	c.broadcast(events.EventTypeStaleWarning, warning)

	residual := 0
	next := *c.state
	next.Status = models.DraftStatusPaused
	next.IsPaused = true
	next.PauseReason = strPtr(reason)
	next.TimerStartedAt = nil
	next.TimerSecondsRemaining = &residual
	next.LastActivityAt = now

	paused := events.DraftPausedPayload{
		LeagueID:              c.leagueID,
		Reason:                reason,
		TimerSecondsRemaining: residual,
		Timestamp:             now,
	}
	err := c.store.SaveStateTransition(ctx, repository.StateTransitionParams{
		State:    &next,
		Activity: c.activity(models.ActivityDraftPaused, nil, map[string]any{"reason": reason}, now),
		Outbox: []models.OutboxEvent{
			c.outboxRow(events.EventTypeTimerExpired, expired, now),
			c.outboxRow(events.EventTypeStaleWarning, warning, now),
			c.outboxRow(events.EventTypeDraftPaused, paused, now),
		},
	})
	if err != nil {
		c.logger.Error().Err(err).Str("league_id", c.leagueID.String()).Msg("stale pause failed")
		c.invalidate()
		return
	}
	c.state = &next
	c.broadcast(events.EventTypeDraftPaused, paused)
	c.notifyIdle()
}

func strPtr(s string) *string {
	return &s
}
