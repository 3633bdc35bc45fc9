// Package snapshot assembles the full-resync payload a session receives on
// join and after a draft reset.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

// AvailableLimit caps the available-player list inside a snapshot. Clients
// page the rest over the REST surface.
const AvailableLimit = 500

// Store reads one consistent draft picture.
type Store interface {
	ReadSnapshot(ctx context.Context, leagueID uuid.UUID, availableLimit int, now time.Time) (*repository.SnapshotData, error)
}

// Builder maps storage snapshots onto the StateSync wire payload.
type Builder struct {
	store Store
	clock clockwork.Clock
}

func NewBuilder(store Store, clock clockwork.Clock) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{store: store, clock: clock}
}

// StateSync builds the resync payload for one league. A league with no draft
// state row yet reads as NOT_STARTED through the store, so joining a league
// that never drafted still succeeds.
func (b *Builder) StateSync(ctx context.Context, leagueID uuid.UUID) (*events.StateSyncPayload, error) {
	now := b.clock.Now()
	data, err := b.store.ReadSnapshot(ctx, leagueID, AvailableLimit, now)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Build(data, now), nil
}

// Build is the pure mapping half, split out for tests that assemble
// SnapshotData by hand.
func Build(data *repository.SnapshotData, now time.Time) *events.StateSyncPayload {
	st := data.State

	payload := &events.StateSyncPayload{
		LeagueID:              data.League.ID,
		Status:                string(st.Status),
		CurrentRound:          st.CurrentRound,
		CurrentPick:           st.CurrentPick,
		CurrentTeamID:         st.CurrentTeamID,
		IsPaused:              st.IsPaused,
		PauseReason:           st.PauseReason,
		TimerSecondsRemaining: remainingAt(st, now),
		DraftOrder:            events.NewTeamViews(data.Teams),
		CompletedPicks:        []events.PickView{},
		AllPicks:              events.NewPickViews(data.Picks),
		AvailablePlayers:      playerViews(data.Available),
		TeamRosters:           rosterMap(data.Rosters),
		PendingTrades:         tradeViews(data.Pending),
		TeamQueues:            queueMap(data.Queues),
		TotalRounds:           data.League.TotalRounds,
		DraftType:             string(data.League.DraftType),
		RosterSettings:        rosterSettings(data.League.RosterTemplate),
		Timestamp:             now,
	}
	if st.CurrentTeamID != nil {
		for i := range data.Teams {
			if data.Teams[i].ID == *st.CurrentTeamID {
				v := events.NewTeamView(data.Teams[i])
				payload.CurrentTeam = &v
				break
			}
		}
	}
	for _, p := range data.Picks {
		if p.IsComplete {
			payload.CompletedPicks = append(payload.CompletedPicks, events.NewPickView(p))
		}
	}
	return payload
}

// remainingAt derives the countdown a client should render: the persisted
// residual, minus elapsed time when the clock is running. The persisted
// value can lag the live clock by up to the tick-persist cadence.
func remainingAt(st *models.DraftState, now time.Time) *int {
	if st.TimerSecondsRemaining == nil {
		return nil
	}
	rem := *st.TimerSecondsRemaining
	if st.TimerRunning() {
		rem -= int(now.Sub(*st.TimerStartedAt).Seconds())
		if rem < 0 {
			rem = 0
		}
	}
	return &rem
}

func playerViews(list []models.Player) []events.PlayerView {
	out := make([]events.PlayerView, len(list))
	for i, p := range list {
		out[i] = events.NewPlayerView(p)
	}
	return out
}

func rosterMap(entries []models.RosterEntry) map[uuid.UUID][]events.RosterEntryView {
	out := make(map[uuid.UUID][]events.RosterEntryView)
	for _, e := range entries {
		out[e.TeamID] = append(out[e.TeamID], events.NewRosterEntryView(e))
	}
	return out
}

func tradeViews(list []models.Trade) []events.TradeView {
	out := make([]events.TradeView, len(list))
	for i, t := range list {
		out[i] = events.NewTradeView(t)
	}
	return out
}

func queueMap(list []models.TeamQueue) map[uuid.UUID][]uuid.UUID {
	out := make(map[uuid.UUID][]uuid.UUID)
	for _, q := range list {
		out[q.TeamID] = q.PlayerIDs
	}
	return out
}

func rosterSettings(t models.RosterTemplate) map[string]int {
	out := make(map[string]int, len(t.Starters)+1)
	for pos, n := range t.Starters {
		out[pos] = n
	}
	out["BENCH"] = t.Bench
	return out
}
