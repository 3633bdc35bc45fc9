package coordinator

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/snapshot"
	"github.com/mcdev12/keeper/go/internal/draft/trade"
	"github.com/mcdev12/keeper/go/internal/models"
)

func newRegistryFixture(t *testing.T) (*fixture, *Registry) {
	t.Helper()
	f := newFixture(t, fixtureOpts{teams: 2, timerSeconds: 60})
	f.c.Stop() // the registry manages its own coordinators

	r := NewRegistry(RegistryConfig{
		Store:     f.store,
		Trades:    trade.NewEngine(f.store),
		Snapshots: snapshot.NewBuilder(f.store, f.clock),
		Bus:       f.rec,
		Clock:     f.clock,
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(r.Close)
	return f, r
}

func TestRegistryReusesCoordinatorPerLeague(t *testing.T) {
	f, r := newRegistryFixture(t)

	c1, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	c2, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	require.Same(t, c1, c2)
	require.Equal(t, 1, r.Size())

	r.Release(f.league.ID)
	require.Equal(t, 1, r.Size(), "still one reference held")
	r.Release(f.league.ID)
	require.Equal(t, 0, r.Size(), "last release evicts an idle league")
}

func TestRegistryKeepsLeagueWithRunningClock(t *testing.T) {
	f, r := newRegistryFixture(t)

	c, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	require.NoError(t, c.StartDraft(f.ctx, f.commissioner))
	f.rec.expect(t, events.EventTypeDraftStarted, events.EventTypeOnTheClock)

	// The pick clock is live, so the league must survive losing its last
	// subscriber and keep counting down.
	r.Release(f.league.ID)
	require.Equal(t, 1, r.Size())

	f.clock.Advance(time.Second)
	env := f.rec.next(t)
	require.Equal(t, events.EventTypeTimerTick, env.Event)

	// Pausing freezes the clock; with no references left the pause's idle
	// notification reclaims the coordinator.
	c2, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	require.Same(t, c, c2)
	require.NoError(t, c2.PauseDraft(f.ctx, f.commissioner, ""))
	f.rec.expect(t, events.EventTypeDraftPaused)
	require.Equal(t, 1, r.Size(), "subscriber still attached")

	r.Release(f.league.ID)
	require.Equal(t, 0, r.Size())
}

func TestRegistryEvictsWhenClockStopsUnreferenced(t *testing.T) {
	f, r := newRegistryFixture(t)

	c, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	require.NoError(t, c.StartDraft(f.ctx, f.commissioner))
	f.rec.expect(t, events.EventTypeDraftStarted, events.EventTypeOnTheClock)
	r.Release(f.league.ID)
	require.Equal(t, 1, r.Size())

	// The unwatched draft pauses itself (commissioner on another path), and
	// the idle callback sweeps it away without any Release.
	c2, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	require.NoError(t, c2.PauseDraft(f.ctx, f.commissioner, ""))
	f.rec.expect(t, events.EventTypeDraftPaused)
	r.Release(f.league.ID)

	require.Eventually(t, func() bool { return r.Size() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRegistryEvictedCoordinatorRefusesIntents(t *testing.T) {
	f, r := newRegistryFixture(t)

	c, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	r.Release(f.league.ID)
	require.Equal(t, 0, r.Size())

	err = c.StartDraft(f.ctx, f.commissioner)
	require.ErrorIs(t, err, ErrStopped)

	// A fresh Acquire builds a new loop for the same league.
	c2, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	require.NotSame(t, c, c2)
	require.NoError(t, c2.StartDraft(f.ctx, f.commissioner))
	f.rec.expect(t, events.EventTypeDraftStarted, events.EventTypeOnTheClock)
}

func TestRegistryClose(t *testing.T) {
	f, r := newRegistryFixture(t)

	_, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	r.Close()
	require.Equal(t, 0, r.Size())

	_, err = r.Acquire(f.league.ID)
	require.True(t, errors.Is(err, ErrStopped))
}

func TestRegistryRehydratesRunningClockOnAcquire(t *testing.T) {
	f, r := newRegistryFixture(t)

	// Persisted mid-countdown state, as left behind by a crashed process.
	teamID := f.teams[0].ID
	startedAt := f.clock.Now().Add(-20 * time.Second)
	remaining := 60
	f.store.SeedDraftState(models.DraftState{
		LeagueID:              f.league.ID,
		Status:                models.DraftStatusInProgress,
		CurrentRound:          1,
		CurrentPick:           1,
		CurrentTeamID:         &teamID,
		TimerSecondsRemaining: &remaining,
		TimerStartedAt:        &startedAt,
		LastActivityAt:        startedAt,
	})

	c, err := r.Acquire(f.league.ID)
	require.NoError(t, err)
	idle, err := c.Idle(f.ctx)
	require.NoError(t, err)
	require.False(t, idle, "acquire must resume the persisted clock")

	tick := f.tick()
	require.Equal(t, 39, tick.SecondsRemaining)
}
