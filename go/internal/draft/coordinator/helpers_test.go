package coordinator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository/memory"
	"github.com/mcdev12/keeper/go/internal/draft/snapshot"
	"github.com/mcdev12/keeper/go/internal/draft/trade"
	"github.com/mcdev12/keeper/go/internal/models"
)

// recorder captures broadcasts so tests can assert on event order and
// payload contents without a real hub.
type recorder struct {
	ch chan events.Envelope
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan events.Envelope, 512)}
}

func (r *recorder) Broadcast(leagueID uuid.UUID, env events.Envelope) {
	r.ch <- env
}

// next blocks until the coordinator loop emits another broadcast. The
// timeout is real time; fake-clock tests still deliver promptly because the
// loop runs on a live goroutine.
func (r *recorder) next(t *testing.T) events.Envelope {
	t.Helper()
	select {
	case env := <-r.ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return events.Envelope{}
	}
}

// expect consumes one broadcast per type and asserts the order matches.
func (r *recorder) expect(t *testing.T, types ...events.EventType) []events.Envelope {
	t.Helper()
	out := make([]events.Envelope, 0, len(types))
	for _, want := range types {
		env := r.next(t)
		require.Equal(t, want, env.Event)
		out = append(out, env)
	}
	return out
}

// expectAfter runs op, requires it to succeed and asserts the broadcasts it
// produced, in order.
func (r *recorder) expectAfter(t *testing.T, op func() error, types ...events.EventType) []events.Envelope {
	t.Helper()
	require.NoError(t, op())
	return r.expect(t, types...)
}

func (r *recorder) drain() {
	for {
		select {
		case <-r.ch:
		default:
			return
		}
	}
}

type fixtureOpts struct {
	teams        int
	rounds       int
	timerSeconds int
	draftType    models.DraftType
	pauseOnTrade bool
	players      int
}

// fixture wires a coordinator against the in-memory store with a fake clock
// and a recording bus. Team i drafts from position i+1; players are ranked
// in seed order so the best available is always players[lowest unrostered].
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	clock *clockwork.FakeClock
	rec   *recorder
	c     *Coordinator

	league  models.League
	teams   []models.Team
	players []models.Player

	commissioner Actor
	owners       map[uuid.UUID]Actor
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()
	if opts.teams == 0 {
		opts.teams = 3
	}
	if opts.rounds == 0 {
		opts.rounds = 2
	}
	if opts.timerSeconds == 0 {
		opts.timerSeconds = 60
	}
	if opts.draftType == "" {
		opts.draftType = models.DraftTypeLinear
	}
	if opts.players == 0 {
		opts.players = opts.teams*opts.rounds + 6
	}

	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC))

	commishID := uuid.New()
	store.SeedUser(models.User{ID: commishID, Username: "commish"})

	league := models.League{
		ID:                 uuid.New(),
		Name:               "Test League",
		SportID:            "nfl",
		CommissionerUserID: commishID,
		MaxTeams:           opts.teams,
		RosterTemplate:     models.RosterTemplate{Starters: map[string]int{"QB": 1, "RB": 2}, Bench: 3},
		DraftType:          opts.draftType,
		TotalRounds:        opts.rounds,
		TimerSeconds:       opts.timerSeconds,
		ReserveSeconds:     120,
		PauseOnTrade:       opts.pauseOnTrade,
		MaxKeepers:         3,
		CurrentSeason:      2025,
	}
	store.SeedLeague(league)

	f := &fixture{
		t:            t,
		ctx:          context.Background(),
		store:        store,
		clock:        clock,
		league:       league,
		commissioner: Actor{UserID: commishID, IsCommissioner: true},
		owners:       make(map[uuid.UUID]Actor),
	}

	for i := 0; i < opts.teams; i++ {
		ownerID := uuid.New()
		store.SeedUser(models.User{ID: ownerID, Username: fmt.Sprintf("owner%d", i+1)})
		team := models.Team{
			ID:            uuid.New(),
			LeagueID:      league.ID,
			Name:          fmt.Sprintf("Team %d", i+1),
			OwnerUserID:   &ownerID,
			DraftPosition: i + 1,
			CreatedAt:     clock.Now(),
		}
		store.SeedTeam(team)
		f.teams = append(f.teams, team)
		teamID := team.ID
		f.owners[team.ID] = Actor{UserID: ownerID, TeamID: &teamID}
	}

	for i := 0; i < opts.players; i++ {
		rank := i + 1
		p := models.Player{
			ID:       uuid.New(),
			FullName: fmt.Sprintf("Player %02d", rank),
			Position: "RB",
			NFLTeam:  "FA",
			Rank:     &rank,
			Active:   true,
		}
		store.SeedPlayer(p)
		f.players = append(f.players, p)
	}

	f.rec = newRecorder()
	f.c = New(Config{
		LeagueID:  league.ID,
		Store:     store,
		Trades:    trade.NewEngine(store),
		Snapshots: snapshot.NewBuilder(store, clock),
		Bus:       f.rec,
		Clock:     clock,
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(f.c.Stop)
	return f
}

func (f *fixture) state() *models.DraftState {
	f.t.Helper()
	st, err := f.store.GetDraftState(context.Background(), f.league.ID)
	require.NoError(f.t, err)
	return st
}

func (f *fixture) onClock() Actor {
	f.t.Helper()
	st := f.state()
	require.NotNil(f.t, st.CurrentTeamID, "no team on the clock")
	return f.owners[*st.CurrentTeamID]
}

// start runs StartDraft as the commissioner and consumes the two broadcasts
// every start produces.
func (f *fixture) start() {
	f.t.Helper()
	require.NoError(f.t, f.c.StartDraft(f.ctx, f.commissioner))
	f.rec.expect(f.t, events.EventTypeDraftStarted, events.EventTypeOnTheClock)
}

// pick makes the given player's pick as whichever owner is on the clock and
// returns that owner. Broadcasts are left in the recorder for the caller.
func (f *fixture) pick(playerIdx int) Actor {
	f.t.Helper()
	actor := f.onClock()
	require.NoError(f.t, f.c.MakePick(f.ctx, actor, *actor.TeamID, f.players[playerIdx].ID))
	return actor
}

// tick advances the fake clock one second and waits for the resulting
// TimerTick. Advancing further without consuming each tick can coalesce
// sends on the fake ticker, so callers loop over this instead.
func (f *fixture) tick() events.TimerTickPayload {
	f.t.Helper()
	f.clock.Advance(time.Second)
	env := f.rec.next(f.t)
	require.Equal(f.t, events.EventTypeTimerTick, env.Event)
	var p events.TimerTickPayload
	require.NoError(f.t, env.DecodePayload(&p))
	return p
}

func (f *fixture) ticks(n int) events.TimerTickPayload {
	f.t.Helper()
	var last events.TimerTickPayload
	for i := 0; i < n; i++ {
		last = f.tick()
	}
	return last
}

func requireFault(t *testing.T, err error, code events.ErrorCode) *events.Fault {
	t.Helper()
	require.Error(t, err)
	var f *events.Fault
	require.ErrorAs(t, err, &f, "expected a coded fault, got %v", err)
	require.Equal(t, code, f.Code, "fault message: %s", f.Message)
	return f
}

func activityTypes(t *testing.T, store *memory.Store, leagueID uuid.UUID) []models.ActivityType {
	t.Helper()
	entries, err := store.ListActivity(context.Background(), leagueID, 100)
	require.NoError(t, err)
	out := make([]models.ActivityType, len(entries))
	for i, e := range entries {
		out[i] = e.Type
	}
	return out
}
