package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/auth"
	"github.com/mcdev12/keeper/go/internal/draft/coordinator"
	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository/memory"
	"github.com/mcdev12/keeper/go/internal/draft/snapshot"
	"github.com/mcdev12/keeper/go/internal/draft/trade"
	"github.com/mcdev12/keeper/go/internal/models"
)

const (
	commishToken  = "tok-commish"
	adminToken    = "tok-admin"
	strangerToken = "tok-stranger"
)

func ownerToken(i int) string { return fmt.Sprintf("tok-owner-%d", i+1) }

// wsFixture stands up the whole edge on an httptest server: memory store,
// live registry, hub, and real sockets dialed by the gorilla client. The
// clock is fake, so no timer ticks interleave with the frames under test.
type wsFixture struct {
	t        *testing.T
	srv      *httptest.Server
	store    *memory.Store
	hub      *Hub
	registry *coordinator.Registry

	league  models.League
	teams   []models.Team
	players []models.Player
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC))
	logger := zerolog.Nop()

	commishID := uuid.New()
	store.SeedUser(models.User{ID: commishID, Username: "commish"})
	store.SeedToken(commishToken, commishID)

	adminID := uuid.New()
	store.SeedUser(models.User{ID: adminID, Username: "admin", IsAdmin: true})
	store.SeedToken(adminToken, adminID)

	strangerID := uuid.New()
	store.SeedUser(models.User{ID: strangerID, Username: "stranger"})
	store.SeedToken(strangerToken, strangerID)

	league := models.League{
		ID:                 uuid.New(),
		Name:               "Socket League",
		SportID:            "nfl",
		CommissionerUserID: commishID,
		MaxTeams:           2,
		RosterTemplate:     models.RosterTemplate{Starters: map[string]int{"QB": 1, "RB": 2}, Bench: 3},
		DraftType:          models.DraftTypeLinear,
		TotalRounds:        2,
		TimerSeconds:       60,
		ReserveSeconds:     120,
		MaxKeepers:         3,
		CurrentSeason:      2025,
	}
	store.SeedLeague(league)

	f := &wsFixture{t: t, store: store, league: league}
	for i, name := range []string{"Alpha", "Bravo"} {
		ownerID := uuid.New()
		store.SeedUser(models.User{ID: ownerID, Username: fmt.Sprintf("owner%d", i+1)})
		store.SeedToken(ownerToken(i), ownerID)
		team := models.Team{
			ID:            uuid.New(),
			LeagueID:      league.ID,
			Name:          name,
			OwnerUserID:   &ownerID,
			DraftPosition: i + 1,
			CreatedAt:     clock.Now(),
		}
		store.SeedTeam(team)
		f.teams = append(f.teams, team)
	}
	for i := 0; i < 6; i++ {
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

	f.hub = NewHub(DefaultConfig(), logger)
	f.registry = coordinator.NewRegistry(coordinator.RegistryConfig{
		Store:     store,
		Trades:    trade.NewEngine(store),
		Snapshots: snapshot.NewBuilder(store, clock),
		Bus:       f.hub,
		Clock:     clock,
		Logger:    logger,
	})
	t.Cleanup(f.registry.Close)

	handler := NewHandler(auth.NewApp(store), f.registry, snapshot.NewBuilder(store, clock), f.hub, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *wsFixture) wsBase() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
}

// dial joins the fixture league and consumes the StateSync every join opens
// with, returning the connection ready for the frames under test.
func (f *wsFixture) dial(token string) *websocket.Conn {
	f.t.Helper()
	url := fmt.Sprintf("%s?league_id=%s&token=%s", f.wsBase(), f.league.ID, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { conn.Close() })
	expectEvent(f.t, conn, events.EventTypeStateSync)
	return conn
}

// dialRaw joins without consuming the opening StateSync.
func (f *wsFixture) dialRaw(token string) *websocket.Conn {
	f.t.Helper()
	url := fmt.Sprintf("%s?league_id=%s&token=%s", f.wsBase(), f.league.ID, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { conn.Close() })
	return conn
}

// dialStatus asserts the handshake is refused with the given HTTP status.
func (f *wsFixture) dialStatus(rawQuery string, want int) {
	f.t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.wsBase()+"?"+rawQuery, nil)
	require.ErrorIs(f.t, err, websocket.ErrBadHandshake)
	require.Nil(f.t, conn)
	require.NotNil(f.t, resp)
	defer resp.Body.Close()
	require.Equal(f.t, want, resp.StatusCode)
}

func (f *wsFixture) send(conn *websocket.Conn, event events.EventType, payload any) {
	f.t.Helper()
	env, err := events.NewEnvelope(event, f.league.ID, time.Time{}, payload)
	require.NoError(f.t, err)
	data, err := json.Marshal(env)
	require.NoError(f.t, err)
	require.NoError(f.t, conn.WriteMessage(websocket.TextMessage, data))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) events.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env events.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func expectEvent(t *testing.T, conn *websocket.Conn, want events.EventType) events.Envelope {
	t.Helper()
	env := readEnvelope(t, conn)
	require.Equal(t, want, env.Event, "payload: %s", env.Payload)
	return env
}

func expectError(t *testing.T, conn *websocket.Conn, code events.ErrorCode) events.ErrorPayload {
	t.Helper()
	env := expectEvent(t, conn, events.EventTypeError)
	var p events.ErrorPayload
	require.NoError(t, env.DecodePayload(&p))
	require.Equal(t, code, p.Code, "error message: %s", p.Message)
	return p
}

func TestServeWSRefusals(t *testing.T) {
	f := newWSFixture(t)

	f.dialStatus("token="+commishToken, http.StatusBadRequest)
	f.dialStatus("league_id=not-a-uuid&token="+commishToken, http.StatusBadRequest)
	f.dialStatus(fmt.Sprintf("league_id=%s&token=no-such-token", f.league.ID), http.StatusUnauthorized)
	f.dialStatus(fmt.Sprintf("league_id=%s", f.league.ID), http.StatusUnauthorized)
	f.dialStatus(fmt.Sprintf("league_id=%s&token=%s", f.league.ID, strangerToken), http.StatusForbidden)
}

func TestJoinDeliversStateSync(t *testing.T) {
	f := newWSFixture(t)

	conn := f.dialRaw(ownerToken(0))
	env := expectEvent(t, conn, events.EventTypeStateSync)

	var snap events.StateSyncPayload
	require.NoError(t, env.DecodePayload(&snap))
	require.Equal(t, f.league.ID, snap.LeagueID)
	require.Equal(t, string(models.DraftStatusNotStarted), snap.Status)
	require.Len(t, snap.DraftOrder, len(f.teams))
	require.Len(t, snap.AvailablePlayers, len(f.players))
	require.Equal(t, f.league.TotalRounds, snap.TotalRounds)

	require.Equal(t, 1, f.hub.RoomSize(f.league.ID))
	require.Equal(t, 1, f.registry.Size())

	// Disconnecting drops the room entry and the coordinator reference; with
	// no clock running the registry reclaims the league.
	conn.Close()
	require.Eventually(t, func() bool { return f.hub.RoomSize(f.league.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return f.registry.Size() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestJoinDraftRoomResync(t *testing.T) {
	f := newWSFixture(t)

	conn := f.dial(ownerToken(0))
	f.send(conn, events.IntentJoinDraftRoom, events.JoinDraftRoomIntent{})
	env := expectEvent(t, conn, events.EventTypeStateSync)

	var snap events.StateSyncPayload
	require.NoError(t, env.DecodePayload(&snap))
	require.Equal(t, f.league.ID, snap.LeagueID)
}

func TestDraftIntentsOverSocket(t *testing.T) {
	f := newWSFixture(t)

	owner := f.dial(ownerToken(0))
	commish := f.dial(commishToken)

	// Owners cannot start the draft; the refusal is unicast, so the
	// commissioner's next frames are the start broadcasts, not the error.
	f.send(owner, events.IntentStartDraft, nil)
	expectError(t, owner, events.CodeUnauthorized)

	f.send(commish, events.IntentStartDraft, nil)
	for _, conn := range []*websocket.Conn{owner, commish} {
		expectEvent(t, conn, events.EventTypeDraftStarted)
		env := expectEvent(t, conn, events.EventTypeOnTheClock)
		var clock events.OnTheClockPayload
		require.NoError(t, env.DecodePayload(&clock))
		require.Equal(t, f.teams[0].ID, clock.TeamID)
	}

	// Picking for a team you do not own is refused at the edge.
	f.send(owner, events.IntentMakePick, events.MakePickIntent{TeamID: f.teams[1].ID, PlayerID: f.players[0].ID})
	expectError(t, owner, events.CodeUnauthorized)

	f.send(owner, events.IntentMakePick, events.MakePickIntent{TeamID: f.teams[0].ID, PlayerID: f.players[0].ID})
	for _, conn := range []*websocket.Conn{owner, commish} {
		env := expectEvent(t, conn, events.EventTypePickMade)
		var pick events.PickMadePayload
		require.NoError(t, env.DecodePayload(&pick))
		require.Equal(t, f.teams[0].ID, pick.TeamID)
		require.Equal(t, 1, pick.PickNumber)
		require.Equal(t, f.players[0].ID, pick.Player.ID)
		expectEvent(t, conn, events.EventTypeOnTheClock)
	}

	// The commissioner can pick on any team's behalf.
	f.send(commish, events.IntentMakePick, events.MakePickIntent{TeamID: f.teams[1].ID, PlayerID: f.players[1].ID})
	for _, conn := range []*websocket.Conn{owner, commish} {
		env := expectEvent(t, conn, events.EventTypePickMade)
		var pick events.PickMadePayload
		require.NoError(t, env.DecodePayload(&pick))
		require.Equal(t, f.teams[1].ID, pick.TeamID)
		expectEvent(t, conn, events.EventTypeOnTheClock)
	}
}

func TestQueueAndTradeAuthorization(t *testing.T) {
	f := newWSFixture(t)

	owner := f.dial(ownerToken(0))
	commish := f.dial(commishToken)

	// Queues are strictly owner-managed; even the commissioner is refused.
	f.send(owner, events.IntentUpdateQueue, events.UpdateQueueIntent{TeamID: f.teams[1].ID, PlayerIDs: []uuid.UUID{f.players[0].ID}})
	expectError(t, owner, events.CodeUnauthorized)
	f.send(commish, events.IntentUpdateQueue, events.UpdateQueueIntent{TeamID: f.teams[0].ID, PlayerIDs: []uuid.UUID{f.players[0].ID}})
	expectError(t, commish, events.CodeUnauthorized)

	wishlist := []uuid.UUID{f.players[2].ID, f.players[0].ID}
	f.send(owner, events.IntentUpdateQueue, events.UpdateQueueIntent{TeamID: f.teams[0].ID, PlayerIDs: wishlist})
	for _, conn := range []*websocket.Conn{owner, commish} {
		env := expectEvent(t, conn, events.EventTypeQueueUpdated)
		var q events.QueueUpdatedPayload
		require.NoError(t, env.DecodePayload(&q))
		require.Equal(t, f.teams[0].ID, q.TeamID)
		require.Equal(t, wishlist, q.PlayerIDs)
	}

	// Proposing for another team is refused at the edge; vetoing is
	// commissioner-only.
	f.send(owner, events.IntentProposeTrade, events.ProposeTradeIntent{InitiatorTeamID: f.teams[1].ID, ReceiverTeamID: f.teams[0].ID})
	expectError(t, owner, events.CodeUnauthorized)
	f.send(owner, events.IntentVetoTrade, events.VetoTradeIntent{TradeID: uuid.New()})
	expectError(t, owner, events.CodeUnauthorized)

	// A commissioner veto of an unknown trade passes the edge and comes back
	// as the coordinator's refusal.
	f.send(commish, events.IntentVetoTrade, events.VetoTradeIntent{TradeID: uuid.New()})
	expectError(t, commish, events.CodeTradeNotFound)

	// Full trade round trip on future picks: propose, a non-receiver accept
	// bounces, then the commissioner forces it through.
	season, round1, round2 := 2026, 1, 2
	f.send(owner, events.IntentProposeTrade, events.ProposeTradeIntent{
		InitiatorTeamID: f.teams[0].ID,
		ReceiverTeamID:  f.teams[1].ID,
		InitiatorAssets: []events.TradeAssetSpec{{Kind: string(models.AssetKindFuturePick), FuturePickSeason: &season, FuturePickRound: &round1}},
		ReceiverAssets:  []events.TradeAssetSpec{{Kind: string(models.AssetKindFuturePick), FuturePickSeason: &season, FuturePickRound: &round2}},
	})

	var tradeID uuid.UUID
	for _, conn := range []*websocket.Conn{owner, commish} {
		env := expectEvent(t, conn, events.EventTypeTradeProposed)
		var p events.TradeProposedPayload
		require.NoError(t, env.DecodePayload(&p))
		require.Equal(t, string(models.TradeStatusPending), p.Trade.Status)
		tradeID = p.Trade.ID
	}

	// The initiator cannot accept their own offer.
	f.send(owner, events.IntentAcceptTrade, events.AcceptTradeIntent{TradeID: tradeID})
	expectError(t, owner, events.CodeUnauthorized)

	f.send(commish, events.IntentForceAcceptTrade, events.ForceAcceptTradeIntent{TradeID: tradeID})
	for _, conn := range []*websocket.Conn{owner, commish} {
		env := expectEvent(t, conn, events.EventTypeTradeAccepted)
		var p events.TradeAcceptedPayload
		require.NoError(t, env.DecodePayload(&p))
		require.Equal(t, tradeID, p.TradeID)
	}
}

func TestMalformedIntents(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(ownerToken(0))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	expectError(t, conn, events.CodeConnError)

	env, err := events.NewEnvelope(events.IntentStartDraft, uuid.New(), time.Time{}, nil)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
	expectError(t, conn, events.CodeValidationFailed)

	f.send(conn, events.EventType("Sabotage"), nil)
	expectError(t, conn, events.CodeValidationFailed)
}

func TestLeagueStateEndpoint(t *testing.T) {
	f := newWSFixture(t)

	get := func(leagueID, token string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/leagues/%s/state", f.srv.URL, leagueID), nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := f.srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get(f.league.ID.String(), ownerToken(0))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var snap events.StateSyncPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Equal(t, f.league.ID, snap.LeagueID)
	require.Equal(t, string(models.DraftStatusNotStarted), snap.Status)

	require.Equal(t, http.StatusUnauthorized, get(f.league.ID.String(), "").StatusCode)
	require.Equal(t, http.StatusUnauthorized, get(f.league.ID.String(), "bogus").StatusCode)
	require.Equal(t, http.StatusForbidden, get(f.league.ID.String(), strangerToken).StatusCode)
	require.Equal(t, http.StatusBadRequest, get("not-a-uuid", commishToken).StatusCode)

	// Admins bypass membership, so an unknown league surfaces as 404 rather
	// than 403.
	require.Equal(t, http.StatusNotFound, get(uuid.NewString(), adminToken).StatusCode)
}

func TestHubFanout(t *testing.T) {
	hub := NewHub(DefaultConfig(), zerolog.Nop())
	leagueA, leagueB := uuid.New(), uuid.New()

	a1 := &session{id: uuid.New(), leagueID: leagueA, send: make(chan []byte, 4)}
	a2 := &session{id: uuid.New(), leagueID: leagueA, send: make(chan []byte, 4)}
	b1 := &session{id: uuid.New(), leagueID: leagueB, send: make(chan []byte, 4)}
	hub.register(a1)
	hub.register(a2)
	hub.register(b1)
	require.Equal(t, 2, hub.RoomSize(leagueA))
	require.Equal(t, 1, hub.RoomSize(leagueB))

	env, err := events.NewEnvelope(events.EventTypeTimerTick, leagueA, time.Now().UTC(), events.TimerTickPayload{LeagueID: leagueA, SecondsRemaining: 10})
	require.NoError(t, err)
	hub.Broadcast(leagueA, env)

	for _, s := range []*session{a1, a2} {
		select {
		case data := <-s.send:
			var got events.Envelope
			require.NoError(t, json.Unmarshal(data, &got))
			require.Equal(t, events.EventTypeTimerTick, got.Event)
			require.Equal(t, leagueA, got.LeagueID)
		default:
			t.Fatal("room member missed the broadcast")
		}
	}
	require.Empty(t, b1.send)

	// Unregister is idempotent; empty rooms vanish.
	require.True(t, hub.unregister(a1))
	require.False(t, hub.unregister(a1))
	require.Equal(t, 1, hub.RoomSize(leagueA))
	require.True(t, hub.unregister(a2))
	require.True(t, hub.unregister(b1))
	require.Zero(t, hub.RoomSize(leagueA))
	require.Zero(t, hub.RoomSize(leagueB))

	// Broadcasting into a room nobody joined is a no-op.
	hub.Broadcast(uuid.New(), env)
}
