package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/auth"
	"github.com/mcdev12/keeper/go/internal/draft/repository/memory"
	"github.com/mcdev12/keeper/go/internal/leagues"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/players"
	"github.com/mcdev12/keeper/go/internal/roster"
	"github.com/mcdev12/keeper/go/internal/sports/base"
	_ "github.com/mcdev12/keeper/go/internal/sports/nfl"
	"github.com/mcdev12/keeper/go/internal/teams"
)

func TestMain(m *testing.M) {
	if err := base.InitializePlugin("nfl"); err != nil {
		panic(err)
	}
	m.Run()
}

const (
	commishToken  = "tok-commish"
	ownerToken    = "tok-owner"
	strangerToken = "tok-stranger"
	adminToken    = "tok-admin"
)

// restFixture stands up the REST surface on an httptest server backed by the
// memory store: one league, two teams, a small catalog with one keeper.
type restFixture struct {
	t   *testing.T
	srv *httptest.Server

	league    models.League
	ownerTeam models.Team
	otherTeam models.Team
	pool      []models.Player
	keeper    models.Player
}

func newRESTFixture(t *testing.T) *restFixture {
	t.Helper()

	store := memory.NewStore()
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	commishID := uuid.New()
	store.SeedUser(models.User{ID: commishID, Username: "commish"})
	store.SeedToken(commishToken, commishID)

	ownerID := uuid.New()
	store.SeedUser(models.User{ID: ownerID, Username: "owner"})
	store.SeedToken(ownerToken, ownerID)

	strangerID := uuid.New()
	store.SeedUser(models.User{ID: strangerID, Username: "stranger"})
	store.SeedToken(strangerToken, strangerID)

	adminID := uuid.New()
	store.SeedUser(models.User{ID: adminID, Username: "admin", IsAdmin: true})
	store.SeedToken(adminToken, adminID)

	f := &restFixture{t: t}
	f.league = models.League{
		ID:                 uuid.New(),
		Name:               "Rest League",
		SportID:            "nfl",
		CommissionerUserID: commishID,
		MaxTeams:           2,
		RosterTemplate:     models.RosterTemplate{Starters: map[string]int{"QB": 1, "RB": 2}, Bench: 3},
		DraftType:          models.DraftTypeSnake,
		TotalRounds:        10,
		TimerSeconds:       60,
		ReserveSeconds:     120,
		MaxKeepers:         2,
		CurrentSeason:      2025,
		CreatedAt:          now,
	}
	store.SeedLeague(f.league)

	f.ownerTeam = models.Team{ID: uuid.New(), LeagueID: f.league.ID, Name: "Owner Team", OwnerUserID: &ownerID, DraftPosition: 2, CreatedAt: now}
	f.otherTeam = models.Team{ID: uuid.New(), LeagueID: f.league.ID, Name: "Commish Team", OwnerUserID: &commishID, DraftPosition: 1, CreatedAt: now}
	store.SeedTeam(f.ownerTeam)
	store.SeedTeam(f.otherTeam)

	for i := 0; i < 4; i++ {
		rank := i + 1
		p := models.Player{
			ID:       uuid.New(),
			FullName: fmt.Sprintf("Pool Player %d", rank),
			Position: "RB",
			NFLTeam:  "FA",
			Rank:     &rank,
			Active:   true,
		}
		store.SeedPlayer(p)
		f.pool = append(f.pool, p)
	}

	f.keeper = models.Player{ID: uuid.New(), FullName: "Kept Quarterback", Position: "QB", NFLTeam: "FA", Active: true}
	store.SeedPlayer(f.keeper)
	round := 3
	store.SeedRosterEntry(models.RosterEntry{
		ID:          uuid.New(),
		LeagueID:    f.league.ID,
		TeamID:      f.ownerTeam.ID,
		PlayerID:    f.keeper.ID,
		IsKeeper:    true,
		KeeperRound: &round,
		AcquiredVia: models.AcquiredViaKeeper,
		AcquiredAt:  now,
	})
	store.SeedRosterEntry(models.RosterEntry{
		ID:          uuid.New(),
		LeagueID:    f.league.ID,
		TeamID:      f.otherTeam.ID,
		PlayerID:    f.pool[3].ID,
		AcquiredVia: models.AcquiredViaDrafted,
		AcquiredAt:  now.Add(time.Minute),
	})

	authApp := auth.NewApp(store)
	handler := NewHandler(authApp, leagues.NewApp(store), teams.NewApp(store), players.NewApp(store), roster.NewApp(store), zerolog.Nop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// do issues a request with the token as a bearer header and decodes the JSON
// body into out when out is non-nil and the response is 200.
func (f *restFixture) do(method, path, token string, body string, out any) *http.Response {
	f.t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (f *restFixture) get(path, token string, out any) *http.Response {
	return f.do(http.MethodGet, path, token, "", out)
}

func TestGetLeagueEndpoint(t *testing.T) {
	f := newRESTFixture(t)
	path := "/leagues/" + f.league.ID.String()

	var league models.League
	resp := f.get(path, ownerToken, &league)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, f.league.ID, league.ID)
	assert.Equal(t, "Rest League", league.Name)

	assert.Equal(t, http.StatusUnauthorized, f.get(path, "", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.get(path, "bogus", nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, f.get(path, strangerToken, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.get("/leagues/not-a-uuid", ownerToken, nil).StatusCode)

	// Admins bypass membership, so an unknown league surfaces as 404.
	assert.Equal(t, http.StatusNotFound, f.get("/leagues/"+uuid.NewString(), adminToken, nil).StatusCode)
}

func TestUpdateSettingsEndpoint(t *testing.T) {
	f := newRESTFixture(t)
	path := fmt.Sprintf("/leagues/%s/settings", f.league.ID)

	body := func(mutate func(*leagues.UpdateSettingsRequest)) string {
		req := leagues.UpdateSettingsRequest{
			Name:           "Renamed League",
			RosterTemplate: f.league.RosterTemplate,
			DraftType:      f.league.DraftType,
			TotalRounds:    f.league.TotalRounds,
			TimerSeconds:   f.league.TimerSeconds,
			ReserveSeconds: f.league.ReserveSeconds,
			PauseOnTrade:   true,
			MaxKeepers:     f.league.MaxKeepers,
		}
		if mutate != nil {
			mutate(&req)
		}
		data, err := json.Marshal(req)
		require.NoError(t, err)
		return string(data)
	}

	var updated models.League
	resp := f.do(http.MethodPut, path, commishToken, body(nil), &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Renamed League", updated.Name)
	assert.True(t, updated.PauseOnTrade)

	// Only the commissioner (or an admin) may change settings.
	resp = f.do(http.MethodPut, path, ownerToken, body(nil), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(http.MethodPut, path, commishToken, "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(http.MethodPut, path, commishToken, body(func(r *leagues.UpdateSettingsRequest) { r.TotalRounds = 0 }), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTeamEndpoints(t *testing.T) {
	f := newRESTFixture(t)

	var list []models.Team
	resp := f.get(fmt.Sprintf("/leagues/%s/teams", f.league.ID), ownerToken, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 2)
	assert.Equal(t, "Commish Team", list[0].Name)
	assert.Equal(t, "Owner Team", list[1].Name)

	var mine models.Team
	resp = f.get(fmt.Sprintf("/leagues/%s/my-team", f.league.ID), ownerToken, &mine)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, f.ownerTeam.ID, mine.ID)

	// The admin is a member everywhere but owns nothing.
	resp = f.get(fmt.Sprintf("/leagues/%s/my-team", f.league.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAvailablePlayersEndpoint(t *testing.T) {
	f := newRESTFixture(t)
	path := fmt.Sprintf("/leagues/%s/players/available", f.league.ID)

	var pool []models.Player
	resp := f.get(path, ownerToken, &pool)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// The keeper and the drafted player are off the board.
	require.Len(t, pool, 3)
	for _, p := range pool {
		assert.NotEqual(t, f.keeper.ID, p.ID)
		assert.NotEqual(t, f.pool[3].ID, p.ID)
	}

	pool = nil
	resp = f.get(path+"?limit=1", ownerToken, &pool)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, pool, 1)
	assert.Equal(t, f.pool[0].ID, pool[0].ID)

	resp = f.get(path+"?limit=abc", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRosterEndpoints(t *testing.T) {
	f := newRESTFixture(t)

	var entries []models.RosterEntry
	resp := f.get(fmt.Sprintf("/leagues/%s/rosters", f.league.ID), ownerToken, &entries)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 2)

	entries = nil
	resp = f.get(fmt.Sprintf("/leagues/%s/rosters?keepers=true", f.league.ID), ownerToken, &entries)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, f.keeper.ID, entries[0].PlayerID)

	entries = nil
	resp = f.get(fmt.Sprintf("/leagues/%s/teams/%s/roster", f.league.ID, f.ownerTeam.ID), ownerToken, &entries)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, f.ownerTeam.ID, entries[0].TeamID)

	// A team id from a different league reads as absent here.
	otherLeague := uuid.New()
	resp = f.get(fmt.Sprintf("/leagues/%s/teams/%s/roster", otherLeague, f.ownerTeam.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.get(fmt.Sprintf("/leagues/%s/teams/not-a-uuid/roster", f.league.ID), ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPlayerEndpoint(t *testing.T) {
	f := newRESTFixture(t)

	var p models.Player
	resp := f.get("/players/"+f.keeper.ID.String(), strangerToken, &p)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Kept Quarterback", p.FullName)

	assert.Equal(t, http.StatusUnauthorized, f.get("/players/"+f.keeper.ID.String(), "", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.get("/players/"+uuid.NewString(), ownerToken, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.get("/players/not-a-uuid", ownerToken, nil).StatusCode)
}
