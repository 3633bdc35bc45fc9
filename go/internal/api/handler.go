// Package api serves the REST surface for the contexts around the draft
// room: league settings, teams, the player catalog and rosters. Live draft
// traffic goes over the websocket gateway instead.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/auth"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/leagues"
	"github.com/mcdev12/keeper/go/internal/players"
	"github.com/mcdev12/keeper/go/internal/roster"
	"github.com/mcdev12/keeper/go/internal/teams"
)

// Handler exposes the supporting league contexts over plain HTTP. Every
// route is token-gated; league routes additionally require membership, the
// settings update requires the commissioner.
type Handler struct {
	auth    *auth.App
	leagues *leagues.App
	teams   *teams.App
	players *players.App
	rosters *roster.App
	logger  zerolog.Logger
}

func NewHandler(authApp *auth.App, leaguesApp *leagues.App, teamsApp *teams.App, playersApp *players.App, rostersApp *roster.App, logger zerolog.Logger) *Handler {
	return &Handler{
		auth:    authApp,
		leagues: leaguesApp,
		teams:   teamsApp,
		players: playersApp,
		rosters: rostersApp,
		logger:  logger,
	}
}

// RegisterRoutes mounts the REST surface on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /leagues/{league_id}", h.HandleGetLeague)
	mux.HandleFunc("PUT /leagues/{league_id}/settings", h.HandleUpdateSettings)
	mux.HandleFunc("GET /leagues/{league_id}/teams", h.HandleListTeams)
	mux.HandleFunc("GET /leagues/{league_id}/my-team", h.HandleMyTeam)
	mux.HandleFunc("GET /leagues/{league_id}/players/available", h.HandleAvailablePlayers)
	mux.HandleFunc("GET /leagues/{league_id}/rosters", h.HandleLeagueRosters)
	mux.HandleFunc("GET /leagues/{league_id}/teams/{team_id}/roster", h.HandleTeamRoster)
	mux.HandleFunc("GET /players/{player_id}", h.HandleGetPlayer)
}

// HandleGetLeague serves the league row including its settings.
//
// GET /leagues/{league_id}
func (h *Handler) HandleGetLeague(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := h.leagueFromPath(w, r)
	if !ok {
		return
	}
	if _, _, ok := h.authorize(w, r, leagueID); !ok {
		return
	}

	league, err := h.leagues.GetLeague(r.Context(), leagueID)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "league not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err, "failed to load league")
		return
	}
	h.writeJSON(w, league)
}

// HandleUpdateSettings applies a commissioner settings update.
//
// PUT /leagues/{league_id}/settings
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := h.leagueFromPath(w, r)
	if !ok {
		return
	}
	identity, membership, ok := h.authorize(w, r, leagueID)
	if !ok {
		return
	}
	if !membership.IsCommissioner && !identity.IsAdmin {
		http.Error(w, "only the commissioner can change league settings", http.StatusForbidden)
		return
	}

	var req leagues.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	league, err := h.leagues.UpdateSettings(r.Context(), leagueID, identity.UserID, req)
	if errors.Is(err, leagues.ErrSettingsRejected) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "league not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err, "failed to update league settings")
		return
	}
	h.writeJSON(w, league)
}

// HandleListTeams serves the league's teams in draft order.
//
// GET /leagues/{league_id}/teams
func (h *Handler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := h.leagueFromPath(w, r)
	if !ok {
		return
	}
	if _, _, ok := h.authorize(w, r, leagueID); !ok {
		return
	}

	list, err := h.teams.ListByDraftOrder(r.Context(), leagueID)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "league not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err, "failed to list teams")
		return
	}
	h.writeJSON(w, list)
}

// HandleMyTeam serves the team owned by the calling user.
//
// GET /leagues/{league_id}/my-team
func (h *Handler) HandleMyTeam(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := h.leagueFromPath(w, r)
	if !ok {
		return
	}
	identity, _, ok := h.authorize(w, r, leagueID)
	if !ok {
		return
	}

	team, err := h.teams.GetOwnedTeam(r.Context(), leagueID, identity.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "you do not own a team in this league", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err, "failed to load team")
		return
	}
	h.writeJSON(w, team)
}

// HandleAvailablePlayers serves the undrafted player pool, best rank first.
// The limit query parameter is clamped to the snapshot cap.
//
// GET /leagues/{league_id}/players/available?limit=50
func (h *Handler) HandleAvailablePlayers(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := h.leagueFromPath(w, r)
	if !ok {
		return
	}
	if _, _, ok := h.authorize(w, r, leagueID); !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	pool, err := h.players.ListAvailable(r.Context(), leagueID, limit)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "league not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err, "failed to list available players")
		return
	}
	h.writeJSON(w, pool)
}

// HandleLeagueRosters serves every roster entry in the league, keepers only
// when ?keepers=true.
//
// GET /leagues/{league_id}/rosters
func (h *Handler) HandleLeagueRosters(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := h.leagueFromPath(w, r)
	if !ok {
		return
	}
	if _, _, ok := h.authorize(w, r, leagueID); !ok {
		return
	}

	var entries any
	var err error
	if keepersOnly(r) {
		entries, err = h.rosters.LeagueKeepers(r.Context(), leagueID)
	} else {
		entries, err = h.rosters.LeagueRosters(r.Context(), leagueID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "league not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err, "failed to list rosters")
		return
	}
	h.writeJSON(w, entries)
}

// HandleTeamRoster serves one team's roster entries, keepers only when
// ?keepers=true.
//
// GET /leagues/{league_id}/teams/{team_id}/roster
func (h *Handler) HandleTeamRoster(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := h.leagueFromPath(w, r)
	if !ok {
		return
	}
	teamID, err := uuid.Parse(r.PathValue("team_id"))
	if err != nil {
		http.Error(w, "invalid team id", http.StatusBadRequest)
		return
	}
	if _, _, ok := h.authorize(w, r, leagueID); !ok {
		return
	}

	var entries any
	if keepersOnly(r) {
		entries, err = h.rosters.TeamKeepers(r.Context(), leagueID, teamID)
	} else {
		entries, err = h.rosters.TeamRoster(r.Context(), leagueID, teamID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "team not found in this league", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err, "failed to list team roster")
		return
	}
	h.writeJSON(w, entries)
}

// HandleGetPlayer serves one player from the shared catalog. Any valid token
// may read the catalog; no league membership is required.
//
// GET /players/{player_id}
func (h *Handler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuid.Parse(r.PathValue("player_id"))
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}
	if _, ok := h.identify(w, r); !ok {
		return
	}

	player, err := h.players.GetPlayer(r.Context(), playerID)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, err, "failed to load player")
		return
	}
	h.writeJSON(w, player)
}

// authorize resolves the caller and checks league standing, writing the HTTP
// refusal itself. Admins pass membership and act with commissioner authority.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, leagueID uuid.UUID) (*auth.Identity, *auth.Membership, bool) {
	identity, ok := h.identify(w, r)
	if !ok {
		return nil, nil, false
	}

	membership, err := h.auth.LeagueMembership(r.Context(), identity.UserID, leagueID)
	if err != nil {
		h.logger.Error().Err(err).Str("league_id", leagueID.String()).Msg("membership lookup failed")
		http.Error(w, "authentication unavailable", http.StatusInternalServerError)
		return nil, nil, false
	}
	if !membership.IsMember && !identity.IsAdmin {
		http.Error(w, "not a member of this league", http.StatusForbidden)
		return nil, nil, false
	}
	return identity, membership, true
}

func (h *Handler) identify(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, err := h.auth.Identify(r.Context(), bearerToken(r))
	if errors.Is(err, auth.ErrInvalidToken) {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return nil, false
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("token lookup failed")
		http.Error(w, "authentication unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return identity, true
}

func (h *Handler) leagueFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	leagueID, err := uuid.Parse(r.PathValue("league_id"))
	if err != nil {
		http.Error(w, "invalid league id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return leagueID, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	h.logger.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

func keepersOnly(r *http.Request) bool {
	return r.URL.Query().Get("keepers") == "true"
}

// bearerToken pulls the session token from the Authorization header, falling
// back to the token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if tok, ok := strings.CutPrefix(header, "Bearer "); ok {
			return tok
		}
	}
	return r.URL.Query().Get("token")
}
