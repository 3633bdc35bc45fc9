package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/auth"
	"github.com/mcdev12/keeper/go/internal/draft/coordinator"
	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/draft/snapshot"
)

// Handler terminates WebSocket joins and the read-only REST surface.
type Handler struct {
	auth      *auth.App
	registry  *coordinator.Registry
	snapshots *snapshot.Builder
	hub       *Hub
	logger    zerolog.Logger
}

func NewHandler(authApp *auth.App, registry *coordinator.Registry, snapshots *snapshot.Builder, hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		auth:      authApp,
		registry:  registry,
		snapshots: snapshots,
		hub:       hub,
		logger:    logger,
	}
}

// ServeWS authenticates the caller, takes a coordinator reference, and
// upgrades the connection. Everything that can be refused over plain HTTP is
// refused before the upgrade; after it, errors travel as Error envelopes.
//
// GET /ws?league_id=<uuid>&token=<session token>
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	leagueID, err := uuid.Parse(r.URL.Query().Get("league_id"))
	if err != nil {
		http.Error(w, "league_id is required", http.StatusBadRequest)
		return
	}

	identity, membership, ok := h.authorize(w, r, leagueID)
	if !ok {
		return
	}

	coord, err := h.registry.Acquire(leagueID)
	if err != nil {
		http.Error(w, "draft service is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.registry.Release(leagueID)
		h.logger.Warn().Err(err).Str("league_id", leagueID.String()).Msg("websocket upgrade failed")
		return
	}

	s := &session{
		id:             uuid.New(),
		leagueID:       leagueID,
		userID:         identity.UserID,
		username:       identity.Username,
		teamID:         membership.TeamID,
		isCommissioner: membership.IsCommissioner || identity.IsAdmin,
		conn:           conn,
		send:           make(chan []byte, h.hub.config.SendBuffer),
		hub:            h.hub,
		coord:          coord,
		release:        func() { h.registry.Release(leagueID) },
	}
	s.logger = h.logger.With().
		Str("session_id", s.id.String()).
		Str("league_id", leagueID.String()).
		Logger()
	s.resync = func(ctx context.Context) error {
		payload, err := h.snapshots.StateSync(ctx, s.leagueID)
		if err != nil {
			return err
		}
		s.unicast(events.EventTypeStateSync, payload)
		return nil
	}

	h.hub.register(s)
	go s.writePump()
	go s.readPump()

	// The joining client always gets a full picture first. Broadcasts queued
	// behind it only ever move state forward from this snapshot.
	if err := s.resync(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("initial state sync failed")
		s.sendFault(events.Faultf(events.CodeStorageError, "state sync failed, send JoinDraftRoom to retry"))
	}
}

// HandleLeagueState serves the same snapshot the socket would push, for
// polling clients and reconnect preflights.
//
// GET /leagues/{league_id}/state
func (h *Handler) HandleLeagueState(w http.ResponseWriter, r *http.Request) {
	leagueID, err := uuid.Parse(r.PathValue("league_id"))
	if err != nil {
		http.Error(w, "invalid league id", http.StatusBadRequest)
		return
	}

	if _, _, ok := h.authorize(w, r, leagueID); !ok {
		return
	}

	payload, err := h.snapshots.StateSync(r.Context(), leagueID)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "league not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to build league state")
		http.Error(w, "failed to load league state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode league state")
	}
}

// HandleStats reports hub occupancy.
//
// GET /ws/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.hub.Stats()); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode hub stats")
	}
}

// RegisterRoutes mounts the gateway on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /ws/stats", h.HandleStats)
	mux.HandleFunc("GET /leagues/{league_id}/state", h.HandleLeagueState)
}

// authorize resolves the caller and checks league standing, writing the HTTP
// refusal itself. Admins pass membership and act with commissioner authority.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, leagueID uuid.UUID) (*auth.Identity, *auth.Membership, bool) {
	identity, err := h.auth.Identify(r.Context(), bearerToken(r))
	if errors.Is(err, auth.ErrInvalidToken) {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return nil, nil, false
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("token lookup failed")
		http.Error(w, "authentication unavailable", http.StatusInternalServerError)
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

// bearerToken pulls the session token from the Authorization header, falling
// back to the token query parameter for browser WebSocket clients that cannot
// set headers.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if tok, ok := strings.CutPrefix(header, "Bearer "); ok {
			return tok
		}
	}
	return r.URL.Query().Get("token")
}
