// Package gateway is the WebSocket edge of the draft core: it authenticates
// sessions, fans coordinator broadcasts out to per-league rooms, and routes
// client intents onto the owning coordinator's serial queue.
package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/draft/events"
)

// Config holds the socket tuning knobs for the hub.
type Config struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	// SendBuffer is the per-session outbound queue. A session that lets it
	// fill is evicted rather than allowed to stall the room.
	SendBuffer  int
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns the hub defaults used by the server binary.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			// Origin policy is enforced by the fronting proxy.
			return true
		},
	}
}

// Hub owns one room per league. Broadcasts fan out to every session in the
// room in the order the coordinator applied them: each session has a FIFO
// send queue drained by a single writer, so per-subscriber ordering is the
// coordinator's ordering.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*session]bool

	config   Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHub(config Config, logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uuid.UUID]map[*session]bool),
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[s.leagueID] == nil {
		h.rooms[s.leagueID] = make(map[*session]bool)
	}
	h.rooms[s.leagueID][s] = true

	h.logger.Info().
		Str("session_id", s.id.String()).
		Str("user_id", s.userID.String()).
		Str("league_id", s.leagueID.String()).
		Int("room_size", len(h.rooms[s.leagueID])).
		Msg("session joined draft room")
}

// unregister drops the session from its room. Idempotent: eviction and the
// pump teardown can both land here.
func (h *Hub) unregister(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[s.leagueID]
	if !ok || !room[s] {
		return false
	}
	delete(room, s)
	if len(room) == 0 {
		delete(h.rooms, s.leagueID)
	}

	h.logger.Info().
		Str("session_id", s.id.String()).
		Str("user_id", s.userID.String()).
		Str("league_id", s.leagueID.String()).
		Msg("session left draft room")
	return true
}

// Broadcast delivers an envelope to every session in the league's room. The
// send queues are never closed, so a concurrent eviction cannot race a
// delivery; a queue that is full marks its session dead and the socket close
// tears it down.
func (h *Hub) Broadcast(leagueID uuid.UUID, env events.Envelope) {
	h.mu.RLock()
	room := h.rooms[leagueID]
	targets := make([]*session, 0, len(room))
	for s := range room {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(env.Event)).Msg("broadcast marshal failed")
		return
	}
	for _, s := range targets {
		if !s.trySend(data) {
			h.logger.Warn().
				Str("session_id", s.id.String()).
				Str("user_id", s.userID.String()).
				Str("event", string(env.Event)).
				Msg("send queue full, evicting slow session")
			s.conn.Close()
		}
	}
}

// RoomSize reports the subscriber count for one league.
func (h *Hub) RoomSize(leagueID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[leagueID])
}

// Stats summarizes the hub for the operator endpoint.
func (h *Hub) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	perLeague := make(map[string]int, len(h.rooms))
	for id, room := range h.rooms {
		total += len(room)
		perLeague[id.String()] = len(room)
	}
	return map[string]any{
		"total_sessions": total,
		"active_rooms":   len(h.rooms),
		"room_sessions":  perLeague,
	}
}
