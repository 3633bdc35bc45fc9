package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/draft/coordinator"
	"github.com/mcdev12/keeper/go/internal/draft/events"
)

// session is one authenticated WebSocket subscriber in a league room. The
// identity fields are resolved once at join time; the coordinator re-checks
// them against live state, so a stale commissioner flag can refuse but never
// escalate.
type session struct {
	id             uuid.UUID
	leagueID       uuid.UUID
	userID         uuid.UUID
	username       string
	teamID         *uuid.UUID
	isCommissioner bool

	conn  *websocket.Conn
	send  chan []byte
	hub   *Hub
	coord *coordinator.Coordinator
	// release returns the registry reference this session holds. Called
	// exactly once, from readPump's teardown.
	release func()
	resync  func(ctx context.Context) error
	logger  zerolog.Logger
}

func (s *session) actor() coordinator.Actor {
	return coordinator.Actor{
		UserID:         s.userID,
		TeamID:         s.teamID,
		IsCommissioner: s.isCommissioner,
	}
}

// trySend queues data for the write pump without blocking. The channel is
// never closed; once the socket dies the queue just goes unread.
func (s *session) trySend(data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// unicast delivers an envelope to this session only.
func (s *session) unicast(event events.EventType, payload any) {
	env, err := events.NewEnvelope(event, s.leagueID, time.Now().UTC(), payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", string(event)).Msg("unicast payload marshal failed")
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error().Err(err).Str("event", string(event)).Msg("unicast marshal failed")
		return
	}
	if !s.trySend(data) {
		s.logger.Warn().Str("session_id", s.id.String()).Msg("send queue full on unicast, evicting session")
		s.conn.Close()
	}
}

func (s *session) sendFault(f *events.Fault) {
	s.unicast(events.EventTypeError, events.ErrorPayload{Code: f.Code, Message: f.Message})
}

// writePump owns the socket's write side: queued envelopes plus keepalive
// pings. Exits on the first write error, which tears the whole session down.
func (s *session) writePump() {
	ticker := time.NewTicker(s.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.hub.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.hub.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump owns the read side and the session's lifetime: when it returns
// the session leaves its room and drops its registry reference.
func (s *session) readPump() {
	defer func() {
		s.hub.unregister(s)
		s.release()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(s.hub.config.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.hub.config.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.hub.config.PongTimeout))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn().Err(err).Str("session_id", s.id.String()).Msg("unexpected socket close")
			}
			return
		}
		s.handleIntent(context.Background(), message)
		s.conn.SetReadDeadline(time.Now().Add(s.hub.config.PongTimeout))
	}
}

// handleIntent decodes one client envelope, applies the authorization table,
// and routes it to the coordinator. Every refusal is unicast to this session
// only; peers never observe a failed intent.
func (s *session) handleIntent(ctx context.Context, raw []byte) {
	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.sendFault(events.Faultf(events.CodeConnError, "malformed message"))
		return
	}
	if env.LeagueID != uuid.Nil && env.LeagueID != s.leagueID {
		s.sendFault(events.Faultf(events.CodeValidationFailed, "intent addressed to another league"))
		return
	}

	if err := s.dispatch(ctx, env); err != nil {
		var fault *events.Fault
		switch {
		case errors.As(err, &fault):
			s.sendFault(fault)
		case errors.Is(err, coordinator.ErrStopped):
			s.sendFault(events.Faultf(events.CodeConnError, "draft room is closing, rejoin"))
		default:
			s.logger.Error().Err(err).
				Str("session_id", s.id.String()).
				Str("event", string(env.Event)).
				Msg("intent failed")
			s.sendFault(events.Faultf(events.CodeStorageError, "%s failed, try again", env.Event))
		}
	}
}

func (s *session) dispatch(ctx context.Context, env events.Envelope) error {
	actor := s.actor()
	switch env.Event {
	case events.IntentJoinDraftRoom:
		// Reconnect recovery: the fresh snapshot is authoritative.
		return s.resync(ctx)

	case events.IntentMakePick:
		var in events.MakePickIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		if !s.isCommissioner && !s.ownsTeam(in.TeamID) {
			return events.Faultf(events.CodeUnauthorized, "you do not own that team")
		}
		return s.coord.MakePick(ctx, actor, in.TeamID, in.PlayerID)

	case events.IntentForcePick:
		var in events.ForcePickIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		return s.coord.ForcePick(ctx, actor, in.PlayerID)

	case events.IntentStartDraft:
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		return s.coord.StartDraft(ctx, actor)

	case events.IntentPauseDraft:
		var in events.PauseDraftIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		return s.coord.PauseDraft(ctx, actor, in.Reason)

	case events.IntentResumeDraft:
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		return s.coord.ResumeDraft(ctx, actor)

	case events.IntentResetDraft:
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		return s.coord.ResetDraft(ctx, actor)

	case events.IntentUndoLastPick:
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		return s.coord.UndoLastPick(ctx, actor)

	case events.IntentUpdateOrder:
		var in events.UpdateOrderIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		return s.coord.SetDraftOrder(ctx, actor, in.TeamIDs)

	case events.IntentUpdateQueue:
		var in events.UpdateQueueIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		if !s.ownsTeam(in.TeamID) {
			return events.Faultf(events.CodeUnauthorized, "you do not own that team")
		}
		return s.coord.UpdateQueue(ctx, actor, in.TeamID, in.PlayerIDs)

	case events.IntentProposeTrade:
		var in events.ProposeTradeIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		if !s.ownsTeam(in.InitiatorTeamID) {
			return events.Faultf(events.CodeUnauthorized, "you do not own the proposing team")
		}
		return s.coord.ProposeTrade(ctx, actor, in)

	case events.IntentAcceptTrade:
		// Receiver ownership needs the trade row; the coordinator checks it
		// on its serial queue.
		var in events.AcceptTradeIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		return s.coord.AcceptTrade(ctx, actor, in.TradeID)

	case events.IntentRejectTrade:
		var in events.RejectTradeIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		return s.coord.RejectTrade(ctx, actor, in.TradeID)

	case events.IntentCancelTrade:
		var in events.CancelTradeIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		return s.coord.CancelTrade(ctx, actor, in.TradeID)

	case events.IntentVetoTrade:
		var in events.VetoTradeIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		var notes *string
		if in.Notes != "" {
			notes = &in.Notes
		}
		return s.coord.VetoTrade(ctx, actor, in.TradeID, notes)

	case events.IntentForceAcceptTrade:
		var in events.ForceAcceptTradeIntent
		if err := env.DecodePayload(&in); err != nil {
			return events.Faultf(events.CodeConnError, "malformed %s payload", env.Event)
		}
		if err := s.requireCommissioner(); err != nil {
			return err
		}
		var notes *string
		if in.Notes != "" {
			notes = &in.Notes
		}
		return s.coord.ForceAcceptTrade(ctx, actor, in.TradeID, notes)

	default:
		return events.Faultf(events.CodeValidationFailed, "unknown intent %q", env.Event)
	}
}

func (s *session) ownsTeam(teamID uuid.UUID) bool {
	return s.teamID != nil && *s.teamID == teamID
}

func (s *session) requireCommissioner() error {
	if !s.isCommissioner {
		return events.Faultf(events.CodeUnauthorized, "commissioner only")
	}
	return nil
}
