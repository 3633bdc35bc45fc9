package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType discriminates every message on the wire, server-to-client events
// and client-to-server intents alike.
type EventType string

// Server-to-client events.
const (
	EventTypeStateSync      EventType = "StateSync"
	EventTypeDraftStarted   EventType = "DraftStarted"
	EventTypeDraftPaused    EventType = "DraftPaused"
	EventTypeDraftResumed   EventType = "DraftResumed"
	EventTypeDraftReset     EventType = "DraftReset"
	EventTypeDraftCompleted EventType = "DraftCompleted"
	EventTypeOnTheClock     EventType = "OnTheClock"
	EventTypePickMade       EventType = "PickMade"
	EventTypePickUndone     EventType = "PickUndone"
	EventTypeTimerTick      EventType = "TimerTick"
	EventTypeTimerExpired   EventType = "TimerExpired"
	EventTypeStaleWarning   EventType = "StaleWarning"
	EventTypeOrderUpdated   EventType = "OrderUpdated"
	EventTypeQueueUpdated   EventType = "QueueUpdated"
	EventTypeTradeProposed  EventType = "TradeProposed"
	EventTypeTradeAccepted  EventType = "TradeAccepted"
	EventTypeTradeRejected  EventType = "TradeRejected"
	EventTypeTradeCancelled EventType = "TradeCancelled"
	EventTypeTradeVetoed    EventType = "TradeVetoed"
	EventTypeTradeExpired   EventType = "TradeExpired"
	EventTypeError          EventType = "Error"
)

// Client-to-server intents.
const (
	IntentJoinDraftRoom    EventType = "JoinDraftRoom"
	IntentMakePick         EventType = "MakePick"
	IntentForcePick        EventType = "ForcePick"
	IntentStartDraft       EventType = "StartDraft"
	IntentPauseDraft       EventType = "PauseDraft"
	IntentResumeDraft      EventType = "ResumeDraft"
	IntentResetDraft       EventType = "ResetDraft"
	IntentUndoLastPick     EventType = "UndoLastPick"
	IntentUpdateOrder      EventType = "UpdateOrder"
	IntentUpdateQueue      EventType = "UpdateQueue"
	IntentProposeTrade     EventType = "ProposeTrade"
	IntentAcceptTrade      EventType = "AcceptTrade"
	IntentRejectTrade      EventType = "RejectTrade"
	IntentCancelTrade      EventType = "CancelTrade"
	IntentVetoTrade        EventType = "VetoTrade"
	IntentForceAcceptTrade EventType = "ForceAcceptTrade"
)

// Envelope is the wire frame for every message. Event discriminates the
// payload; Timestamp is when the server applied the event (zero on intents).
type Envelope struct {
	Event     EventType       `json:"event"`
	LeagueID  uuid.UUID       `json:"leagueId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload and wraps it for broadcast.
func NewEnvelope(event EventType, leagueID uuid.UUID, ts time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{
		Event:     event,
		LeagueID:  leagueID,
		Timestamp: ts,
		Payload:   data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into dst.
func (e Envelope) DecodePayload(dst any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return nil
}
