package events

import "github.com/google/uuid"

// Client intent payloads. The gateway decodes these from inbound envelopes
// before handing them to the coordinator.

// JoinDraftRoomIntent subscribes the session to a league's event stream.
type JoinDraftRoomIntent struct {
	Token string `json:"token"`
}

// MakePickIntent selects a player for the team on the clock.
type MakePickIntent struct {
	TeamID   uuid.UUID `json:"teamId"`
	PlayerID uuid.UUID `json:"playerId"`
}

// ForcePickIntent is the commissioner variant: picks for whichever team is
// on the clock.
type ForcePickIntent struct {
	PlayerID uuid.UUID `json:"playerId"`
}

// PauseDraftIntent halts the clock with an optional reason.
type PauseDraftIntent struct {
	Reason string `json:"reason,omitempty"`
}

// UpdateOrderIntent replaces the draft order with the given team sequence.
type UpdateOrderIntent struct {
	TeamIDs []uuid.UUID `json:"teamIds"`
}

// UpdateQueueIntent replaces a team's auto-pick wish-list.
type UpdateQueueIntent struct {
	TeamID    uuid.UUID   `json:"teamId"`
	PlayerIDs []uuid.UUID `json:"playerIds"`
}

// TradeAssetSpec names one asset inside a trade proposal.
type TradeAssetSpec struct {
	Kind             string     `json:"kind"`
	DraftPickID      *uuid.UUID `json:"draftPickId,omitempty"`
	PlayerID         *uuid.UUID `json:"playerId,omitempty"`
	FuturePickSeason *int       `json:"futurePickSeason,omitempty"`
	FuturePickRound  *int       `json:"futurePickRound,omitempty"`
}

// ProposeTradeIntent opens a PENDING trade between two teams.
type ProposeTradeIntent struct {
	InitiatorTeamID  uuid.UUID        `json:"initiatorTeamId"`
	ReceiverTeamID   uuid.UUID        `json:"receiverTeamId"`
	InitiatorAssets  []TradeAssetSpec `json:"initiatorAssets"`
	ReceiverAssets   []TradeAssetSpec `json:"receiverAssets"`
	ExpiresInSeconds *int             `json:"expiresInSeconds,omitempty"`
}

// AcceptTradeIntent executes a pending trade.
type AcceptTradeIntent struct {
	TradeID uuid.UUID `json:"tradeId"`
}

// RejectTradeIntent declines a pending trade.
type RejectTradeIntent struct {
	TradeID uuid.UUID `json:"tradeId"`
}

// CancelTradeIntent withdraws a pending trade the actor proposed.
type CancelTradeIntent struct {
	TradeID uuid.UUID `json:"tradeId"`
}

// VetoTradeIntent is the commissioner kill switch for a pending trade.
type VetoTradeIntent struct {
	TradeID uuid.UUID `json:"tradeId"`
	Notes   string    `json:"notes,omitempty"`
}

// ForceAcceptTradeIntent executes a pending trade with commissioner
// authority, bypassing the receiver.
type ForceAcceptTradeIntent struct {
	TradeID uuid.UUID `json:"tradeId"`
	Notes   string    `json:"notes,omitempty"`
}
