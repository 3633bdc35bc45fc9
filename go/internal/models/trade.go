package models

import (
	"time"

	"github.com/google/uuid"
)

// TradeStatus defines the lifecycle state of a trade proposal.
type TradeStatus string

const (
	TradeStatusPending    TradeStatus = "PENDING"
	TradeStatusProcessing TradeStatus = "PROCESSING"
	TradeStatusCompleted  TradeStatus = "COMPLETED"
	TradeStatusRejected   TradeStatus = "REJECTED"
	TradeStatusCancelled  TradeStatus = "CANCELLED"
	TradeStatusVetoed     TradeStatus = "VETOED"
	TradeStatusExpired    TradeStatus = "EXPIRED"
)

// AssetKind discriminates the trade asset union.
type AssetKind string

const (
	AssetKindDraftPick  AssetKind = "DRAFT_PICK"
	AssetKindPlayer     AssetKind = "PLAYER"
	AssetKindFuturePick AssetKind = "FUTURE_PICK"
)

// TradeAsset is one side's contribution to a trade: a current-season pick,
// a rostered player, or a future pick that may not be materialized yet.
// Exactly the variant fields for its kind are set.
type TradeAsset struct {
	ID               uuid.UUID  `json:"id"`
	TradeID          uuid.UUID  `json:"trade_id"`
	FromTeamID       uuid.UUID  `json:"from_team_id"`
	Kind             AssetKind  `json:"kind"`
	DraftPickID      *uuid.UUID `json:"draft_pick_id,omitempty"`
	PlayerID         *uuid.UUID `json:"player_id,omitempty"`
	FuturePickSeason *int       `json:"future_pick_season,omitempty"`
	FuturePickRound  *int       `json:"future_pick_round,omitempty"`
}

// Trade is a two-team asset swap proposal. Ownership never changes while the
// trade is PENDING; acceptance swaps every asset inside one transaction.
type Trade struct {
	ID                   uuid.UUID    `json:"id"`
	LeagueID             uuid.UUID    `json:"league_id"`
	InitiatorTeamID      uuid.UUID    `json:"initiator_team_id"`
	ReceiverTeamID       uuid.UUID    `json:"receiver_team_id"`
	Status               TradeStatus  `json:"status"`
	ProposedAt           time.Time    `json:"proposed_at"`
	RespondedAt          *time.Time   `json:"responded_at,omitempty"`
	ProcessedAt          *time.Time   `json:"processed_at,omitempty"`
	ExpiresAt            time.Time    `json:"expires_at"`
	ForcedByCommissioner bool         `json:"forced_by_commissioner"`
	CommissionerNotes    *string      `json:"commissioner_notes,omitempty"`
	Assets               []TradeAsset `json:"assets"`
}

// AssetsFrom returns the assets the given team is sending away.
func (t *Trade) AssetsFrom(teamID uuid.UUID) []TradeAsset {
	var out []TradeAsset
	for _, a := range t.Assets {
		if a.FromTeamID == teamID {
			out = append(out, a)
		}
	}
	return out
}

// Expired reports whether the trade's acceptance window has closed.
func (t *Trade) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
