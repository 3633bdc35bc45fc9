package models

import (
	"time"

	"github.com/google/uuid"
)

// AcquiredVia represents how a player landed on a roster.
type AcquiredVia string

const (
	AcquiredViaDrafted   AcquiredVia = "DRAFTED"
	AcquiredViaKeeper    AcquiredVia = "KEEPER"
	AcquiredViaTraded    AcquiredVia = "TRADED"
	AcquiredViaFreeAgent AcquiredVia = "FREE_AGENT"
)

// RosterEntry ties a player to a team within one league. A player appears on
// at most one roster per league. Keeper entries exist before the draft starts
// and survive a draft reset; everything else is rewritten by picks, trades
// and undo.
type RosterEntry struct {
	ID          uuid.UUID   `json:"id"`
	LeagueID    uuid.UUID   `json:"league_id"`
	TeamID      uuid.UUID   `json:"team_id"`
	PlayerID    uuid.UUID   `json:"player_id"`
	IsKeeper    bool        `json:"is_keeper"`
	KeeperRound *int        `json:"keeper_round,omitempty"`
	AcquiredVia AcquiredVia `json:"acquired_via"`
	AcquiredAt  time.Time   `json:"acquired_at"`
}
