package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamQueue is a team's advisory pick wish-list. It has no effect on draft
// mechanics; only the owning team may reorder it.
type TeamQueue struct {
	LeagueID  uuid.UUID   `json:"league_id"`
	TeamID    uuid.UUID   `json:"team_id"`
	PlayerIDs []uuid.UUID `json:"player_ids"`
	UpdatedAt time.Time   `json:"updated_at"`
}
