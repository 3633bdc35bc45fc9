package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a league member slot. OwnerUserID is nil while the slot is empty;
// DraftPosition is unique within the league.
type Team struct {
	ID            uuid.UUID  `json:"id"`
	LeagueID      uuid.UUID  `json:"league_id"`
	Name          string     `json:"name"`
	OwnerUserID   *uuid.UUID `json:"owner_user_id,omitempty"`
	DraftPosition int        `json:"draft_position"`
	CreatedAt     time.Time  `json:"created_at"`
}
