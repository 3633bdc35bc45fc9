package models

import (
	"time"

	"github.com/google/uuid"
)

// InjuryStatus is the player's current injury designation.
type InjuryStatus string

const (
	InjuryStatusHealthy      InjuryStatus = "HEALTHY"
	InjuryStatusQuestionable InjuryStatus = "QUESTIONABLE"
	InjuryStatusDoubtful     InjuryStatus = "DOUBTFUL"
	InjuryStatusOut          InjuryStatus = "OUT"
	InjuryStatusIR           InjuryStatus = "IR"
)

// Player represents a player in the shared catalog. Players are global: the
// same row is drafted independently by every league. Rank and ADP are
// nullable because the catalog feed does not always supply them; auto-pick
// ordering treats a missing rank as worst.
type Player struct {
	ID           uuid.UUID    `json:"id"`
	FullName     string       `json:"full_name"`
	Position     string       `json:"position"`
	NFLTeam      string       `json:"nfl_team"`
	Rank         *int         `json:"rank,omitempty"`
	ADP          *float64     `json:"adp,omitempty"`
	ByeWeek      *int         `json:"bye_week,omitempty"`
	InjuryStatus InjuryStatus `json:"injury_status"`
	Active       bool         `json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
}
