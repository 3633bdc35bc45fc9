package models

import (
	"github.com/google/uuid"
	"time"
)

// DraftPick represents a single selectable slot in a league's draft.
//
// Current-season picks always carry PickInRound and OverallPickNumber.
// Future-season picks materialized by a trade carry only (Season, Round,
// OriginalOwnerTeamID) until that season's order is generated, so both
// fields are nullable. OriginalOwnerTeamID never changes once the row
// exists; CurrentOwnerTeamID changes only when a trade completes.
type DraftPick struct {
	ID                  uuid.UUID  `json:"id"`
	LeagueID            uuid.UUID  `json:"league_id"`
	Season              int        `json:"season"`
	Round               int        `json:"round"`
	PickInRound         *int       `json:"pick_in_round,omitempty"`
	OverallPickNumber   *int       `json:"overall_pick_number,omitempty"`
	OriginalOwnerTeamID uuid.UUID  `json:"original_owner_team_id"`
	CurrentOwnerTeamID  uuid.UUID  `json:"current_owner_team_id"`
	SelectedPlayerID    *uuid.UUID `json:"selected_player_id,omitempty"`
	SelectedAt          *time.Time `json:"selected_at,omitempty"`
	IsComplete          bool       `json:"is_complete"`
}

// Overall returns the overall pick number or 0 for unscheduled future picks.
func (p *DraftPick) Overall() int {
	if p.OverallPickNumber == nil {
		return 0
	}
	return *p.OverallPickNumber
}
