package trade

import (
	"github.com/mcdev12/keeper/go/internal/models"
)

// PauseReason annotates the auto-pause applied by the pause-on-trade policy.
const PauseReason = "Trade completed — draft paused for review"

// proximityWindow is how many upcoming selections around the current pick a
// traded pick must fall within to trigger the pause-on-trade policy.
const proximityWindow = 3

// ShouldAutoPause decides whether a completed trade freezes a running draft:
// yes when the league opted in and either side is on the clock, or a traded
// current-season pick lands within the next few selections.
func ShouldAutoPause(league *models.League, state *models.DraftState, tr *models.Trade, updated []models.DraftPick) bool {
	if !league.PauseOnTrade || state.Status != models.DraftStatusInProgress || state.IsPaused {
		return false
	}
	if state.CurrentTeamID != nil {
		if *state.CurrentTeamID == tr.InitiatorTeamID || *state.CurrentTeamID == tr.ReceiverTeamID {
			return true
		}
	}
	for _, p := range updated {
		if p.Season != league.CurrentSeason || p.OverallPickNumber == nil {
			continue
		}
		if n := *p.OverallPickNumber; n >= state.CurrentPick && n <= state.CurrentPick+proximityWindow {
			return true
		}
	}
	return false
}
