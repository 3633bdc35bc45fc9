package coordinator

import (
	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
)

// GeneratePicks builds a season's full board from the ordered team list.
// Round order follows the league's draft type: LINEAR repeats the list every
// round, SNAKE reverses it on even rounds. Overall numbering is
// (round-1)*len(teams) + pickInRound, so the board is a bijection onto
// [1..rounds*len(teams)].
func GeneratePicks(leagueID uuid.UUID, season int, draftType models.DraftType, totalRounds int, teams []models.Team) []models.DraftPick {
	n := len(teams)
	picks := make([]models.DraftPick, 0, n*totalRounds)
	for r := 1; r <= totalRounds; r++ {
		for k := 1; k <= n; k++ {
			team := teams[k-1]
			if draftType == models.DraftTypeSnake && r%2 == 0 {
				team = teams[n-k]
			}
			inRound := k
			overall := (r-1)*n + k
			picks = append(picks, models.DraftPick{
				ID:                  uuid.New(),
				LeagueID:            leagueID,
				Season:              season,
				Round:               r,
				PickInRound:         &inRound,
				OverallPickNumber:   &overall,
				OriginalOwnerTeamID: team.ID,
				CurrentOwnerTeamID:  team.ID,
			})
		}
	}
	return picks
}
