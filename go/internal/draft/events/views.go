package events

import "github.com/mcdev12/keeper/go/internal/models"

// Converters from storage models to wire views.

func NewTeamView(t models.Team) TeamView {
	return TeamView{
		ID:            t.ID,
		Name:          t.Name,
		OwnerUserID:   t.OwnerUserID,
		DraftPosition: t.DraftPosition,
	}
}

func NewTeamViews(teams []models.Team) []TeamView {
	out := make([]TeamView, len(teams))
	for i, t := range teams {
		out[i] = NewTeamView(t)
	}
	return out
}

func NewPlayerView(p models.Player) PlayerView {
	return PlayerView{
		ID:           p.ID,
		FullName:     p.FullName,
		Position:     p.Position,
		NFLTeam:      p.NFLTeam,
		Rank:         p.Rank,
		ADP:          p.ADP,
		ByeWeek:      p.ByeWeek,
		InjuryStatus: string(p.InjuryStatus),
	}
}

func NewPickView(p models.DraftPick) PickView {
	return PickView{
		ID:                  p.ID,
		Season:              p.Season,
		Round:               p.Round,
		PickInRound:         p.PickInRound,
		OverallPickNumber:   p.OverallPickNumber,
		OriginalOwnerTeamID: p.OriginalOwnerTeamID,
		CurrentOwnerTeamID:  p.CurrentOwnerTeamID,
		SelectedPlayerID:    p.SelectedPlayerID,
		SelectedAt:          p.SelectedAt,
		IsComplete:          p.IsComplete,
	}
}

func NewPickViews(picks []models.DraftPick) []PickView {
	out := make([]PickView, len(picks))
	for i, p := range picks {
		out[i] = NewPickView(p)
	}
	return out
}

func NewRosterEntryView(e models.RosterEntry) RosterEntryView {
	return RosterEntryView{
		PlayerID:    e.PlayerID,
		TeamID:      e.TeamID,
		IsKeeper:    e.IsKeeper,
		KeeperRound: e.KeeperRound,
		AcquiredVia: string(e.AcquiredVia),
		AcquiredAt:  e.AcquiredAt,
	}
}

func NewAssetView(a models.TradeAsset) AssetView {
	return AssetView{
		FromTeamID:       a.FromTeamID,
		Kind:             string(a.Kind),
		DraftPickID:      a.DraftPickID,
		PlayerID:         a.PlayerID,
		FuturePickSeason: a.FuturePickSeason,
		FuturePickRound:  a.FuturePickRound,
	}
}

func NewAssetViews(assets []models.TradeAsset) []AssetView {
	out := make([]AssetView, len(assets))
	for i, a := range assets {
		out[i] = NewAssetView(a)
	}
	return out
}

func NewTradeView(t models.Trade) TradeView {
	return TradeView{
		ID:                   t.ID,
		InitiatorTeamID:      t.InitiatorTeamID,
		ReceiverTeamID:       t.ReceiverTeamID,
		Status:               string(t.Status),
		ProposedAt:           t.ProposedAt,
		ExpiresAt:            t.ExpiresAt,
		ForcedByCommissioner: t.ForcedByCommissioner,
		CommissionerNotes:    t.CommissionerNotes,
		Assets:               NewAssetViews(t.Assets),
	}
}
