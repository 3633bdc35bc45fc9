package trade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository/memory"
	"github.com/mcdev12/keeper/go/internal/models"
)

func engineFixture(t *testing.T) (*Engine, *memory.Store, *models.League, models.Team, models.Team) {
	t.Helper()
	store := memory.NewStore()
	league := &models.League{
		ID:            uuid.New(),
		Name:          "Keeper League",
		CurrentSeason: 2025,
		TotalRounds:   3,
	}
	a := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Alpha", DraftPosition: 1}
	b := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Bravo", DraftPosition: 2}
	store.SeedTeam(a)
	store.SeedTeam(b)
	return NewEngine(store), store, league, a, b
}

func wantFault(t *testing.T, err error, code events.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var f *events.Fault
	require.ErrorAs(t, err, &f, "expected a coded fault, got %v", err)
	require.Equal(t, code, f.Code, "fault message: %s", f.Message)
}

func rosterPlayer(store *memory.Store, leagueID, teamID uuid.UUID) uuid.UUID {
	playerID := uuid.New()
	store.SeedPlayer(models.Player{ID: playerID, FullName: "Somebody", Position: "WR", Active: true})
	store.SeedRosterEntry(models.RosterEntry{
		ID: uuid.New(), LeagueID: leagueID, TeamID: teamID,
		PlayerID: playerID, AcquiredVia: models.AcquiredViaDrafted,
	})
	return playerID
}

func TestBuildProposal(t *testing.T) {
	e, store, league, a, b := engineFixture(t)
	ctx := context.Background()
	now := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	p := rosterPlayer(store, league.ID, a.ID)
	season, round := 2026, 2

	tr, err := e.BuildProposal(ctx, league, events.ProposeTradeIntent{
		InitiatorTeamID: a.ID,
		ReceiverTeamID:  b.ID,
		InitiatorAssets: []events.TradeAssetSpec{{Kind: "PLAYER", PlayerID: &p}},
		ReceiverAssets:  []events.TradeAssetSpec{{Kind: "FUTURE_PICK", FuturePickSeason: &season, FuturePickRound: &round}},
	}, now)
	require.NoError(t, err)

	require.Equal(t, models.TradeStatusPending, tr.Status)
	require.Equal(t, now, tr.ProposedAt)
	require.Equal(t, now.Add(DefaultExpiry), tr.ExpiresAt, "no window requested means the default")
	require.Len(t, tr.Assets, 2)
	require.Equal(t, a.ID, tr.Assets[0].FromTeamID)
	require.Equal(t, models.AssetKindPlayer, tr.Assets[0].Kind)
	require.Equal(t, b.ID, tr.Assets[1].FromTeamID)
	require.Equal(t, models.AssetKindFuturePick, tr.Assets[1].Kind)

	window := 3600
	tr, err = e.BuildProposal(ctx, league, events.ProposeTradeIntent{
		InitiatorTeamID:  a.ID,
		ReceiverTeamID:   b.ID,
		InitiatorAssets:  []events.TradeAssetSpec{{Kind: "PLAYER", PlayerID: &p}},
		ExpiresInSeconds: &window,
	}, now)
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), tr.ExpiresAt)
}

func TestBuildProposalRefusals(t *testing.T) {
	e, store, league, a, b := engineFixture(t)
	ctx := context.Background()
	now := time.Now()
	p := rosterPlayer(store, league.ID, a.ID)

	stranger := models.Team{ID: uuid.New(), LeagueID: uuid.New(), Name: "Outsider"}
	store.SeedTeam(stranger)

	playerAsset := []events.TradeAssetSpec{{Kind: "PLAYER", PlayerID: &p}}
	negative := -5

	cases := []struct {
		name   string
		intent events.ProposeTradeIntent
	}{
		{"self trade", events.ProposeTradeIntent{InitiatorTeamID: a.ID, ReceiverTeamID: a.ID, InitiatorAssets: playerAsset}},
		{"no assets", events.ProposeTradeIntent{InitiatorTeamID: a.ID, ReceiverTeamID: b.ID}},
		{"unknown receiver", events.ProposeTradeIntent{InitiatorTeamID: a.ID, ReceiverTeamID: uuid.New(), InitiatorAssets: playerAsset}},
		{"receiver in another league", events.ProposeTradeIntent{InitiatorTeamID: a.ID, ReceiverTeamID: stranger.ID, InitiatorAssets: playerAsset}},
		{"non-positive expiry", events.ProposeTradeIntent{InitiatorTeamID: a.ID, ReceiverTeamID: b.ID, InitiatorAssets: playerAsset, ExpiresInSeconds: &negative}},
		{"unknown asset kind", events.ProposeTradeIntent{InitiatorTeamID: a.ID, ReceiverTeamID: b.ID, InitiatorAssets: []events.TradeAssetSpec{{Kind: "MASCOT"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.BuildProposal(ctx, league, tc.intent, now)
			wantFault(t, err, events.CodeValidationFailed)
		})
	}
}

func TestDraftPickAssetValidation(t *testing.T) {
	e, store, league, a, b := engineFixture(t)
	ctx := context.Background()
	now := time.Now()

	overall := 1
	playerID := uuid.New()
	owned := models.DraftPick{
		ID: uuid.New(), LeagueID: league.ID, Season: 2025, Round: 1,
		OverallPickNumber: &overall,
		OriginalOwnerTeamID: a.ID, CurrentOwnerTeamID: a.ID,
	}
	foreign := models.DraftPick{
		ID: uuid.New(), LeagueID: uuid.New(), Season: 2025, Round: 1,
		OriginalOwnerTeamID: a.ID, CurrentOwnerTeamID: a.ID,
	}
	used := owned
	used.ID = uuid.New()
	used.IsComplete = true
	used.SelectedPlayerID = &playerID
	store.SeedPick(owned)
	store.SeedPick(foreign)
	store.SeedPick(used)

	propose := func(pickID uuid.UUID, from uuid.UUID) error {
		intent := events.ProposeTradeIntent{
			InitiatorTeamID: from,
			ReceiverTeamID:  b.ID,
			InitiatorAssets: []events.TradeAssetSpec{{Kind: "DRAFT_PICK", DraftPickID: &pickID}},
		}
		if from == b.ID {
			intent.ReceiverTeamID = a.ID
		}
		_, err := e.BuildProposal(ctx, league, intent, now)
		return err
	}

	require.NoError(t, propose(owned.ID, a.ID))
	wantFault(t, propose(uuid.New(), a.ID), events.CodeValidationFailed)
	wantFault(t, propose(foreign.ID, a.ID), events.CodeValidationFailed)
	wantFault(t, propose(used.ID, a.ID), events.CodeValidationFailed)
	// A pick can only be sent by the team that currently owns it.
	wantFault(t, propose(owned.ID, b.ID), events.CodeValidationFailed)
}

func TestFuturePickAssetValidation(t *testing.T) {
	e, store, league, a, b := engineFixture(t)
	ctx := context.Background()
	now := time.Now()

	propose := func(season, round int) error {
		intent := events.ProposeTradeIntent{
			InitiatorTeamID: a.ID,
			ReceiverTeamID:  b.ID,
			InitiatorAssets: []events.TradeAssetSpec{{Kind: "FUTURE_PICK", FuturePickSeason: &season, FuturePickRound: &round}},
		}
		_, err := e.BuildProposal(ctx, league, intent, now)
		return err
	}

	// Never materialized: the original owner still holds it.
	require.NoError(t, propose(2026, 1))

	wantFault(t, propose(2025, 1), events.CodeValidationFailed)
	wantFault(t, propose(2024, 1), events.CodeValidationFailed)
	wantFault(t, propose(2026, 0), events.CodeValidationFailed)
	wantFault(t, propose(2026, 4), events.CodeValidationFailed)

	// Materialized and already sent to B in an earlier trade.
	store.SeedPick(models.DraftPick{
		ID: uuid.New(), LeagueID: league.ID, Season: 2027, Round: 2,
		OriginalOwnerTeamID: a.ID, CurrentOwnerTeamID: b.ID,
	})
	wantFault(t, propose(2027, 2), events.CodeValidationFailed)

	// Materialized but still held: tradable again.
	store.SeedPick(models.DraftPick{
		ID: uuid.New(), LeagueID: league.ID, Season: 2027, Round: 3,
		OriginalOwnerTeamID: a.ID, CurrentOwnerTeamID: a.ID,
	})
	require.NoError(t, propose(2027, 3))
}

func TestDuplicateAssetsRejected(t *testing.T) {
	e, store, league, a, b := engineFixture(t)
	ctx := context.Background()
	now := time.Now()
	p := rosterPlayer(store, league.ID, a.ID)
	season, round := 2026, 1

	_, err := e.BuildProposal(ctx, league, events.ProposeTradeIntent{
		InitiatorTeamID: a.ID,
		ReceiverTeamID:  b.ID,
		InitiatorAssets: []events.TradeAssetSpec{
			{Kind: "PLAYER", PlayerID: &p},
			{Kind: "PLAYER", PlayerID: &p},
		},
	}, now)
	wantFault(t, err, events.CodeValidationFailed)

	_, err = e.BuildProposal(ctx, league, events.ProposeTradeIntent{
		InitiatorTeamID: a.ID,
		ReceiverTeamID:  b.ID,
		InitiatorAssets: []events.TradeAssetSpec{
			{Kind: "FUTURE_PICK", FuturePickSeason: &season, FuturePickRound: &round},
			{Kind: "FUTURE_PICK", FuturePickSeason: &season, FuturePickRound: &round},
		},
	}, now)
	wantFault(t, err, events.CodeValidationFailed)
}
