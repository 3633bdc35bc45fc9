package snapshot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/draft/repository/memory"
	"github.com/mcdev12/keeper/go/internal/models"
)

func TestBuildMapsSnapshotOntoPayload(t *testing.T) {
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)
	league := &models.League{
		ID:   uuid.New(),
		Name: "Keeper League",
		RosterTemplate: models.RosterTemplate{
			Starters: map[string]int{"QB": 1, "RB": 2},
			Bench:    3,
		},
		DraftType:     models.DraftTypeSnake,
		TotalRounds:   2,
		CurrentSeason: 2025,
	}
	a := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Alpha", DraftPosition: 1}
	b := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Bravo", DraftPosition: 2}

	started := now.Add(-12 * time.Second)
	remaining := 60
	state := &models.DraftState{
		LeagueID:              league.ID,
		Status:                models.DraftStatusInProgress,
		CurrentRound:          2,
		CurrentPick:           3,
		CurrentTeamID:         &b.ID,
		TimerSecondsRemaining: &remaining,
		TimerStartedAt:        &started,
	}

	overalls := []int{1, 2, 3, 4}
	selected := uuid.New()
	picks := make([]models.DraftPick, 4)
	for i := range picks {
		owner := a.ID
		if i%2 == 1 {
			owner = b.ID
		}
		picks[i] = models.DraftPick{
			ID: uuid.New(), LeagueID: league.ID, Season: 2025,
			Round: i/2 + 1, OverallPickNumber: &overalls[i],
			OriginalOwnerTeamID: owner, CurrentOwnerTeamID: owner,
		}
	}
	picks[0].IsComplete = true
	picks[0].SelectedPlayerID = &selected
	picks[1].IsComplete = true

	rank := 7
	pool := []models.Player{{ID: uuid.New(), FullName: "Free Agent", Position: "RB", Rank: &rank, Active: true}}
	rosters := []models.RosterEntry{
		{ID: uuid.New(), LeagueID: league.ID, TeamID: a.ID, PlayerID: selected, AcquiredVia: models.AcquiredViaDrafted},
		{ID: uuid.New(), LeagueID: league.ID, TeamID: a.ID, PlayerID: uuid.New(), IsKeeper: true, AcquiredVia: models.AcquiredViaKeeper},
		{ID: uuid.New(), LeagueID: league.ID, TeamID: b.ID, PlayerID: uuid.New(), AcquiredVia: models.AcquiredViaDrafted},
	}
	pending := []models.Trade{{
		ID: uuid.New(), LeagueID: league.ID,
		InitiatorTeamID: a.ID, ReceiverTeamID: b.ID,
		Status: models.TradeStatusPending, ProposedAt: now, ExpiresAt: now.Add(time.Hour),
		Assets: []models.TradeAsset{{ID: uuid.New(), FromTeamID: a.ID, Kind: models.AssetKindPlayer, PlayerID: &selected}},
	}}
	queues := []models.TeamQueue{{LeagueID: league.ID, TeamID: b.ID, PlayerIDs: []uuid.UUID{pool[0].ID}}}

	payload := Build(&repository.SnapshotData{
		League:    league,
		State:     state,
		Teams:     []models.Team{a, b},
		Picks:     picks,
		Available: pool,
		Rosters:   rosters,
		Pending:   pending,
		Queues:    queues,
	}, now)

	require.Equal(t, league.ID, payload.LeagueID)
	require.Equal(t, "IN_PROGRESS", payload.Status)
	require.Equal(t, 2, payload.CurrentRound)
	require.Equal(t, 3, payload.CurrentPick)
	require.Equal(t, &b.ID, payload.CurrentTeamID)
	require.NotNil(t, payload.CurrentTeam)
	require.Equal(t, "Bravo", payload.CurrentTeam.Name)
	require.False(t, payload.IsPaused)
	require.Nil(t, payload.PauseReason)

	require.NotNil(t, payload.TimerSecondsRemaining)
	require.Equal(t, 48, *payload.TimerSecondsRemaining, "12s elapsed off a 60s residual")

	require.Len(t, payload.DraftOrder, 2)
	require.Equal(t, a.ID, payload.DraftOrder[0].ID)

	require.Len(t, payload.AllPicks, 4)
	require.Len(t, payload.CompletedPicks, 2)
	require.Equal(t, picks[0].ID, payload.CompletedPicks[0].ID)
	require.Equal(t, &selected, payload.CompletedPicks[0].SelectedPlayerID)

	require.Len(t, payload.AvailablePlayers, 1)
	require.Equal(t, "Free Agent", payload.AvailablePlayers[0].FullName)

	require.Len(t, payload.TeamRosters[a.ID], 2)
	require.Len(t, payload.TeamRosters[b.ID], 1)
	require.True(t, payload.TeamRosters[a.ID][1].IsKeeper)

	require.Len(t, payload.PendingTrades, 1)
	require.Equal(t, pending[0].ID, payload.PendingTrades[0].ID)
	require.Len(t, payload.PendingTrades[0].Assets, 1)

	require.Equal(t, []uuid.UUID{pool[0].ID}, payload.TeamQueues[b.ID])
	require.Equal(t, 2, payload.TotalRounds)
	require.Equal(t, "SNAKE", payload.DraftType)
	require.Equal(t, map[string]int{"QB": 1, "RB": 2, "BENCH": 3}, payload.RosterSettings)
	require.Equal(t, now, payload.Timestamp)
}

func TestBuildTimerDerivation(t *testing.T) {
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)
	league := &models.League{ID: uuid.New()}
	build := func(st *models.DraftState) *int {
		st.LeagueID = league.ID
		data := &repository.SnapshotData{League: league, State: st}
		return Build(data, now).TimerSecondsRemaining
	}

	t.Run("paused keeps the frozen residual", func(t *testing.T) {
		residual := 37
		got := build(&models.DraftState{
			Status: models.DraftStatusInProgress, IsPaused: true,
			TimerSecondsRemaining: &residual,
		})
		require.NotNil(t, got)
		require.Equal(t, 37, *got)
	})

	t.Run("overdue running clock reads zero", func(t *testing.T) {
		residual := 60
		started := now.Add(-90 * time.Second)
		got := build(&models.DraftState{
			Status:                models.DraftStatusInProgress,
			TimerSecondsRemaining: &residual,
			TimerStartedAt:        &started,
		})
		require.NotNil(t, got)
		require.Equal(t, 0, *got)
	})

	t.Run("no clock at all", func(t *testing.T) {
		require.Nil(t, build(&models.DraftState{Status: models.DraftStatusNotStarted}))
	})
}

func TestStateSyncThroughStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	store := memory.NewStore()

	league := models.League{
		ID: uuid.New(), Name: "Keeper League",
		RosterTemplate: models.RosterTemplate{Starters: map[string]int{"QB": 1}, Bench: 2},
		DraftType:      models.DraftTypeLinear,
		TotalRounds:    2, TimerSeconds: 60, CurrentSeason: 2025,
	}
	store.SeedLeague(league)
	a := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Alpha", DraftPosition: 1}
	b := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Bravo", DraftPosition: 2}
	store.SeedTeam(a)
	store.SeedTeam(b)

	// More actives than the cap, ranked in order. Rank 1 is already rostered
	// so the pool must start at rank 2, and the inactive player never shows.
	players := make([]models.Player, AvailableLimit+10)
	for i := range players {
		rank := i + 1
		players[i] = models.Player{
			ID:       uuid.New(),
			FullName: fmt.Sprintf("Player %03d", rank),
			Position: "WR",
			Rank:     &rank,
			Active:   true,
		}
		store.SeedPlayer(players[i])
	}
	store.SeedPlayer(models.Player{ID: uuid.New(), FullName: "Retired Guy", Position: "WR", Active: false})
	store.SeedRosterEntry(models.RosterEntry{
		ID: uuid.New(), LeagueID: league.ID, TeamID: a.ID,
		PlayerID: players[0].ID, AcquiredVia: models.AcquiredViaDrafted,
	})

	residual := 45
	reason := "Paused by commissioner"
	store.SeedDraftState(models.DraftState{
		LeagueID: league.ID, Status: models.DraftStatusInProgress,
		CurrentRound: 1, CurrentPick: 1, CurrentTeamID: &a.ID,
		IsPaused: true, PauseReason: &reason, TimerSecondsRemaining: &residual,
		LastActivityAt: now,
	})

	open := &models.Trade{
		ID: uuid.New(), LeagueID: league.ID,
		InitiatorTeamID: a.ID, ReceiverTeamID: b.ID,
		Status: models.TradeStatusPending, ProposedAt: now, ExpiresAt: now.Add(time.Hour),
		Assets: []models.TradeAsset{{ID: uuid.New(), FromTeamID: a.ID, Kind: models.AssetKindPlayer, PlayerID: &players[0].ID}},
	}
	stale := &models.Trade{
		ID: uuid.New(), LeagueID: league.ID,
		InitiatorTeamID: b.ID, ReceiverTeamID: a.ID,
		Status: models.TradeStatusPending, ProposedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	for _, tr := range []*models.Trade{open, stale} {
		entry := models.ActivityEntry{
			ID: uuid.New(), LeagueID: league.ID,
			Type: models.ActivityTradeProposed, CreatedAt: tr.ProposedAt,
		}
		require.NoError(t, store.CreateTrade(ctx, tr, entry, nil))
	}
	require.NoError(t, store.UpsertTeamQueue(ctx, &models.TeamQueue{
		LeagueID: league.ID, TeamID: b.ID,
		PlayerIDs: []uuid.UUID{players[3].ID}, UpdatedAt: now,
	}))

	payload, err := NewBuilder(store, clock).StateSync(ctx, league.ID)
	require.NoError(t, err)

	require.Len(t, payload.AvailablePlayers, AvailableLimit)
	require.Equal(t, "Player 002", payload.AvailablePlayers[0].FullName)
	for _, p := range payload.AvailablePlayers {
		require.NotEqual(t, players[0].ID, p.ID)
		require.NotEqual(t, "Retired Guy", p.FullName)
	}

	require.True(t, payload.IsPaused)
	require.Equal(t, &reason, payload.PauseReason)
	require.NotNil(t, payload.TimerSecondsRemaining)
	require.Equal(t, 45, *payload.TimerSecondsRemaining)
	require.NotNil(t, payload.CurrentTeam)
	require.Equal(t, "Alpha", payload.CurrentTeam.Name)

	require.Len(t, payload.PendingTrades, 1, "expired proposals stay out of the snapshot")
	require.Equal(t, open.ID, payload.PendingTrades[0].ID)
	require.Equal(t, []uuid.UUID{players[3].ID}, payload.TeamQueues[b.ID])
	require.Equal(t, map[string]int{"QB": 1, "BENCH": 2}, payload.RosterSettings)

	_, err = NewBuilder(store, clock).StateSync(ctx, uuid.New())
	require.ErrorIs(t, err, repository.ErrNotFound)
}

// A league that exists but never drafted has no state row; joining it must
// yield a fresh NOT_STARTED snapshot, not an error.
func TestStateSyncNeverDraftedLeague(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC))
	store := memory.NewStore()

	league := models.League{
		ID: uuid.New(), Name: "Fresh League",
		RosterTemplate: models.RosterTemplate{Starters: map[string]int{"QB": 1}, Bench: 2},
		DraftType:      models.DraftTypeSnake,
		TotalRounds:    3, TimerSeconds: 60, CurrentSeason: 2025,
	}
	store.SeedLeague(league)
	store.SeedTeam(models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Alpha", DraftPosition: 1})

	payload, err := NewBuilder(store, clock).StateSync(context.Background(), league.ID)
	require.NoError(t, err)
	require.Equal(t, string(models.DraftStatusNotStarted), payload.Status)
	require.Nil(t, payload.CurrentTeamID)
	require.Nil(t, payload.TimerSecondsRemaining)
	require.False(t, payload.IsPaused)
	require.Empty(t, payload.CompletedPicks)
	require.Len(t, payload.DraftOrder, 1)
}
