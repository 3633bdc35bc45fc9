package leagues

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/draft/repository/memory"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/sports/base"
	_ "github.com/mcdev12/keeper/go/internal/sports/nfl"
)

func TestMain(m *testing.M) {
	if err := base.InitializePlugin("nfl"); err != nil {
		panic(err)
	}
	m.Run()
}

func validTemplate() models.RosterTemplate {
	return models.RosterTemplate{
		Starters: map[string]int{"QB": 1, "RB": 2, "WR": 2, "FLEX": 1},
		Bench:    4,
	}
}

func validRequest() UpdateSettingsRequest {
	return UpdateSettingsRequest{
		Name:           "Renamed League",
		RosterTemplate: validTemplate(),
		DraftType:      models.DraftTypeSnake,
		TotalRounds:    10,
		TimerSeconds:   90,
		ReserveSeconds: 120,
		PauseOnTrade:   true,
		MaxKeepers:     2,
	}
}

func seedSettingsLeague(t *testing.T, store *memory.Store) *models.League {
	t.Helper()
	league := &models.League{
		ID:                 uuid.New(),
		Name:               "Original League",
		SportID:            "nfl",
		CommissionerUserID: uuid.New(),
		MaxTeams:           10,
		RosterTemplate:     validTemplate(),
		DraftType:          models.DraftTypeSnake,
		TotalRounds:        10,
		TimerSeconds:       60,
		CurrentSeason:      2025,
		CreatedAt:          time.Now(),
	}
	store.SeedLeague(*league)
	return league
}

func TestUpdateSettings(t *testing.T) {
	store := memory.NewStore()
	app := NewApp(store)
	league := seedSettingsLeague(t, store)
	commish := league.CommissionerUserID

	req := validRequest()
	updated, err := app.UpdateSettings(context.Background(), league.ID, commish, req)
	require.NoError(t, err)
	assert.Equal(t, "Renamed League", updated.Name)
	assert.Equal(t, 90, updated.TimerSeconds)
	assert.True(t, updated.PauseOnTrade)

	stored, err := store.GetLeague(context.Background(), league.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed League", stored.Name)

	entries, err := store.ListActivity(context.Background(), league.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActivitySettingsChange, entries[0].Type)
	require.NotNil(t, entries[0].ActorUserID)
	assert.Equal(t, commish, *entries[0].ActorUserID)
}

func TestUpdateSettingsRejectsBadTemplate(t *testing.T) {
	store := memory.NewStore()
	app := NewApp(store)
	league := seedSettingsLeague(t, store)

	req := validRequest()
	req.RosterTemplate.Starters["GOALIE"] = 1
	_, err := app.UpdateSettings(context.Background(), league.ID, league.CommissionerUserID, req)
	require.ErrorIs(t, err, ErrSettingsRejected)
	assert.Contains(t, err.Error(), "GOALIE")
}

func TestUpdateSettingsValidation(t *testing.T) {
	store := memory.NewStore()
	app := NewApp(store)
	league := seedSettingsLeague(t, store)

	tests := []struct {
		name   string
		mutate func(*UpdateSettingsRequest)
	}{
		{"empty name", func(r *UpdateSettingsRequest) { r.Name = "" }},
		{"bad draft type", func(r *UpdateSettingsRequest) { r.DraftType = "AUCTION" }},
		{"zero rounds", func(r *UpdateSettingsRequest) { r.TotalRounds = 0 }},
		{"zero timer", func(r *UpdateSettingsRequest) { r.TimerSeconds = 0 }},
		{"negative reserve", func(r *UpdateSettingsRequest) { r.ReserveSeconds = -1 }},
		{"negative keepers", func(r *UpdateSettingsRequest) { r.MaxKeepers = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := app.UpdateSettings(context.Background(), league.ID, league.CommissionerUserID, req)
			require.ErrorIs(t, err, ErrSettingsRejected)
		})
	}
}

func TestUpdateSettingsFreezesDraftShapeOnceStarted(t *testing.T) {
	store := memory.NewStore()
	app := NewApp(store)
	league := seedSettingsLeague(t, store)

	state := models.NewDraftState(league.ID, time.Now())
	state.Status = models.DraftStatusInProgress
	store.SeedDraftState(*state)

	req := validRequest()
	req.TotalRounds = 12
	_, err := app.UpdateSettings(context.Background(), league.ID, league.CommissionerUserID, req)
	require.ErrorIs(t, err, ErrSettingsRejected)
	assert.Contains(t, err.Error(), "frozen")

	// Cosmetic changes stay allowed mid-draft.
	req = validRequest()
	req.TimerSeconds = league.TimerSeconds
	req.TotalRounds = league.TotalRounds
	req.DraftType = league.DraftType
	updated, err := app.UpdateSettings(context.Background(), league.ID, league.CommissionerUserID, req)
	require.NoError(t, err)
	assert.Equal(t, "Renamed League", updated.Name)
}
