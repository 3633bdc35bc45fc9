package teams

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/draft/repository/memory"
	"github.com/mcdev12/keeper/go/internal/models"
)

func seedLeague(t *testing.T, store *memory.Store) (uuid.UUID, []models.Team) {
	t.Helper()
	leagueID := uuid.New()
	store.SeedLeague(models.League{
		ID:                 leagueID,
		Name:               "Test League",
		SportID:            "nfl",
		CommissionerUserID: uuid.New(),
		CreatedAt:          time.Now(),
	})

	// Seeded out of position order on purpose.
	owners := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	teams := []models.Team{
		{ID: uuid.New(), LeagueID: leagueID, Name: "Charlie", OwnerUserID: &owners[2], DraftPosition: 3},
		{ID: uuid.New(), LeagueID: leagueID, Name: "Alpha", OwnerUserID: &owners[0], DraftPosition: 1},
		{ID: uuid.New(), LeagueID: leagueID, Name: "Bravo", OwnerUserID: &owners[1], DraftPosition: 2},
	}
	for _, team := range teams {
		store.SeedTeam(team)
	}
	return leagueID, teams
}

func TestListByDraftOrder(t *testing.T) {
	store := memory.NewStore()
	app := NewApp(store)
	leagueID, _ := seedLeague(t, store)

	teams, err := app.ListByDraftOrder(context.Background(), leagueID)
	require.NoError(t, err)
	require.Len(t, teams, 3)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, []string{teams[0].Name, teams[1].Name, teams[2].Name})
}

func TestListByDraftOrderUnknownLeague(t *testing.T) {
	store := memory.NewStore()
	app := NewApp(store)

	_, err := app.ListByDraftOrder(context.Background(), uuid.New())
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetOwnedTeam(t *testing.T) {
	store := memory.NewStore()
	app := NewApp(store)
	leagueID, teams := seedLeague(t, store)

	team, err := app.GetOwnedTeam(context.Background(), leagueID, *teams[1].OwnerUserID)
	require.NoError(t, err)
	assert.Equal(t, teams[1].ID, team.ID)

	_, err = app.GetOwnedTeam(context.Background(), leagueID, uuid.New())
	require.ErrorIs(t, err, repository.ErrNotFound)
}
