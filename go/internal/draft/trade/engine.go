package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

// Store is the slice of the persistence gateway proposal validation reads.
type Store interface {
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetPick(ctx context.Context, id uuid.UUID) (*models.DraftPick, error)
	GetFuturePick(ctx context.Context, leagueID uuid.UUID, season, round int, originalOwner uuid.UUID) (*models.DraftPick, error)
	ListTeamRoster(ctx context.Context, leagueID, teamID uuid.UUID) ([]models.RosterEntry, error)
}

// DefaultExpiry bounds how long a proposal stays open when the proposer
// doesn't pick a window.
const DefaultExpiry = 24 * time.Hour

// Engine validates trade proposals. Validation here is advisory: ownership
// is re-checked under row locks when the trade executes, so a stale pass is
// harmless and a stale failure just saves a round trip.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// BuildProposal checks a propose intent against current ownership and
// returns the PENDING trade ready to persist. Refusals are Faults.
func (e *Engine) BuildProposal(ctx context.Context, league *models.League, intent events.ProposeTradeIntent, now time.Time) (*models.Trade, error) {
	if intent.InitiatorTeamID == intent.ReceiverTeamID {
		return nil, events.Faultf(events.CodeValidationFailed, "a team cannot trade with itself")
	}
	if len(intent.InitiatorAssets)+len(intent.ReceiverAssets) == 0 {
		return nil, events.Faultf(events.CodeValidationFailed, "trade must include at least one asset")
	}
	for _, teamID := range []uuid.UUID{intent.InitiatorTeamID, intent.ReceiverTeamID} {
		team, err := e.store.GetTeam(ctx, teamID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, events.Faultf(events.CodeValidationFailed, "team %s does not exist", teamID)
			}
			return nil, err
		}
		if team.LeagueID != league.ID {
			return nil, events.Faultf(events.CodeValidationFailed, "team %s is not in this league", teamID)
		}
	}

	expiry := DefaultExpiry
	if intent.ExpiresInSeconds != nil {
		if *intent.ExpiresInSeconds <= 0 {
			return nil, events.Faultf(events.CodeValidationFailed, "trade expiry must be positive")
		}
		expiry = time.Duration(*intent.ExpiresInSeconds) * time.Second
	}

	tr := &models.Trade{
		ID:              uuid.New(),
		LeagueID:        league.ID,
		InitiatorTeamID: intent.InitiatorTeamID,
		ReceiverTeamID:  intent.ReceiverTeamID,
		Status:          models.TradeStatusPending,
		ProposedAt:      now,
		ExpiresAt:       now.Add(expiry),
	}

	rosters := map[uuid.UUID][]models.RosterEntry{}
	seen := map[string]bool{}
	sides := []struct {
		from  uuid.UUID
		specs []events.TradeAssetSpec
	}{
		{intent.InitiatorTeamID, intent.InitiatorAssets},
		{intent.ReceiverTeamID, intent.ReceiverAssets},
	}
	for _, side := range sides {
		for _, spec := range side.specs {
			asset, err := e.buildAsset(ctx, league, tr.ID, side.from, spec, rosters)
			if err != nil {
				return nil, err
			}
			key := assetKey(asset)
			if seen[key] {
				return nil, events.Faultf(events.CodeValidationFailed, "duplicate asset in trade")
			}
			seen[key] = true
			tr.Assets = append(tr.Assets, *asset)
		}
	}
	return tr, nil
}

func (e *Engine) buildAsset(ctx context.Context, league *models.League, tradeID, from uuid.UUID, spec events.TradeAssetSpec, rosters map[uuid.UUID][]models.RosterEntry) (*models.TradeAsset, error) {
	asset := &models.TradeAsset{
		ID:         uuid.New(),
		TradeID:    tradeID,
		FromTeamID: from,
		Kind:       models.AssetKind(spec.Kind),
	}
	switch asset.Kind {
	case models.AssetKindDraftPick:
		if spec.DraftPickID == nil {
			return nil, events.Faultf(events.CodeValidationFailed, "draft pick asset needs a pick id")
		}
		pick, err := e.store.GetPick(ctx, *spec.DraftPickID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, events.Faultf(events.CodeValidationFailed, "pick %s does not exist", spec.DraftPickID)
			}
			return nil, err
		}
		if pick.LeagueID != league.ID {
			return nil, events.Faultf(events.CodeValidationFailed, "pick %s is not in this league", pick.ID)
		}
		if pick.IsComplete {
			return nil, events.Faultf(events.CodeValidationFailed, "pick %d has already been used", pick.Overall())
		}
		if pick.CurrentOwnerTeamID != from {
			return nil, events.Faultf(events.CodeValidationFailed, "pick %d is not owned by the sending team", pick.Overall())
		}
		asset.DraftPickID = spec.DraftPickID

	case models.AssetKindPlayer:
		if spec.PlayerID == nil {
			return nil, events.Faultf(events.CodeValidationFailed, "player asset needs a player id")
		}
		roster, ok := rosters[from]
		if !ok {
			var err error
			roster, err = e.store.ListTeamRoster(ctx, league.ID, from)
			if err != nil {
				return nil, err
			}
			rosters[from] = roster
		}
		if !rosterHas(roster, *spec.PlayerID) {
			return nil, events.Faultf(events.CodeValidationFailed, "player %s is not on the sending team's roster", spec.PlayerID)
		}
		asset.PlayerID = spec.PlayerID

	case models.AssetKindFuturePick:
		if spec.FuturePickSeason == nil || spec.FuturePickRound == nil {
			return nil, events.Faultf(events.CodeValidationFailed, "future pick asset needs a season and round")
		}
		season, round := *spec.FuturePickSeason, *spec.FuturePickRound
		if season <= league.CurrentSeason {
			return nil, events.Faultf(events.CodeValidationFailed, "future pick season %d is not after the current season", season)
		}
		if round < 1 || round > league.TotalRounds {
			return nil, events.Faultf(events.CodeValidationFailed, "future pick round %d is out of range", round)
		}
		// A future pick only has a row once some trade materialized it. No
		// row means the original owner still holds it.
		pick, err := e.store.GetFuturePick(ctx, league.ID, season, round, from)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return nil, err
		case pick.IsComplete:
			return nil, events.Faultf(events.CodeValidationFailed, "future pick %d round %d has already been used", season, round)
		case pick.CurrentOwnerTeamID != from:
			return nil, events.Faultf(events.CodeValidationFailed, "future pick %d round %d was already traded away", season, round)
		}
		asset.FuturePickSeason = spec.FuturePickSeason
		asset.FuturePickRound = spec.FuturePickRound

	default:
		return nil, events.Faultf(events.CodeValidationFailed, "unknown asset kind %q", spec.Kind)
	}
	return asset, nil
}

func rosterHas(entries []models.RosterEntry, playerID uuid.UUID) bool {
	for _, e := range entries {
		if e.PlayerID == playerID {
			return true
		}
	}
	return false
}

func assetKey(a *models.TradeAsset) string {
	switch a.Kind {
	case models.AssetKindDraftPick:
		return "pick:" + a.DraftPickID.String()
	case models.AssetKindPlayer:
		return "player:" + a.PlayerID.String()
	default:
		return fmt.Sprintf("future:%s:%d:%d", a.FromTeamID, *a.FuturePickSeason, *a.FuturePickRound)
	}
}
