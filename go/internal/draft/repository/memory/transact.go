package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

// Picks.

func (s *Store) GetPick(ctx context.Context, id uuid.UUID) (*models.DraftPick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.picks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePick(&p), nil
}

func (s *Store) GetPickByOverall(ctx context.Context, leagueID uuid.UUID, season, overall int) (*models.DraftPick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.picks {
		if p.LeagueID == leagueID && p.Season == season && p.OverallPickNumber != nil && *p.OverallPickNumber == overall {
			return clonePick(&p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetFuturePick(ctx context.Context, leagueID uuid.UUID, season, round int, originalOwner uuid.UUID) (*models.DraftPick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.picks {
		if p.LeagueID == leagueID && p.Season == season && p.Round == round && p.OriginalOwnerTeamID == originalOwner {
			return clonePick(&p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListPicks(ctx context.Context, leagueID uuid.UUID, season int) ([]models.DraftPick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPicksLocked(leagueID, season), nil
}

func (s *Store) listPicksLocked(leagueID uuid.UUID, season int) []models.DraftPick {
	var picks []models.DraftPick
	for _, p := range s.picks {
		if p.LeagueID == leagueID && p.Season == season {
			picks = append(picks, *clonePick(&p))
		}
	}
	sort.Slice(picks, func(i, j int) bool {
		oi, oj := picks[i].OverallPickNumber, picks[j].OverallPickNumber
		switch {
		case oi != nil && oj != nil:
			return *oi < *oj
		case oi != nil:
			return true
		case oj != nil:
			return false
		}
		if picks[i].Round != picks[j].Round {
			return picks[i].Round < picks[j].Round
		}
		return picks[i].ID.String() < picks[j].ID.String()
	})
	return picks
}

func (s *Store) NextIncompletePick(ctx context.Context, leagueID uuid.UUID, season int) (*models.DraftPick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var next *models.DraftPick
	for _, p := range s.picks {
		p := p
		if p.LeagueID != leagueID || p.Season != season || p.IsComplete || p.OverallPickNumber == nil {
			continue
		}
		if next == nil || *p.OverallPickNumber < *next.OverallPickNumber {
			next = &p
		}
	}
	if next == nil {
		return nil, repository.ErrNotFound
	}
	return clonePick(next), nil
}

func clonePick(p *models.DraftPick) *models.DraftPick {
	out := *p
	if p.PickInRound != nil {
		v := *p.PickInRound
		out.PickInRound = &v
	}
	if p.OverallPickNumber != nil {
		v := *p.OverallPickNumber
		out.OverallPickNumber = &v
	}
	if p.SelectedPlayerID != nil {
		v := *p.SelectedPlayerID
		out.SelectedPlayerID = &v
	}
	if p.SelectedAt != nil {
		v := *p.SelectedAt
		out.SelectedAt = &v
	}
	return &out
}

// Composite draft mutations. Each mirrors the SQL store: every guard that a
// unique index enforces is checked here, and the activity/outbox rows land
// only when the whole mutation succeeds.

func (s *Store) StartDraft(ctx context.Context, p repository.StartDraftParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pick := range p.Picks {
		if _, exists := s.picks[pick.ID]; exists {
			return repository.ErrConflict
		}
	}
	for _, pick := range p.Picks {
		s.picks[pick.ID] = *clonePick(&pick)
	}
	s.states[p.State.LeagueID] = *cloneState(p.State)
	s.activity = append(s.activity, p.Activity)
	s.outbox = append(s.outbox, p.Outbox...)
	return nil
}

func (s *Store) CompletePick(ctx context.Context, p repository.CompletePickParams) (*models.DraftPick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pick, ok := s.picks[p.PickID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if pick.IsComplete {
		return nil, repository.ErrPickCompleted
	}
	for _, e := range s.rosters {
		if e.LeagueID == pick.LeagueID && e.PlayerID == p.PlayerID {
			return nil, repository.ErrPlayerTaken
		}
	}
	for _, other := range s.picks {
		if other.LeagueID == pick.LeagueID && other.SelectedPlayerID != nil && *other.SelectedPlayerID == p.PlayerID {
			return nil, repository.ErrPlayerTaken
		}
	}

	playerID := p.PlayerID
	selectedAt := p.SelectedAt
	pick.SelectedPlayerID = &playerID
	pick.SelectedAt = &selectedAt
	pick.IsComplete = true
	s.picks[pick.ID] = pick

	s.rosters[p.RosterEntry.ID] = p.RosterEntry
	s.states[p.State.LeagueID] = *cloneState(p.State)
	s.activity = append(s.activity, p.Activity)
	s.outbox = append(s.outbox, p.Outbox...)
	return clonePick(&pick), nil
}

func (s *Store) UndoPick(ctx context.Context, p repository.UndoPickParams) (*models.DraftPick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pick, ok := s.picks[p.PickID]
	if !ok || !pick.IsComplete {
		return nil, repository.ErrNotFound
	}
	pick.SelectedPlayerID = nil
	pick.SelectedAt = nil
	pick.IsComplete = false
	s.picks[pick.ID] = pick

	for id, e := range s.rosters {
		if e.LeagueID == p.LeagueID && e.PlayerID == p.PlayerID {
			delete(s.rosters, id)
		}
	}
	s.states[p.State.LeagueID] = *cloneState(p.State)
	s.activity = append(s.activity, p.Activity)
	s.outbox = append(s.outbox, p.Outbox...)
	return clonePick(&pick), nil
}

func (s *Store) ResetDraft(ctx context.Context, p repository.ResetDraftParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.trades {
		if t.LeagueID == p.LeagueID && t.Status == models.TradeStatusPending {
			at := p.At
			t.Status = models.TradeStatusCancelled
			t.RespondedAt = &at
			s.trades[id] = t
		}
	}
	for id, pick := range s.picks {
		if pick.LeagueID != p.LeagueID {
			continue
		}
		if pick.Season > p.Season {
			delete(s.picks, id)
			continue
		}
		if pick.Season == p.Season {
			pick.CurrentOwnerTeamID = pick.OriginalOwnerTeamID
			pick.SelectedPlayerID = nil
			pick.SelectedAt = nil
			pick.IsComplete = false
			s.picks[id] = pick
		}
	}
	for id, e := range s.rosters {
		if e.LeagueID == p.LeagueID && !e.IsKeeper {
			delete(s.rosters, id)
		}
	}
	s.states[p.State.LeagueID] = *cloneState(p.State)
	s.activity = append(s.activity, p.Activity)
	s.outbox = append(s.outbox, p.Outbox...)
	return nil
}

func (s *Store) ApplyDraftOrder(ctx context.Context, p repository.ApplyDraftOrderParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, teamID := range p.OrderedTeamIDs {
		team, ok := s.teams[teamID]
		if !ok || team.LeagueID != p.LeagueID {
			return fmt.Errorf("team %s: %w", teamID, repository.ErrNotFound)
		}
		team.DraftPosition = i + 1
		s.teams[teamID] = team
	}
	if len(p.Picks) > 0 {
		for id, pick := range s.picks {
			if pick.LeagueID == p.LeagueID && pick.Season == p.Season {
				delete(s.picks, id)
			}
		}
		for _, pick := range p.Picks {
			s.picks[pick.ID] = *clonePick(&pick)
		}
	}
	if p.State != nil {
		s.states[p.State.LeagueID] = *cloneState(p.State)
	}
	s.activity = append(s.activity, p.Activity)
	s.outbox = append(s.outbox, p.Outbox...)
	return nil
}

// Trades.

func (s *Store) CreateTrade(ctx context.Context, trade *models.Trade, activity models.ActivityEntry, outbox []models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *trade
	stored.Assets = append([]models.TradeAsset(nil), trade.Assets...)
	s.trades[trade.ID] = stored
	s.activity = append(s.activity, activity)
	s.outbox = append(s.outbox, outbox...)
	return nil
}

func (s *Store) GetTrade(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := t
	out.Assets = append([]models.TradeAsset(nil), t.Assets...)
	return &out, nil
}

func (s *Store) ListPendingTrades(ctx context.Context, leagueID uuid.UUID, now time.Time) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPendingLocked(leagueID, now), nil
}

func (s *Store) listPendingLocked(leagueID uuid.UUID, now time.Time) []models.Trade {
	var trades []models.Trade
	for _, t := range s.trades {
		if t.LeagueID == leagueID && t.Status == models.TradeStatusPending && now.Before(t.ExpiresAt) {
			out := t
			out.Assets = append([]models.TradeAsset(nil), t.Assets...)
			trades = append(trades, out)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].ProposedAt.Equal(trades[j].ProposedAt) {
			return trades[i].ProposedAt.Before(trades[j].ProposedAt)
		}
		return trades[i].ID.String() < trades[j].ID.String()
	})
	return trades
}

func (s *Store) ResolveTrade(ctx context.Context, p repository.ResolveTradeParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trade, ok := s.trades[p.TradeID]
	if !ok || trade.Status != models.TradeStatusPending {
		return repository.ErrTradeNotPending
	}
	trade.Status = p.Status
	respondedAt := p.RespondedAt
	trade.RespondedAt = &respondedAt
	if p.Notes != nil {
		trade.CommissionerNotes = p.Notes
	}
	s.trades[p.TradeID] = trade
	s.activity = append(s.activity, p.Activity)
	s.outbox = append(s.outbox, p.Outbox...)
	return nil
}

func (s *Store) ExecuteTradeSwap(ctx context.Context, p repository.ExecuteTradeSwapParams) (*repository.TradeSwapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[p.TradeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if trade.Status != models.TradeStatusPending {
		return nil, repository.ErrTradeNotPending
	}
	if trade.Expired(p.Now) {
		return nil, repository.ErrTradeExpired
	}

	// Stage every change, then apply. A failed validation must leave the
	// store untouched, like a rolled-back transaction.
	type pickChange struct {
		id    uuid.UUID
		pick  models.DraftPick
		fresh bool
	}
	type rosterChange struct {
		id    uuid.UUID
		entry models.RosterEntry
	}
	var (
		pickChanges   []pickChange
		rosterChanges []rosterChange
		result        = &repository.TradeSwapResult{}
	)

	for _, asset := range trade.Assets {
		toTeam := trade.ReceiverTeamID
		if asset.FromTeamID == trade.ReceiverTeamID {
			toTeam = trade.InitiatorTeamID
		}
		switch asset.Kind {
		case models.AssetKindDraftPick:
			pick, ok := s.picks[*asset.DraftPickID]
			if !ok {
				return nil, repository.ErrNotFound
			}
			if pick.LeagueID != trade.LeagueID || pick.CurrentOwnerTeamID != asset.FromTeamID || pick.IsComplete {
				return nil, repository.ErrAssetUnavailable
			}
			pick.CurrentOwnerTeamID = toTeam
			pickChanges = append(pickChanges, pickChange{id: pick.ID, pick: pick})
		case models.AssetKindPlayer:
			var found *models.RosterEntry
			for _, e := range s.rosters {
				if e.LeagueID == trade.LeagueID && e.PlayerID == *asset.PlayerID {
					e := e
					found = &e
					break
				}
			}
			if found == nil || found.TeamID != asset.FromTeamID {
				return nil, repository.ErrAssetUnavailable
			}
			found.TeamID = toTeam
			found.AcquiredVia = models.AcquiredViaTraded
			found.AcquiredAt = p.Now
			rosterChanges = append(rosterChanges, rosterChange{id: found.ID, entry: *found})
		case models.AssetKindFuturePick:
			var existing *models.DraftPick
			for _, pick := range s.picks {
				if pick.LeagueID == trade.LeagueID && pick.Season == *asset.FuturePickSeason &&
					pick.Round == *asset.FuturePickRound && pick.OriginalOwnerTeamID == asset.FromTeamID {
					pick := pick
					existing = &pick
					break
				}
			}
			if existing != nil {
				if existing.CurrentOwnerTeamID != asset.FromTeamID || existing.IsComplete {
					return nil, repository.ErrAssetUnavailable
				}
				existing.CurrentOwnerTeamID = toTeam
				pickChanges = append(pickChanges, pickChange{id: existing.ID, pick: *existing})
			} else {
				fresh := models.DraftPick{
					ID:                  uuid.New(),
					LeagueID:            trade.LeagueID,
					Season:              *asset.FuturePickSeason,
					Round:               *asset.FuturePickRound,
					OriginalOwnerTeamID: asset.FromTeamID,
					CurrentOwnerTeamID:  toTeam,
				}
				pickChanges = append(pickChanges, pickChange{id: fresh.ID, pick: fresh, fresh: true})
			}
		default:
			return nil, fmt.Errorf("trade %s: unknown asset kind %q", trade.ID, asset.Kind)
		}
	}

	for _, c := range pickChanges {
		s.picks[c.id] = c.pick
		result.UpdatedPicks = append(result.UpdatedPicks, *clonePick(&c.pick))
	}
	for _, c := range rosterChanges {
		s.rosters[c.id] = c.entry
		result.MovedEntries = append(result.MovedEntries, c.entry)
	}

	now := p.Now
	trade.Status = models.TradeStatusCompleted
	trade.RespondedAt = &now
	trade.ProcessedAt = &now
	trade.ForcedByCommissioner = p.Forced
	if p.Notes != nil {
		trade.CommissionerNotes = p.Notes
	}
	s.trades[trade.ID] = trade
	result.Trade = trade
	result.Trade.Assets = append([]models.TradeAsset(nil), trade.Assets...)

	if p.State != nil {
		if st := p.State(result); st != nil {
			s.states[st.LeagueID] = *cloneState(st)
		}
	}
	if p.Events != nil {
		activity, outbox := p.Events(result)
		s.activity = append(s.activity, activity)
		s.outbox = append(s.outbox, outbox...)
	}
	return result, nil
}

// SaveStateTransition mirrors the SQL composite for pause/resume writes.
func (s *Store) SaveStateTransition(ctx context.Context, p repository.StateTransitionParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[p.State.LeagueID] = *cloneState(p.State)
	s.activity = append(s.activity, p.Activity)
	s.outbox = append(s.outbox, p.Outbox...)
	return nil
}

// Snapshot.

func (s *Store) ReadSnapshot(ctx context.Context, leagueID uuid.UUID, availableLimit int, now time.Time) (*repository.SnapshotData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	league, err := s.getLeagueLocked(leagueID)
	if err != nil {
		return nil, err
	}
	state := models.NewDraftState(leagueID, now)
	if st, ok := s.states[leagueID]; ok {
		state = cloneState(&st)
	}
	return &repository.SnapshotData{
		League:    league,
		State:     state,
		Teams:     s.listTeamsLocked(leagueID),
		Picks:     s.listPicksLocked(leagueID, league.CurrentSeason),
		Available: s.listAvailableLocked(leagueID, availableLimit),
		Rosters:   s.listRostersLocked(leagueID, uuid.Nil),
		Pending:   s.listPendingLocked(leagueID, now),
		Queues:    s.listQueuesLocked(leagueID),
	}, nil
}
