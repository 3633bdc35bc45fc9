// Package memory provides an in-memory implementation of the draft store
// contract for tests. It enforces the same uniqueness guards as the SQL
// schema and returns the repository package's sentinel errors so callers
// exercise identical branches against either backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/models"
)

type Store struct {
	mu sync.RWMutex

	users    map[uuid.UUID]models.User
	tokens   map[string]uuid.UUID
	leagues  map[uuid.UUID]models.League
	teams    map[uuid.UUID]models.Team
	players  map[uuid.UUID]models.Player
	picks    map[uuid.UUID]models.DraftPick
	rosters  map[uuid.UUID]models.RosterEntry
	states   map[uuid.UUID]models.DraftState
	trades   map[uuid.UUID]models.Trade
	queues   map[string]models.TeamQueue
	activity []models.ActivityEntry
	outbox   []models.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		users:   make(map[uuid.UUID]models.User),
		tokens:  make(map[string]uuid.UUID),
		leagues: make(map[uuid.UUID]models.League),
		teams:   make(map[uuid.UUID]models.Team),
		players: make(map[uuid.UUID]models.Player),
		picks:   make(map[uuid.UUID]models.DraftPick),
		rosters: make(map[uuid.UUID]models.RosterEntry),
		states:  make(map[uuid.UUID]models.DraftState),
		trades:  make(map[uuid.UUID]models.Trade),
		queues:  make(map[string]models.TeamQueue),
	}
}

func queueKey(leagueID, teamID uuid.UUID) string {
	return leagueID.String() + "/" + teamID.String()
}

// Seed helpers for tests.

func (s *Store) SeedUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) SeedToken(token string, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
}

func (s *Store) SeedLeague(l models.League) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leagues[l.ID] = l
}

func (s *Store) SeedTeam(t models.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID] = t
}

func (s *Store) SeedPlayer(p models.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
}

func (s *Store) SeedRosterEntry(e models.RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosters[e.ID] = e
}

func (s *Store) SeedPick(p models.DraftPick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picks[p.ID] = p
}

func (s *Store) SeedDraftState(st models.DraftState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.LeagueID] = st
}

// Users and auth.

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.tokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) IsLeagueMember(ctx context.Context, leagueID, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.leagues[leagueID]; ok && l.CommissionerUserID == userID {
		return true, nil
	}
	for _, t := range s.teams {
		if t.LeagueID == leagueID && t.OwnerUserID != nil && *t.OwnerUserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetTeamByOwner(ctx context.Context, leagueID, userID uuid.UUID) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.LeagueID == leagueID && t.OwnerUserID != nil && *t.OwnerUserID == userID {
			team := t
			return &team, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Leagues and teams.

func (s *Store) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLeagueLocked(id)
}

func (s *Store) getLeagueLocked(id uuid.UUID) (*models.League, error) {
	l, ok := s.leagues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (s *Store) CreateLeague(ctx context.Context, league *models.League) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leagues[league.ID] = *league
	return nil
}

func (s *Store) UpdateLeagueSettings(ctx context.Context, league *models.League) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leagues[league.ID]; !ok {
		return repository.ErrNotFound
	}
	s.leagues[league.ID] = *league
	return nil
}

func (s *Store) CreateTeam(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.LeagueID == team.LeagueID && (t.Name == team.Name || t.DraftPosition == team.DraftPosition) {
			return repository.ErrConflict
		}
	}
	s.teams[team.ID] = *team
	return nil
}

func (s *Store) ListTeams(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTeamsLocked(leagueID), nil
}

func (s *Store) listTeamsLocked(leagueID uuid.UUID) []models.Team {
	var teams []models.Team
	for _, t := range s.teams {
		if t.LeagueID == leagueID {
			teams = append(teams, t)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		return teams[i].DraftPosition < teams[j].DraftPosition
	})
	return teams
}

func (s *Store) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

// Players.

func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAvailableLocked(leagueID, limit), nil
}

func (s *Store) listAvailableLocked(leagueID uuid.UUID, limit int) []models.Player {
	rostered := make(map[uuid.UUID]bool)
	for _, e := range s.rosters {
		if e.LeagueID == leagueID {
			rostered[e.PlayerID] = true
		}
	}
	var pool []models.Player
	for _, p := range s.players {
		if p.Active && !rostered[p.ID] {
			pool = append(pool, p)
		}
	}
	SortByRank(pool)
	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}
	return pool
}

// SortByRank orders players rank ascending with unranked last, ties broken
// by player id. Exported so tests can assert the exact auto-pick order.
func SortByRank(players []models.Player) {
	sort.Slice(players, func(i, j int) bool {
		ri, rj := players[i].Rank, players[j].Rank
		switch {
		case ri != nil && rj != nil && *ri != *rj:
			return *ri < *rj
		case ri == nil && rj != nil:
			return false
		case ri != nil && rj == nil:
			return true
		}
		return players[i].ID.String() < players[j].ID.String()
	})
}

func (s *Store) PlayerAvailable(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[playerID]
	if !ok || !p.Active {
		return false, nil
	}
	for _, e := range s.rosters {
		if e.LeagueID == leagueID && e.PlayerID == playerID {
			return false, nil
		}
	}
	return true, nil
}

// Rosters.

func (s *Store) ListRosterEntries(ctx context.Context, leagueID uuid.UUID) ([]models.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRostersLocked(leagueID, uuid.Nil), nil
}

func (s *Store) ListTeamRoster(ctx context.Context, leagueID, teamID uuid.UUID) ([]models.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRostersLocked(leagueID, teamID), nil
}

func (s *Store) listRostersLocked(leagueID, teamID uuid.UUID) []models.RosterEntry {
	var entries []models.RosterEntry
	for _, e := range s.rosters {
		if e.LeagueID != leagueID {
			continue
		}
		if teamID != uuid.Nil && e.TeamID != teamID {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AcquiredAt.Equal(entries[j].AcquiredAt) {
			return entries[i].AcquiredAt.Before(entries[j].AcquiredAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
	return entries
}

// Draft state.

func (s *Store) GetDraftState(ctx context.Context, leagueID uuid.UUID) (*models.DraftState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[leagueID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneState(&st), nil
}

func (s *Store) UpsertDraftState(ctx context.Context, state *models.DraftState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.LeagueID] = *cloneState(state)
	return nil
}

func (s *Store) UpdateTimerRemaining(ctx context.Context, leagueID uuid.UUID, seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[leagueID]
	if !ok {
		return repository.ErrNotFound
	}
	remaining := seconds
	st.TimerSecondsRemaining = &remaining
	s.states[leagueID] = st
	return nil
}

// cloneState deep-copies pointer fields so callers never alias stored state.
func cloneState(st *models.DraftState) *models.DraftState {
	out := *st
	if st.CurrentTeamID != nil {
		v := *st.CurrentTeamID
		out.CurrentTeamID = &v
	}
	if st.PauseReason != nil {
		v := *st.PauseReason
		out.PauseReason = &v
	}
	if st.TimerSecondsRemaining != nil {
		v := *st.TimerSecondsRemaining
		out.TimerSecondsRemaining = &v
	}
	if st.TimerStartedAt != nil {
		v := *st.TimerStartedAt
		out.TimerStartedAt = &v
	}
	if st.LastPickID != nil {
		v := *st.LastPickID
		out.LastPickID = &v
	}
	if st.StartedAt != nil {
		v := *st.StartedAt
		out.StartedAt = &v
	}
	if st.CompletedAt != nil {
		v := *st.CompletedAt
		out.CompletedAt = &v
	}
	return &out
}

// Queues.

func (s *Store) GetTeamQueue(ctx context.Context, leagueID, teamID uuid.UUID) (*models.TeamQueue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[queueKey(leagueID, teamID)]
	if !ok {
		return &models.TeamQueue{LeagueID: leagueID, TeamID: teamID}, nil
	}
	out := q
	out.PlayerIDs = append([]uuid.UUID(nil), q.PlayerIDs...)
	return &out, nil
}

func (s *Store) ListTeamQueues(ctx context.Context, leagueID uuid.UUID) ([]models.TeamQueue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listQueuesLocked(leagueID), nil
}

func (s *Store) listQueuesLocked(leagueID uuid.UUID) []models.TeamQueue {
	var queues []models.TeamQueue
	for _, q := range s.queues {
		if q.LeagueID == leagueID {
			out := q
			out.PlayerIDs = append([]uuid.UUID(nil), q.PlayerIDs...)
			queues = append(queues, out)
		}
	}
	sort.Slice(queues, func(i, j int) bool {
		return queues[i].TeamID.String() < queues[j].TeamID.String()
	})
	return queues
}

func (s *Store) UpsertTeamQueue(ctx context.Context, queue *models.TeamQueue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *queue
	stored.PlayerIDs = append([]uuid.UUID(nil), queue.PlayerIDs...)
	s.queues[queueKey(queue.LeagueID, queue.TeamID)] = stored
	return nil
}

// Activity.

func (s *Store) AppendActivity(ctx context.Context, entry models.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, entry)
	return nil
}

func (s *Store) ListActivity(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []models.ActivityEntry
	for i := len(s.activity) - 1; i >= 0 && (limit <= 0 || len(entries) < limit); i-- {
		if s.activity[i].LeagueID == leagueID {
			entries = append(entries, s.activity[i])
		}
	}
	return entries, nil
}

// Outbox.

func (s *Store) GetOutboxEvent(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.outbox {
		if ev.ID == id {
			out := ev
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []models.OutboxEvent
	for _, ev := range s.outbox {
		if ev.PublishedAt == nil {
			events = append(events, ev)
			if limit > 0 && len(events) == limit {
				break
			}
		}
	}
	return events, nil
}

func (s *Store) CountUnpublished(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ev := range s.outbox {
		if ev.PublishedAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	marked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for i := range s.outbox {
		if marked[s.outbox[i].ID] && s.outbox[i].PublishedAt == nil {
			at := now
			s.outbox[i].PublishedAt = &at
		}
	}
	return nil
}

// OutboxEvents returns every journal row for assertions.
func (s *Store) OutboxEvents() []models.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.OutboxEvent(nil), s.outbox...)
}
