package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/draft/trade"
)

// sweepTimeout bounds the idle round-trip during eviction checks.
const sweepTimeout = 5 * time.Second

// RegistryConfig carries the shared collaborators every coordinator gets.
type RegistryConfig struct {
	Store     Store
	Trades    *trade.Engine
	Snapshots Snapshots
	Bus       Broadcaster
	Clock     clockwork.Clock
	AutoPick  AutoPickStrategy
	Logger    zerolog.Logger
}

// Registry hands out one live coordinator per league and reclaims it when
// the last subscriber leaves and no pick clock is running. A league with a
// live clock survives with zero subscribers so auto-picks keep firing.
type Registry struct {
	cfg RegistryConfig

	mu      sync.Mutex
	leagues map[uuid.UUID]*managed
	closed  bool
}

type managed struct {
	c    *Coordinator
	refs int
}

func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		cfg:     cfg,
		leagues: make(map[uuid.UUID]*managed),
	}
}

// Acquire returns the league's coordinator, creating and hydrating one on
// first use, and takes a reference. Every Acquire is paired with a Release.
func (r *Registry) Acquire(leagueID uuid.UUID) (*Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrStopped
	}
	m, ok := r.leagues[leagueID]
	if !ok {
		c := New(Config{
			LeagueID:  leagueID,
			Store:     r.cfg.Store,
			Trades:    r.cfg.Trades,
			Snapshots: r.cfg.Snapshots,
			Bus:       r.cfg.Bus,
			Clock:     r.cfg.Clock,
			AutoPick:  r.cfg.AutoPick,
			Logger:    r.cfg.Logger.With().Str("league_id", leagueID.String()).Logger(),
			OnIdle:    r.sweep,
		})
		m = &managed{c: c}
		r.leagues[leagueID] = m
		// Hydrate ahead of the first intent so a persisted running clock
		// resumes immediately. Queued before anything else can reach the
		// loop, so an eviction check can't observe the pre-hydration state.
		c.poke()
		r.cfg.Logger.Debug().Str("league_id", leagueID.String()).Msg("coordinator created")
	}
	m.refs++
	return m.c, nil
}

// Release drops one reference and evicts the coordinator if it was the last
// one and the league's clock is stopped.
func (r *Registry) Release(leagueID uuid.UUID) {
	r.mu.Lock()
	m, ok := r.leagues[leagueID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if m.refs > 0 {
		m.refs--
	}
	last := m.refs == 0
	r.mu.Unlock()
	if last {
		r.sweep(leagueID)
	}
}

// sweep evicts a league's coordinator when nobody holds a reference and the
// clock is idle. The idle check round-trips through the serial loop, so the
// lock is never held across it; the re-check afterwards handles an Acquire
// that raced the check.
func (r *Registry) sweep(leagueID uuid.UUID) {
	r.mu.Lock()
	m, ok := r.leagues[leagueID]
	if !ok || m.refs > 0 {
		r.mu.Unlock()
		return
	}
	c := m.c
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	idle, err := c.Idle(ctx)
	if err != nil || !idle {
		return
	}

	r.mu.Lock()
	current, ok := r.leagues[leagueID]
	evict := ok && current == m && current.refs == 0
	if evict {
		delete(r.leagues, leagueID)
	}
	r.mu.Unlock()

	if evict {
		c.Stop()
		r.cfg.Logger.Debug().Str("league_id", leagueID.String()).Msg("coordinator evicted")
	}
}

// Size reports how many coordinators are live.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leagues)
}

// Close stops every coordinator. Later Acquires fail with ErrStopped.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	cs := make([]*Coordinator, 0, len(r.leagues))
	for id, m := range r.leagues {
		cs = append(cs, m.c)
		delete(r.leagues, id)
	}
	r.mu.Unlock()
	for _, c := range cs {
		c.Stop()
	}
}
