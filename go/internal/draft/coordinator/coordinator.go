package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/draft/trade"
	"github.com/mcdev12/keeper/go/internal/models"
)

// Store is the slice of the persistence gateway the coordinator drives. The
// composite operations commit state, journal and outbox rows in one
// transaction; everything else is a plain read.
type Store interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	GetDraftState(ctx context.Context, leagueID uuid.UUID) (*models.DraftState, error)
	SaveStateTransition(ctx context.Context, p repository.StateTransitionParams) error
	UpdateTimerRemaining(ctx context.Context, leagueID uuid.UUID, seconds int) error
	AppendActivity(ctx context.Context, entry models.ActivityEntry) error

	ListTeams(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)

	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.Player, error)
	PlayerAvailable(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error)

	GetPick(ctx context.Context, id uuid.UUID) (*models.DraftPick, error)
	ListPicks(ctx context.Context, leagueID uuid.UUID, season int) ([]models.DraftPick, error)
	ListTeamRoster(ctx context.Context, leagueID, teamID uuid.UUID) ([]models.RosterEntry, error)

	StartDraft(ctx context.Context, p repository.StartDraftParams) error
	CompletePick(ctx context.Context, p repository.CompletePickParams) (*models.DraftPick, error)
	UndoPick(ctx context.Context, p repository.UndoPickParams) (*models.DraftPick, error)
	ResetDraft(ctx context.Context, p repository.ResetDraftParams) error
	ApplyDraftOrder(ctx context.Context, p repository.ApplyDraftOrderParams) error

	UpsertTeamQueue(ctx context.Context, queue *models.TeamQueue) error

	GetTrade(ctx context.Context, id uuid.UUID) (*models.Trade, error)
	CreateTrade(ctx context.Context, trade *models.Trade, activity models.ActivityEntry, outbox []models.OutboxEvent) error
	ResolveTrade(ctx context.Context, p repository.ResolveTradeParams) error
	ExecuteTradeSwap(ctx context.Context, p repository.ExecuteTradeSwapParams) (*repository.TradeSwapResult, error)
}

// Broadcaster fans an envelope out to every session subscribed to a league.
type Broadcaster interface {
	Broadcast(leagueID uuid.UUID, env events.Envelope)
}

// Snapshots builds full-resync payloads. The coordinator only needs it after
// a reset, where clients cannot patch their way back to a consistent view.
type Snapshots interface {
	StateSync(ctx context.Context, leagueID uuid.UUID) (*events.StateSyncPayload, error)
}

// Actor identifies the session behind an intent after the gateway has
// authenticated it.
type Actor struct {
	UserID         uuid.UUID
	TeamID         *uuid.UUID
	IsCommissioner bool
}

// ErrStopped is returned for intents arriving after the coordinator was
// evicted from the registry.
var ErrStopped = errors.New("draft coordinator stopped")

const (
	// autoPickCandidates bounds the pool read on timer expiry.
	autoPickCandidates = 50
	// tickPersistEvery is how many ticks pass between residual writes. The
	// persisted countdown may lag the broadcast one by up to this many
	// seconds, which rehydration absorbs by clamping.
	tickPersistEvery = 10
)

type command struct {
	fn    func(ctx context.Context) error
	reply chan error
}

// Config wires one coordinator. LeagueID, Store, Trades, Snapshots, Bus and
// Logger are required; Clock and AutoPick default to the real clock and
// best-available.
type Config struct {
	LeagueID  uuid.UUID
	Store     Store
	Trades    *trade.Engine
	Snapshots Snapshots
	Bus       Broadcaster
	Clock     clockwork.Clock
	AutoPick  AutoPickStrategy
	Logger    zerolog.Logger
	// OnIdle fires (on its own goroutine) whenever the pick clock stops,
	// letting the registry re-run its eviction check.
	OnIdle func(leagueID uuid.UUID)
}

// Coordinator serializes every mutation of one league's draft through a
// single goroutine. Handlers run one at a time, so reads of the cached state
// and the read-validate-commit sequence inside a handler never interleave
// with another intent or a timer tick.
type Coordinator struct {
	leagueID  uuid.UUID
	store     Store
	trades    *trade.Engine
	snapshots Snapshots
	bus       Broadcaster
	clock     clockwork.Clock
	autopick  AutoPickStrategy
	logger    zerolog.Logger
	onIdle    func(uuid.UUID)

	cmds chan command
	quit chan struct{}
	once sync.Once

	// Loop-owned fields. Touched only from run().
	state  *models.DraftState
	timer  *pickTimer
	loaded bool
}

// New builds a coordinator and starts its serial loop.
func New(cfg Config) *Coordinator {
	c := &Coordinator{
		leagueID:  cfg.LeagueID,
		store:     cfg.Store,
		trades:    cfg.Trades,
		snapshots: cfg.Snapshots,
		bus:       cfg.Bus,
		clock:     cfg.Clock,
		autopick:  cfg.AutoPick,
		logger:    cfg.Logger,
		onIdle:    cfg.OnIdle,
		cmds:      make(chan command, 32),
		quit:      make(chan struct{}),
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.autopick == nil {
		c.autopick = BestAvailableStrategy{}
	}
	go c.run()
	return c
}

// LeagueID returns the league this coordinator owns.
func (c *Coordinator) LeagueID() uuid.UUID {
	return c.leagueID
}

// Stop terminates the serial loop and releases the ticker. Intents after
// Stop fail with ErrStopped.
func (c *Coordinator) Stop() {
	c.once.Do(func() { close(c.quit) })
}

// Idle reports whether the coordinator may be evicted: no live pick clock.
func (c *Coordinator) Idle(ctx context.Context) (bool, error) {
	idle := false
	err := c.do(ctx, func(context.Context) error {
		idle = c.timer == nil
		return nil
	})
	return idle, err
}

func (c *Coordinator) run() {
	ctx := context.Background()
	for {
		var tick <-chan time.Time
		if c.timer != nil {
			tick = c.timer.ticker.Chan()
		}
		select {
		case <-c.quit:
			c.stopTimer()
			return
		case cmd := <-c.cmds:
			cmd.reply <- cmd.fn(ctx)
		case <-tick:
			c.onTick(ctx)
		}
	}
}

// do runs fn on the serial loop and waits for the result. The caller's
// context bounds only the wait: once accepted, fn runs to completion with
// the loop's own context, so an intent survives its requester's disconnect.
func (c *Coordinator) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return ErrStopped
		}
	}
}

// poke schedules a state load so a rehydrated league resumes its clock
// without waiting for the first intent. Best effort: a full queue means the
// loop is already busy with real work.
func (c *Coordinator) poke() {
	cmd := command{fn: c.ensureLoaded, reply: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.quit:
	default:
	}
}

// ensureLoaded lazily hydrates draft state on the first operation and
// resumes a persisted running clock after a restart or eviction.
func (c *Coordinator) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	state, err := c.store.GetDraftState(ctx, c.leagueID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		state = models.NewDraftState(c.leagueID, c.clock.Now())
	case err != nil:
		return fmt.Errorf("load draft state: %w", err)
	}
	c.state = state
	c.loaded = true

	if state.TimerRunning() {
		residual := 0
		if state.TimerSecondsRemaining != nil {
			elapsed := int(c.clock.Now().Sub(*state.TimerStartedAt).Seconds())
			residual = *state.TimerSecondsRemaining - elapsed
		}
		if residual <= 0 {
			c.logger.Info().Str("league_id", c.leagueID.String()).Msg("rehydrated an overdue clock, expiring now")
			c.expire(ctx)
			return nil
		}
		c.startTimer(residual)
		c.logger.Info().Str("league_id", c.leagueID.String()).Int("residual", residual).Msg("rehydrated running clock")
	}
	return nil
}

// invalidate forces a state refetch on the next operation. Called after
// storage failures where the in-memory copy may have diverged from what
// actually committed.
func (c *Coordinator) invalidate() {
	c.loaded = false
	c.stopTimer()
}

// faultFor maps store sentinels onto wire faults. Faults pass through
// untouched; anything unmapped is logged and surfaces as a storage error.
func (c *Coordinator) faultFor(op string, err error) error {
	var fault *events.Fault
	if errors.As(err, &fault) {
		return fault
	}
	switch {
	case errors.Is(err, repository.ErrPlayerTaken):
		return events.Faultf(events.CodePlayerUnavailable, "player was just drafted")
	case errors.Is(err, repository.ErrPickCompleted):
		return events.Faultf(events.CodeValidationFailed, "pick is already complete")
	case errors.Is(err, repository.ErrTradeNotPending):
		return events.Faultf(events.CodeValidationFailed, "trade is no longer pending")
	case errors.Is(err, repository.ErrTradeExpired):
		return events.Faultf(events.CodeTradeExpired, "trade offer has expired")
	case errors.Is(err, repository.ErrAssetUnavailable):
		return events.Faultf(events.CodeValidationFailed, "a traded asset is no longer available")
	case errors.Is(err, repository.ErrNotFound):
		return events.Faultf(events.CodeValidationFailed, "%s: record not found", op)
	}
	c.invalidate()
	c.logger.Error().Err(err).Str("league_id", c.leagueID.String()).Str("op", op).Msg("storage failure")
	return events.Faultf(events.CodeStorageError, "%s failed, try again", op)
}

func (c *Coordinator) broadcast(event events.EventType, payload any) {
	env, err := events.NewEnvelope(event, c.leagueID, c.clock.Now(), payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(event)).Msg("broadcast payload marshal failed")
		return
	}
	c.bus.Broadcast(c.leagueID, env)
}

// outboxRow builds the relay copy of a broadcast. Marshal failures are
// logged and degrade to an empty payload rather than aborting the
// transaction the row rides on.
func (c *Coordinator) outboxRow(event events.EventType, payload any, at time.Time) models.OutboxEvent {
	row, err := events.NewOutboxEvent(c.leagueID, event, payload, at)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(event)).Msg("outbox payload marshal failed")
		return models.OutboxEvent{ID: uuid.New(), LeagueID: c.leagueID, EventType: string(event), CreatedAt: at}
	}
	return row
}

func (c *Coordinator) activity(typ models.ActivityType, actor *uuid.UUID, detail any, at time.Time) models.ActivityEntry {
	return models.ActivityEntry{
		ID:          uuid.New(),
		LeagueID:    c.leagueID,
		Type:        typ,
		ActorUserID: actor,
		Detail:      marshalDetail(detail),
		CreatedAt:   at,
	}
}

func marshalDetail(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// notifyIdle lets the registry re-run its eviction check when the clock
// stops while nobody is subscribed.
func (c *Coordinator) notifyIdle() {
	if c.onIdle != nil {
		go c.onIdle(c.leagueID)
	}
}

// liveRemaining is the authoritative countdown value right now: the live
// clock when one is running, the frozen residual otherwise.
func (c *Coordinator) liveRemaining() int {
	if c.timer != nil {
		return c.timer.remaining(c.clock.Now())
	}
	if c.state != nil && c.state.TimerSecondsRemaining != nil {
		return *c.state.TimerSecondsRemaining
	}
	return 0
}

func pickByOverall(picks []models.DraftPick, overall int) *models.DraftPick {
	for i := range picks {
		if picks[i].OverallPickNumber != nil && *picks[i].OverallPickNumber == overall {
			return &picks[i]
		}
	}
	return nil
}

// nextIncomplete returns the lowest-numbered open pick after the given
// overall, or nil when the board is spent.
func nextIncomplete(picks []models.DraftPick, after int) *models.DraftPick {
	var next *models.DraftPick
	for i := range picks {
		p := &picks[i]
		if p.IsComplete || p.OverallPickNumber == nil || *p.OverallPickNumber <= after {
			continue
		}
		if next == nil || *p.OverallPickNumber < *next.OverallPickNumber {
			next = p
		}
	}
	return next
}

func (c *Coordinator) onTheClockPayload(ctx context.Context, pick models.DraftPick, duration int, startedAt time.Time) (events.OnTheClockPayload, error) {
	team, err := c.store.GetTeam(ctx, pick.CurrentOwnerTeamID)
	if err != nil {
		return events.OnTheClockPayload{}, err
	}
	return events.OnTheClockPayload{
		LeagueID:       c.leagueID,
		TeamID:         team.ID,
		Team:           events.NewTeamView(*team),
		PickNumber:     pick.Overall(),
		Round:          pick.Round,
		TimerDuration:  duration,
		TimerStartedAt: startedAt,
	}, nil
}

func rosterViews(entries []models.RosterEntry) []events.RosterEntryView {
	out := make([]events.RosterEntryView, len(entries))
	for i, e := range entries {
		out[i] = events.NewRosterEntryView(e)
	}
	return out
}
