package events

import (
	"time"

	"github.com/google/uuid"
)

// Wire views. Payloads carry these instead of internal models so the wire
// contract stays stable when storage shapes move.

// TeamView is the wire shape of a league team.
type TeamView struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	OwnerUserID   *uuid.UUID `json:"ownerUserId,omitempty"`
	DraftPosition int        `json:"draftPosition"`
}

// PlayerView is the wire shape of a catalog player.
type PlayerView struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"fullName"`
	Position     string    `json:"position"`
	NFLTeam      string    `json:"nflTeam"`
	Rank         *int      `json:"rank,omitempty"`
	ADP          *float64  `json:"adp,omitempty"`
	ByeWeek      *int      `json:"byeWeek,omitempty"`
	InjuryStatus string    `json:"injuryStatus"`
}

// PickView is the wire shape of a draft pick.
type PickView struct {
	ID                  uuid.UUID  `json:"id"`
	Season              int        `json:"season"`
	Round               int        `json:"round"`
	PickInRound         *int       `json:"pickInRound,omitempty"`
	OverallPickNumber   *int       `json:"overallPickNumber,omitempty"`
	OriginalOwnerTeamID uuid.UUID  `json:"originalOwnerTeamId"`
	CurrentOwnerTeamID  uuid.UUID  `json:"currentOwnerTeamId"`
	SelectedPlayerID    *uuid.UUID `json:"selectedPlayerId,omitempty"`
	SelectedAt          *time.Time `json:"selectedAt,omitempty"`
	IsComplete          bool       `json:"isComplete"`
}

// RosterEntryView is the wire shape of a roster entry.
type RosterEntryView struct {
	PlayerID    uuid.UUID `json:"playerId"`
	TeamID      uuid.UUID `json:"teamId"`
	IsKeeper    bool      `json:"isKeeper"`
	KeeperRound *int      `json:"keeperRound,omitempty"`
	AcquiredVia string    `json:"acquiredVia"`
	AcquiredAt  time.Time `json:"acquiredAt"`
}

// AssetView is the wire shape of one trade asset.
type AssetView struct {
	FromTeamID       uuid.UUID  `json:"fromTeamId"`
	Kind             string     `json:"kind"`
	DraftPickID      *uuid.UUID `json:"draftPickId,omitempty"`
	PlayerID         *uuid.UUID `json:"playerId,omitempty"`
	FuturePickSeason *int       `json:"futurePickSeason,omitempty"`
	FuturePickRound  *int       `json:"futurePickRound,omitempty"`
}

// TradeView is the wire shape of a trade with full asset detail.
type TradeView struct {
	ID                   uuid.UUID   `json:"id"`
	InitiatorTeamID      uuid.UUID   `json:"initiatorTeamId"`
	ReceiverTeamID       uuid.UUID   `json:"receiverTeamId"`
	Status               string      `json:"status"`
	ProposedAt           time.Time   `json:"proposedAt"`
	ExpiresAt            time.Time   `json:"expiresAt"`
	ForcedByCommissioner bool        `json:"forcedByCommissioner"`
	CommissionerNotes    *string     `json:"commissionerNotes,omitempty"`
	Assets               []AssetView `json:"assets"`
}

// StateSyncPayload is the full resync snapshot sent to a joining session and
// after broad-impact events. AvailablePlayers is capped at 500 entries.
type StateSyncPayload struct {
	LeagueID              uuid.UUID                       `json:"leagueId"`
	Status                string                          `json:"status"`
	CurrentRound          int                             `json:"currentRound"`
	CurrentPick           int                             `json:"currentPick"`
	CurrentTeamID         *uuid.UUID                      `json:"currentTeamId,omitempty"`
	CurrentTeam           *TeamView                       `json:"currentTeam,omitempty"`
	IsPaused              bool                            `json:"isPaused"`
	PauseReason           *string                         `json:"pauseReason,omitempty"`
	TimerSecondsRemaining *int                            `json:"timerSecondsRemaining,omitempty"`
	DraftOrder            []TeamView                      `json:"draftOrder"`
	CompletedPicks        []PickView                      `json:"completedPicks"`
	AllPicks              []PickView                      `json:"allPicks"`
	AvailablePlayers      []PlayerView                    `json:"availablePlayers"`
	TeamRosters           map[uuid.UUID][]RosterEntryView `json:"teamRosters"`
	PendingTrades         []TradeView                     `json:"pendingTrades"`
	TeamQueues            map[uuid.UUID][]uuid.UUID       `json:"teamQueues"`
	TotalRounds           int                             `json:"totalRounds"`
	DraftType             string                          `json:"draftType"`
	RosterSettings        map[string]int                  `json:"rosterSettings"`
	Timestamp             time.Time                       `json:"timestamp"`
}

// DraftStartedPayload announces the transition out of NOT_STARTED.
type DraftStartedPayload struct {
	LeagueID    uuid.UUID `json:"leagueId"`
	DraftType   string    `json:"draftType"`
	TotalRounds int       `json:"totalRounds"`
	StartedAt   time.Time `json:"startedAt"`
	Timestamp   time.Time `json:"timestamp"`
}

// DraftPausedPayload carries the pause reason and the frozen residual clock.
type DraftPausedPayload struct {
	LeagueID              uuid.UUID  `json:"leagueId"`
	Reason                string     `json:"reason"`
	PausedByUserID        *uuid.UUID `json:"pausedByUserId,omitempty"`
	TimerSecondsRemaining int        `json:"timerSecondsRemaining"`
	Timestamp             time.Time  `json:"timestamp"`
}

// DraftResumedPayload restarts client countdowns from the residual.
type DraftResumedPayload struct {
	LeagueID              uuid.UUID `json:"leagueId"`
	TimerSecondsRemaining int       `json:"timerSecondsRemaining"`
	TimerStartedAt        time.Time `json:"timerStartedAt"`
	Timestamp             time.Time `json:"timestamp"`
}

// DraftResetPayload carries a fresh full snapshot on the broadcast path. The
// relayed copy omits the snapshot; downstream consumers resync on demand.
type DraftResetPayload struct {
	LeagueID  uuid.UUID         `json:"leagueId"`
	Snapshot  *StateSyncPayload `json:"snapshot,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// DraftCompletedPayload announces the final pick has been made.
type DraftCompletedPayload struct {
	LeagueID    uuid.UUID `json:"leagueId"`
	TotalPicks  int       `json:"totalPicks"`
	CompletedAt time.Time `json:"completedAt"`
	Timestamp   time.Time `json:"timestamp"`
}

// OnTheClockPayload announces whose turn it is and the fresh clock.
type OnTheClockPayload struct {
	LeagueID       uuid.UUID `json:"leagueId"`
	TeamID         uuid.UUID `json:"teamId"`
	Team           TeamView  `json:"team"`
	PickNumber     int       `json:"pickNumber"`
	Round          int       `json:"round"`
	TimerDuration  int       `json:"timerDuration"`
	TimerStartedAt time.Time `json:"timerStartedAt"`
}

// NextPickInfo is the delta clients use to advance without a resync.
type NextPickInfo struct {
	PickNumber int       `json:"pickNumber"`
	Round      int       `json:"round"`
	TeamID     uuid.UUID `json:"teamId"`
}

// PickMadePayload announces a completed selection. TeamRosterUpdates holds
// only the rosters the pick changed.
type PickMadePayload struct {
	LeagueID          uuid.UUID                       `json:"leagueId"`
	Pick              PickView                        `json:"pick"`
	Player            PlayerView                      `json:"player"`
	TeamID            uuid.UUID                       `json:"teamId"`
	TeamName          string                          `json:"teamName"`
	PickNumber        int                             `json:"pickNumber"`
	Round             int                             `json:"round"`
	AutoPick          bool                            `json:"autoPick,omitempty"`
	NextPick          *NextPickInfo                   `json:"nextPick,omitempty"`
	TeamRosterUpdates map[uuid.UUID][]RosterEntryView `json:"teamRosterUpdates"`
	Timestamp         time.Time                       `json:"timestamp"`
}

// PickUndonePayload reverses the last PickMade for client state.
type PickUndonePayload struct {
	LeagueID          uuid.UUID                       `json:"leagueId"`
	PickNumber        int                             `json:"pickNumber"`
	Round             int                             `json:"round"`
	TeamID            uuid.UUID                       `json:"teamId"`
	PlayerID          uuid.UUID                       `json:"playerId"`
	TeamRosterUpdates map[uuid.UUID][]RosterEntryView `json:"teamRosterUpdates"`
	Timestamp         time.Time                       `json:"timestamp"`
}

// TimerTickPayload is the once-per-second countdown broadcast.
type TimerTickPayload struct {
	LeagueID         uuid.UUID  `json:"leagueId"`
	SecondsRemaining int        `json:"secondsRemaining"`
	CurrentPick      int        `json:"currentPick"`
	CurrentTeamID    *uuid.UUID `json:"currentTeamId,omitempty"`
}

// TimerExpiredPayload precedes the auto-pick's PickMade.
type TimerExpiredPayload struct {
	LeagueID   uuid.UUID `json:"leagueId"`
	TeamID     uuid.UUID `json:"teamId"`
	PickNumber int       `json:"pickNumber"`
	Timestamp  time.Time `json:"timestamp"`
}

// StaleWarningPayload reports a timer expiry that found no draftable player.
type StaleWarningPayload struct {
	LeagueID  uuid.UUID `json:"leagueId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderUpdatedPayload announces a commissioner draft-order change.
type OrderUpdatedPayload struct {
	LeagueID         uuid.UUID  `json:"leagueId"`
	DraftOrder       []TeamView `json:"draftOrder"`
	PicksRegenerated bool       `json:"picksRegenerated"`
	UpdatedByUserID  uuid.UUID  `json:"updatedByUserId"`
	Timestamp        time.Time  `json:"timestamp"`
}

// QueueUpdatedPayload echoes a team's reordered wish-list.
type QueueUpdatedPayload struct {
	LeagueID  uuid.UUID   `json:"leagueId"`
	TeamID    uuid.UUID   `json:"teamId"`
	PlayerIDs []uuid.UUID `json:"playerIds"`
	Timestamp time.Time   `json:"timestamp"`
}

// TradeProposedPayload announces a new PENDING trade.
type TradeProposedPayload struct {
	LeagueID  uuid.UUID `json:"leagueId"`
	Trade     TradeView `json:"trade"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeAcceptedPayload announces a completed swap, including everything
// clients need to patch rosters and pick ownership without a resync.
type TradeAcceptedPayload struct {
	LeagueID          uuid.UUID                       `json:"leagueId"`
	TradeID           uuid.UUID                       `json:"tradeId"`
	InitiatorTeam     TeamView                        `json:"initiatorTeam"`
	ReceiverTeam      TeamView                        `json:"receiverTeam"`
	InitiatorAssets   []AssetView                     `json:"initiatorAssets"`
	ReceiverAssets    []AssetView                     `json:"receiverAssets"`
	UpdatedDraftOrder []PickView                      `json:"updatedDraftOrder,omitempty"`
	TeamRosterUpdates map[uuid.UUID][]RosterEntryView `json:"teamRosterUpdates"`
	DraftPaused       bool                            `json:"draftPaused"`
	PauseReason       *string                         `json:"pauseReason,omitempty"`
	Timestamp         time.Time                       `json:"timestamp"`
}

// TradeResolvedPayload covers the terminal refusals: rejected, cancelled,
// vetoed and expired share a shape.
type TradeResolvedPayload struct {
	LeagueID  uuid.UUID `json:"leagueId"`
	TradeID   uuid.UUID `json:"tradeId"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
