package models

import (
	"github.com/google/uuid"
	"time"
)

// DraftStatus defines the lifecycle state of a league's draft.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
	DraftStatusCancelled  DraftStatus = "CANCELLED"
)

// DraftState is the singleton per-league draft row. Status PAUSED and
// IsPaused are two views of the same fact and are always written together.
// TimerStartedAt is set exactly while the clock is running; a paused draft
// keeps the residual seconds in TimerSecondsRemaining with a nil start.
type DraftState struct {
	LeagueID              uuid.UUID   `json:"league_id"`
	Status                DraftStatus `json:"status"`
	CurrentRound          int         `json:"current_round"`
	CurrentPick           int         `json:"current_pick"`
	CurrentTeamID         *uuid.UUID  `json:"current_team_id,omitempty"`
	IsPaused              bool        `json:"is_paused"`
	PauseReason           *string     `json:"pause_reason,omitempty"`
	TimerSecondsRemaining *int        `json:"timer_seconds_remaining,omitempty"`
	TimerStartedAt        *time.Time  `json:"timer_started_at,omitempty"`
	LastPickID            *uuid.UUID  `json:"last_pick_id,omitempty"`
	UndoAvailable         bool        `json:"undo_available"`
	StartedAt             *time.Time  `json:"started_at,omitempty"`
	CompletedAt           *time.Time  `json:"completed_at,omitempty"`
	LastActivityAt        time.Time   `json:"last_activity_at"`
}

// NewDraftState returns the NOT_STARTED initial state for a league.
func NewDraftState(leagueID uuid.UUID, now time.Time) *DraftState {
	return &DraftState{
		LeagueID:       leagueID,
		Status:         DraftStatusNotStarted,
		LastActivityAt: now,
	}
}

// TimerRunning reports whether the pick clock is live.
func (s *DraftState) TimerRunning() bool {
	return s.Status == DraftStatusInProgress && !s.IsPaused && s.TimerStartedAt != nil
}
