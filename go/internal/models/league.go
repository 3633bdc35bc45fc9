package models

import (
	"github.com/google/uuid"
	"time"
)

// DraftType defines how the per-round team order is produced.
type DraftType string

const (
	DraftTypeSnake  DraftType = "SNAKE"
	DraftTypeLinear DraftType = "LINEAR"
)

// RosterTemplate is the league's roster configuration: starter counts per
// position plus bench size. Stored as JSONB on the league row.
type RosterTemplate struct {
	Starters map[string]int `json:"starters"`
	Bench    int            `json:"bench"`
}

// Slots returns the total roster size implied by the template.
func (t RosterTemplate) Slots() int {
	total := t.Bench
	for _, n := range t.Starters {
		total += n
	}
	return total
}

// League represents a keeper league's static configuration. League CRUD lives
// outside this service; the draft core reads these settings and only ever
// rewrites them through the commissioner settings update.
type League struct {
	ID                 uuid.UUID      `json:"id"`
	Name               string         `json:"name"`
	SportID            string         `json:"sport_id"`
	CommissionerUserID uuid.UUID      `json:"commissioner_user_id"`
	MaxTeams           int            `json:"max_teams"`
	RosterTemplate     RosterTemplate `json:"roster_template"`
	DraftType          DraftType      `json:"draft_type"`
	TotalRounds        int            `json:"total_rounds"`
	TimerSeconds       int            `json:"timer_seconds"`
	ReserveSeconds     int            `json:"reserve_seconds"`
	PauseOnTrade       bool           `json:"pause_on_trade"`
	MaxKeepers         int            `json:"max_keepers"`
	CurrentSeason      int            `json:"current_season"`
	ScheduledStart     *time.Time     `json:"scheduled_start,omitempty"`
	KeeperDeadline     *time.Time     `json:"keeper_deadline,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
