package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityType enumerates the decisions recorded in the per-league journal.
type ActivityType string

const (
	ActivityDraftStarted   ActivityType = "DRAFT_STARTED"
	ActivityDraftPaused    ActivityType = "DRAFT_PAUSED"
	ActivityDraftResumed   ActivityType = "DRAFT_RESUMED"
	ActivityDraftReset     ActivityType = "DRAFT_RESET"
	ActivityDraftCompleted ActivityType = "DRAFT_COMPLETED"
	ActivityPickMade       ActivityType = "PICK_MADE"
	ActivityPickUndone     ActivityType = "PICK_UNDONE"
	ActivityTimerExpired   ActivityType = "TIMER_EXPIRED"
	ActivityAutoPick       ActivityType = "AUTO_PICK"
	ActivityTradeProposed  ActivityType = "TRADE_PROPOSED"
	ActivityTradeAccepted  ActivityType = "TRADE_ACCEPTED"
	ActivityTradeRejected  ActivityType = "TRADE_REJECTED"
	ActivityTradeCancelled ActivityType = "TRADE_CANCELLED"
	ActivityTradeVetoed    ActivityType = "TRADE_VETOED"
	ActivityTradeExpired   ActivityType = "TRADE_EXPIRED"
	ActivityOrderUpdated   ActivityType = "ORDER_UPDATED"
	ActivitySettingsChange ActivityType = "SETTINGS_CHANGED"
)

// ActivityEntry is one row of the append-only league journal. Failed
// operations are never journaled; an entry exists only when the transaction
// that produced it committed.
type ActivityEntry struct {
	ID          uuid.UUID       `json:"id"`
	LeagueID    uuid.UUID       `json:"league_id"`
	Type        ActivityType    `json:"type"`
	ActorUserID *uuid.UUID      `json:"actor_user_id,omitempty"`
	Detail      json.RawMessage `json:"detail,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
