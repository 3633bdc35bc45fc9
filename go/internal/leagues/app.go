package leagues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/sports/base"
)

// ErrSettingsRejected marks settings updates refused by validation or the
// draft-shape freeze, as opposed to storage failures.
var ErrSettingsRejected = errors.New("settings rejected")

// LeaguesRepository defines what the app layer needs from the repository
type LeaguesRepository interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	UpdateLeagueSettings(ctx context.Context, league *models.League) error
	GetDraftState(ctx context.Context, leagueID uuid.UUID) (*models.DraftState, error)
	AppendActivity(ctx context.Context, entry models.ActivityEntry) error
}

// App handles league settings reads and the commissioner settings update.
// League provisioning lives outside this service.
type App struct {
	repo LeaguesRepository
}

// NewApp creates a new leagues App
func NewApp(repo LeaguesRepository) *App {
	return &App{
		repo: repo,
	}
}

// GetLeague retrieves a league by ID
func (a *App) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	league, err := a.repo.GetLeague(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	return league, nil
}

// UpdateSettingsRequest carries the commissioner-editable league settings.
type UpdateSettingsRequest struct {
	Name           string                `json:"name"`
	RosterTemplate models.RosterTemplate `json:"roster_template"`
	DraftType      models.DraftType      `json:"draft_type"`
	TotalRounds    int                   `json:"total_rounds"`
	TimerSeconds   int                   `json:"timer_seconds"`
	ReserveSeconds int                   `json:"reserve_seconds"`
	PauseOnTrade   bool                  `json:"pause_on_trade"`
	MaxKeepers     int                   `json:"max_keepers"`
	ScheduledStart *time.Time            `json:"scheduled_start,omitempty"`
	KeeperDeadline *time.Time            `json:"keeper_deadline,omitempty"`
}

// UpdateSettings validates and applies new league settings. Draft shape
// changes (type, rounds, timer, roster template) are refused once the draft
// has left NOT_STARTED.
func (a *App) UpdateSettings(ctx context.Context, id uuid.UUID, actorUserID uuid.UUID, req UpdateSettingsRequest) (*models.League, error) {
	if err := a.validateUpdateSettingsRequest(req); err != nil {
		return nil, err
	}

	league, err := a.repo.GetLeague(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("league not found: %w", err)
	}

	plugin, err := base.GetPlugin(league.SportID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sport plugin: %w", err)
	}
	if err := plugin.ValidateRosterTemplate(req.RosterTemplate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettingsRejected, err)
	}

	state, err := a.repo.GetDraftState(ctx, id)
	if err == nil && state.Status != models.DraftStatusNotStarted {
		if req.DraftType != league.DraftType ||
			req.TotalRounds != league.TotalRounds ||
			req.TimerSeconds != league.TimerSeconds {
			return nil, fmt.Errorf("%w: draft settings are frozen once the draft has started", ErrSettingsRejected)
		}
	}

	league.Name = req.Name
	league.RosterTemplate = req.RosterTemplate
	league.DraftType = req.DraftType
	league.TotalRounds = req.TotalRounds
	league.TimerSeconds = req.TimerSeconds
	league.ReserveSeconds = req.ReserveSeconds
	league.PauseOnTrade = req.PauseOnTrade
	league.MaxKeepers = req.MaxKeepers
	league.ScheduledStart = req.ScheduledStart
	league.KeeperDeadline = req.KeeperDeadline

	if err := a.repo.UpdateLeagueSettings(ctx, league); err != nil {
		return nil, fmt.Errorf("failed to update league settings: %w", err)
	}

	detail, _ := json.Marshal(req)
	entry := models.ActivityEntry{
		ID:          uuid.New(),
		LeagueID:    id,
		Type:        models.ActivitySettingsChange,
		ActorUserID: &actorUserID,
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.repo.AppendActivity(ctx, entry); err != nil {
		log.Printf("failed to record settings change for league %s: %v", id, err)
	}

	log.Printf("Updated league settings: %s", league.Name)
	return league, nil
}

// validateUpdateSettingsRequest validates the settings update request
func (a *App) validateUpdateSettingsRequest(req UpdateSettingsRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrSettingsRejected)
	}
	if err := a.validateDraftType(req.DraftType); err != nil {
		return err
	}
	if req.TotalRounds <= 0 {
		return fmt.Errorf("%w: total_rounds must be positive", ErrSettingsRejected)
	}
	if req.TimerSeconds <= 0 {
		return fmt.Errorf("%w: timer_seconds must be positive", ErrSettingsRejected)
	}
	if req.ReserveSeconds < 0 {
		return fmt.Errorf("%w: reserve_seconds cannot be negative", ErrSettingsRejected)
	}
	if req.MaxKeepers < 0 {
		return fmt.Errorf("%w: max_keepers cannot be negative", ErrSettingsRejected)
	}
	return nil
}

// validateDraftType validates draft type
func (a *App) validateDraftType(draftType models.DraftType) error {
	switch draftType {
	case models.DraftTypeSnake, models.DraftTypeLinear:
		return nil
	default:
		return fmt.Errorf("%w: invalid draft type: %s", ErrSettingsRejected, draftType)
	}
}
