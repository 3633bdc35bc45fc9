package base

import (
	"fmt"
	"sync"

	"github.com/mcdev12/keeper/go/internal/models"
)

// SportPlugin defines the interface each sport plugin must implement.
// Plugins provide the sport-specific rules the draft core stays agnostic to:
// legal roster slots, which positions a player may fill, and validation of a
// league's roster template before it is saved.
type SportPlugin interface {
	Init() error
	Positions() []string
	ValidatePosition(position string) error
	ValidateRosterTemplate(tpl models.RosterTemplate) error
	EligibleSlots(position string) []string

	//DefaultScoringTemplates() map[string][]ScoringRule
	//MapExternalPlayer(raw json.RawMessage) (*Player, error)
	//FetchPlayers(ctx context.Context, since time.Time) ([]json.RawMessage, error)
}

var (
	registry   = make(map[string]SportPlugin)
	registryMu sync.RWMutex
)

// RegisterPlugin adds a plugin implementation under a key.
// It should be called in each sport plugin's init() function.
// The plugin will be initialized later when retrieved.
func RegisterPlugin(key string, plugin SportPlugin) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if key == "" {
		return fmt.Errorf("plugin key cannot be empty")
	}
	if _, exists := registry[key]; exists {
		return fmt.Errorf("plugin already registered for key %q", key)
	}
	registry[key] = plugin
	return nil
}

// GetPlugin retrieves a plugin by key or returns an error if not found.
func GetPlugin(key string) (SportPlugin, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	plugin, exists := registry[key]
	if !exists {
		return nil, fmt.Errorf("no sport plugin registered for key %q", key)
	}
	return plugin, nil
}

// InitializePlugin initializes a specific plugin.
func InitializePlugin(key string) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	plugin, exists := registry[key]
	if !exists {
		return fmt.Errorf("no sport plugin registered for key %q", key)
	}
	if err := plugin.Init(); err != nil {
		return fmt.Errorf("failed to init plugin %q: %w", key, err)
	}
	return nil
}
