package nfl

import (
	"fmt"
	"sort"

	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/sports/base"
)

// NFLPlugin implements the SportPlugin interface for the NFL.
type NFLPlugin struct {
	positions map[string]struct{}
	flexSlots map[string][]string
}

// init registers the NFL plugin with the base registry.
func init() {
	plugin := &NFLPlugin{}
	if err := base.RegisterPlugin("nfl", plugin); err != nil {
		panic(fmt.Sprintf("Failed to register NFL plugin: %v", err))
	}
}

// Init populates the position and flex-slot tables.
func (p *NFLPlugin) Init() error {
	p.positions = map[string]struct{}{}
	for _, pos := range []string{"QB", "RB", "WR", "TE", "K", "DEF"} {
		p.positions[pos] = struct{}{}
	}
	p.flexSlots = map[string][]string{
		"RB": {"FLEX"},
		"WR": {"FLEX"},
		"TE": {"FLEX"},
	}
	return nil
}

// Positions returns every position an NFL player may carry, sorted.
func (p *NFLPlugin) Positions() []string {
	out := make([]string, 0, len(p.positions))
	for pos := range p.positions {
		out = append(out, pos)
	}
	sort.Strings(out)
	return out
}

// ValidatePosition checks that position is a legal NFL position.
func (p *NFLPlugin) ValidatePosition(position string) error {
	if _, ok := p.positions[position]; !ok {
		return fmt.Errorf("nfl: unknown position %q", position)
	}
	return nil
}

// ValidateRosterTemplate checks a league roster template against NFL slots.
// Starter keys must be legal positions or FLEX, counts must be positive, and
// the bench cannot be negative.
func (p *NFLPlugin) ValidateRosterTemplate(tpl models.RosterTemplate) error {
	if len(tpl.Starters) == 0 {
		return fmt.Errorf("nfl: roster template has no starter slots")
	}
	for slot, count := range tpl.Starters {
		if count <= 0 {
			return fmt.Errorf("nfl: starter slot %q has non-positive count %d", slot, count)
		}
		if slot == "FLEX" {
			continue
		}
		if err := p.ValidatePosition(slot); err != nil {
			return fmt.Errorf("nfl: invalid starter slot: %w", err)
		}
	}
	if tpl.Bench < 0 {
		return fmt.Errorf("nfl: bench count cannot be negative, got %d", tpl.Bench)
	}
	return nil
}

// EligibleSlots returns the roster slots a player at the given position can
// occupy, the dedicated slot first.
func (p *NFLPlugin) EligibleSlots(position string) []string {
	if _, ok := p.positions[position]; !ok {
		return nil
	}
	slots := []string{position}
	slots = append(slots, p.flexSlots[position]...)
	return slots
}
