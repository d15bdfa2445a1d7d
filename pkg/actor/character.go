package actor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stealth modes
const (
	StealthOff = "off"
	StealthOn  = "on"
)

// Status flags written by the engine.
const (
	FlagInjured  = "injured"
	FlagBleeding = "bleeding"
	FlagPrimal   = "primal_on"
)

// DefaultGroupState is the group state of a freshly created character.
const DefaultGroupState = "solo"

// Character is a member of the roster.
type Character struct {
	Name       string `json:"name"` // Unique within a roster
	Gender     string `json:"gender,omitempty"`
	Alive      bool   `json:"alive"`
	Traits     Tags   `json:"traits"`
	Items      Tags   `json:"items"` // Free-form tags; class:* tags resolve to display aliases
	Flags      Tags   `json:"flags"` // e.g. injured, bleeding, primal_on
	Stealth    string `json:"stealth"`
	Zone       string `json:"zone,omitempty"`
	GroupState string `json:"group_state,omitempty"`
}

// New creates a living character with the given traits and items.
func New(name string, traits, items []string) *Character {
	return &Character{
		Name:       name,
		Alive:      true,
		Traits:     NewTags(traits...),
		Items:      NewTags(items...),
		Flags:      NewTags(),
		Stealth:    StealthOff,
		GroupState: DefaultGroupState,
	}
}

// UnmarshalJSON fills in defaults for fields a roster file may omit.
// A character with no "alive" field is treated as alive.
func (c *Character) UnmarshalJSON(data []byte) error {
	type Alias Character
	aux := &struct {
		Alive *bool `json:"alive"`
		*Alias
	}{Alias: (*Alias)(c)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	c.Alive = aux.Alive == nil || *aux.Alive
	if c.Traits == nil {
		c.Traits = NewTags()
	}
	if c.Items == nil {
		c.Items = NewTags()
	}
	if c.Flags == nil {
		c.Flags = NewTags()
	}
	if c.Stealth == "" {
		c.Stealth = StealthOff
	}
	if c.GroupState == "" {
		c.GroupState = DefaultGroupState
	}
	return nil
}

// Kill marks the character dead. Killing a dead character is a no-op.
func (c *Character) Kill() {
	c.Alive = false
}

func (c *Character) GetName() string           { return c.Name }
func (c *Character) HasTrait(trait string) bool { return c.Traits.Has(trait) }
func (c *Character) HasItem(item string) bool   { return c.Items.Has(item) }

// Injured reports whether the character carries either wound flag.
func (c *Character) Injured() bool {
	return c.Flags.Has(FlagInjured) || c.Flags.Has(FlagBleeding)
}

// Roster is the ordered list of characters in a scenario.
type Roster []*Character

// Find returns the character with the given name, or nil.
func (r Roster) Find(name string) *Character {
	for _, c := range r {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Alive returns the living characters in roster order.
func (r Roster) Alive() []*Character {
	alive := make([]*Character, 0, len(r))
	for _, c := range r {
		if c.Alive {
			alive = append(alive, c)
		}
	}
	return alive
}

// Add appends c, rejecting duplicate or empty names.
func (r *Roster) Add(c *Character) error {
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("character name cannot be empty")
	}
	if r.Find(c.Name) != nil {
		return fmt.Errorf("character %q already exists", c.Name)
	}
	*r = append(*r, c)
	return nil
}

// Remove deletes the named character. It reports whether anything was removed.
func (r *Roster) Remove(name string) bool {
	for i, c := range *r {
		if c.Name == name {
			*r = append((*r)[:i], (*r)[i+1:]...)
			return true
		}
	}
	return false
}

// LoadRoster reads a JSON array of characters from path.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	return ParseRoster(data, filepath.Base(path))
}

// ParseRoster decodes a roster and checks that names are unique.
func ParseRoster(data []byte, source string) (Roster, error) {
	var roster Roster
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster %s: %w", source, err)
	}

	seen := make(map[string]bool, len(roster))
	for _, c := range roster {
		if c == nil || strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("roster %s: character with empty name", source)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("roster %s: duplicate character %q", source, c.Name)
		}
		seen[c.Name] = true
	}
	return roster, nil
}
