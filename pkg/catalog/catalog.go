package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/jwebster45206/easton-heights/pkg/conditionals"
)

// DefaultWeight is the draw weight of a template that declares none.
const DefaultWeight = 5.0

// MaxParticipants is the largest supported participant count.
const MaxParticipants = 3

// ErrInvalidTemplate marks a catalog entry missing a required field.
// It is fatal at load time.
var ErrInvalidTemplate = errors.New("invalid template")

// Template is an immutable event definition.
type Template struct {
	ID           string                  `json:"id"`
	Category     string                  `json:"category,omitempty"`
	Participants int                     `json:"participants"`
	Conditions   conditionals.Conditions `json:"conditions"`
	Weight       *float64                `json:"weight,omitempty"`
	Effects      Effects                 `json:"effects,omitempty"`
	Text         string                  `json:"text"`
}

// EffectiveWeight returns the declared weight or DefaultWeight.
func (t *Template) EffectiveWeight() float64 {
	if t.Weight == nil {
		return DefaultWeight
	}
	return *t.Weight
}

// Validate checks the structural fields the engine relies on and compiles
// the template's expression gate.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTemplate)
	}
	if t.Participants < 1 || t.Participants > MaxParticipants {
		return fmt.Errorf("%w %q: participants must be 1-%d, got %d", ErrInvalidTemplate, t.ID, MaxParticipants, t.Participants)
	}
	if t.Text == "" {
		return fmt.Errorf("%w %q: text is required", ErrInvalidTemplate, t.ID)
	}
	if t.Weight != nil && *t.Weight <= 0 {
		return fmt.Errorf("%w %q: weight must be positive", ErrInvalidTemplate, t.ID)
	}
	if err := t.Conditions.Compile(); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidTemplate, t.ID, err)
	}
	return nil
}

// Catalog is an ordered list of templates.
type Catalog []*Template

// ParticipantCounts returns the distinct participant counts in catalog order.
func (c Catalog) ParticipantCounts() []int {
	var counts []int
	for _, t := range c {
		if !slices.Contains(counts, t.Participants) {
			counts = append(counts, t.Participants)
		}
	}
	return counts
}

// Find returns the template with the given id, or nil.
func (c Catalog) Find(id string) *Template {
	for _, t := range c {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// pack is the wrapped form of a pack file.
type pack struct {
	Events []json.RawMessage `json:"events"`
}

// LoadCatalog parses a pack: either a bare array of templates or an object
// holding them under "events". Every template is validated.
func LoadCatalog(raw []byte) (Catalog, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty pack")
	}

	var entries []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pack: %w", err)
		}
	} else {
		var p pack
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pack: %w", err)
		}
		entries = p.Events
	}

	cat := make(Catalog, 0, len(entries))
	for i, entry := range entries {
		var t Template
		if err := json.Unmarshal(entry, &t); err != nil {
			return nil, fmt.Errorf("%w at index %d: %w", ErrInvalidTemplate, i, err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		cat = append(cat, &t)
	}
	return cat, nil
}

// Merge concatenates catalogs in order.
func Merge(catalogs ...Catalog) Catalog {
	var merged Catalog
	for _, c := range catalogs {
		merged = append(merged, c...)
	}
	return merged
}
