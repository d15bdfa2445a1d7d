package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/conditionals"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// PackValidator lints pack files beyond what catalog loading enforces.
type PackValidator struct {
	errors []string
}

// strictTemplate mirrors catalog.Template so unknown fields are rejected.
type strictTemplate struct {
	ID           string                   `json:"id"`
	Category     string                   `json:"category"`
	Participants int                      `json:"participants"`
	Conditions   *conditionals.Conditions `json:"conditions"`
	Weight       *float64                 `json:"weight"`
	Effects      json.RawMessage          `json:"effects"`
	Text         string                   `json:"text"`
}

type strictPack struct {
	Events []strictTemplate `json:"events"`
}

// ValidateFile checks one pack and returns its template count.
func (v *PackValidator) ValidateFile(filename string) (int, error) {
	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return 0, fmt.Errorf("pack file must have .json extension: %s", baseName)
	}
	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidPackFilename(nameWithoutExt) {
		return 0, fmt.Errorf("pack filename '%s' must be lowercase snake_case (e.g., night_events.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.Validate(data, filename)
}

// Validate checks raw pack bytes. The source names the pack in messages.
func (v *PackValidator) Validate(data []byte, source string) (int, error) {
	v.errors = nil

	if !json.Valid(data) {
		return 0, fmt.Errorf("file %s contains invalid JSON", source)
	}
	if err := strictDecode(data); err != nil {
		return 0, fmt.Errorf("file %s failed strict JSON unmarshaling: %w", source, err)
	}

	cat, err := catalog.LoadCatalog(data)
	if err != nil {
		return 0, fmt.Errorf("file %s: %w", source, err)
	}

	v.validateCatalog(cat)

	if len(v.errors) > 0 {
		return 0, fmt.Errorf("validation errors in %s:\n%s", source, strings.Join(v.errors, "\n"))
	}
	return len(cat), nil
}

func strictDecode(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []strictTemplate
		return decoder.Decode(&events)
	}
	var p strictPack
	return decoder.Decode(&p)
}

func (v *PackValidator) validateCatalog(cat catalog.Catalog) {
	seen := make(map[string]bool, len(cat))
	for _, t := range cat {
		if seen[t.ID] {
			v.addError(fmt.Sprintf("duplicate template id '%s'", t.ID))
		}
		seen[t.ID] = true
		v.validateTemplate(t)
	}
}

func (v *PackValidator) validateTemplate(t *catalog.Template) {
	ctx := fmt.Sprintf("template %s", t.ID)
	v.validateIDFormat(ctx+" id", t.ID)

	for _, tok := range placeholderRegex.FindAllString(t.Text, -1) {
		if tok == "{ITEM}" {
			continue
		}
		if !tokenInRange(tok, t.Participants) {
			v.addError(fmt.Sprintf("%s text uses %s but has %d participant(s)", ctx, tok, t.Participants))
		}
	}

	c := &t.Conditions
	if c.Relationship != "" && t.Participants < 2 {
		v.addError(fmt.Sprintf("%s has a relationship gate but only one participant", ctx))
	}
	for _, trait := range slices.Concat(c.RequiresTraitsAny, c.ForbidsTraitsAny) {
		if !actor.IsTrait(trait) {
			v.addError(fmt.Sprintf("%s gates on unknown trait '%s'", ctx, trait))
		}
	}
	for _, loc := range c.LocationsAny {
		if !state.IsLocation(loc) {
			v.addError(fmt.Sprintf("%s gates on unknown location '%s'", ctx, loc))
		}
	}
	for _, zone := range c.ZoneAny {
		if !isZone(zone) {
			v.addError(fmt.Sprintf("%s gates on unknown zone '%s'", ctx, zone))
		}
	}
	if c.Range != "" && !slices.Contains(state.Ranges, c.Range) {
		v.addError(fmt.Sprintf("%s has unknown range '%s'", ctx, c.Range))
	}

	for i, e := range t.Effects {
		v.validateEffect(e, t.Participants, fmt.Sprintf("%s effect %d (%s)", ctx, i+1, e.Op()))
	}
}

func (v *PackValidator) validateEffect(e catalog.Effect, participants int, ctx string) {
	var refs []string
	switch e := e.(type) {
	case catalog.SetRelationship:
		refs = []string{e.A, e.B}
	case catalog.ToggleStealth:
		refs = []string{e.Who}
		if e.State != actor.StealthOn && e.State != actor.StealthOff {
			v.addError(fmt.Sprintf("%s has unknown stealth state '%s'", ctx, e.State))
		}
	case catalog.GiveItem:
		refs = []string{e.To}
	case catalog.Injure:
		refs = []string{e.Who}
		if e.Severity != "" && e.Severity != catalog.SeverityLethalHitCheck {
			v.addError(fmt.Sprintf("%s has unknown severity '%s'", ctx, e.Severity))
		}
	case catalog.Heal:
		refs = []string{e.Who}
	case catalog.Kill:
		refs = []string{e.Who}
	case catalog.SetFlag:
		refs = []string{e.Who}
		if e.Flag == "" {
			v.addError(ctx + " has no flag")
		}
	case catalog.ClearFlag:
		refs = []string{e.Who}
		if e.Flag == "" {
			v.addError(ctx + " has no flag")
		}
	case catalog.Move:
		if !state.IsLocation(e.To) {
			v.addError(fmt.Sprintf("%s moves to unknown location '%s'", ctx, e.To))
		}
	case catalog.SetZone:
		refs = []string{e.Who}
		if e.Zone != "" && !isZone(e.Zone) {
			v.addError(fmt.Sprintf("%s sets unknown zone '%s'", ctx, e.Zone))
		}
	case catalog.SetPrimal:
		refs = []string{e.Who}
	case catalog.RollCombat:
		refs = []string{e.A, e.B}
		if participants < 2 {
			v.addError(ctx + " needs two participants")
		}
	}

	for _, ref := range refs {
		if isToken(ref) && !tokenInRange(ref, participants) {
			v.addError(fmt.Sprintf("%s targets %s but the template has %d participant(s)", ctx, ref, participants))
		}
	}
}

func (v *PackValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *PackValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	placeholderRegex   = regexp.MustCompile(`\{[A-Z]+\}`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidPackFilename(name string) bool {
	// Allow 'x.' prefix for experimental packs
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}

func isToken(s string) bool {
	return s == catalog.TokenA || s == catalog.TokenB || s == catalog.TokenC
}

// tokenInRange reports whether a participant placeholder is bound for n participants.
func tokenInRange(tok string, n int) bool {
	switch tok {
	case catalog.TokenA:
		return n >= 1
	case catalog.TokenB:
		return n >= 2
	case catalog.TokenC:
		return n >= 3
	default:
		return false
	}
}

func isZone(zone string) bool {
	for _, zones := range state.ZonesByLocation {
		if slices.Contains(zones, zone) {
			return true
		}
	}
	return false
}
