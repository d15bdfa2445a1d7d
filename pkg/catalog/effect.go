package catalog

import (
	"encoding/json"
	"fmt"
)

// Op names an effect kind as it appears in pack files ("do" field).
type Op string

const (
	OpSetRelationship Op = "set_relationship"
	OpToggleStealth   Op = "toggle_stealth"
	OpGiveItem        Op = "give_item"
	OpInjure          Op = "injure"
	OpHeal            Op = "heal"
	OpKill            Op = "kill"
	OpStartCooldown   Op = "start_cooldown"
	OpSetFlag         Op = "set_flag"
	OpClearFlag       Op = "clear_flag"
	OpMove            Op = "move"
	OpSetZone         Op = "set_zone"
	OpSetPrimal       Op = "set_primal"
	OpFleeCheck       Op = "flee_check"
	OpRollCombat      Op = "roll_combat"
)

// Participant tokens bound positionally to the selected tuple.
const (
	TokenA = "{A}"
	TokenB = "{B}"
	TokenC = "{C}"
)

// SeverityLethalHitCheck makes an injury a coin flip between death and bleeding.
const SeverityLethalHitCheck = "lethal_hit_check"

// DefaultCooldownTurns is used when start_cooldown omits "turns".
const DefaultCooldownTurns = 3

// Effect is one state-mutating operation of a template. The set of
// implementations is closed; the engine switches over them by type.
type Effect interface {
	Op() Op
	isEffect()
}

// SetRelationship sets the pair relationship between A and B.
type SetRelationship struct{ A, B, Type string }

// ToggleStealth sets Who's stealth mode to State.
type ToggleStealth struct{ Who, State string }

// GiveItem adds Item to To's items.
type GiveItem struct{ To, Item string }

// Injure wounds Who; see SeverityLethalHitCheck.
type Injure struct{ Who, Severity string }

// Heal clears Who's wound flags.
type Heal struct{ Who string }

// Kill kills Who.
type Kill struct{ Who string }

// StartCooldown raises Tag's cooldown to at least Turns.
type StartCooldown struct {
	Tag   string
	Turns int
}

// SetFlag adds Flag to Who, or to the environment when Who does not resolve.
type SetFlag struct{ Who, Flag string }

// ClearFlag removes Flag from Who, or from the environment when Who does not resolve.
type ClearFlag struct{ Who, Flag string }

// Move relocates the scene.
type Move struct{ To string }

// SetZone sets Who's zone, or the scene zone when Who does not resolve.
type SetZone struct{ Who, Zone string }

// SetPrimal marks Who as primal.
type SetPrimal struct{ Who string }

// FleeCheck records a flee attempt without changing state.
type FleeCheck struct{}

// RollCombat resolves a fight between A and B.
type RollCombat struct{ A, B string }

func (SetRelationship) Op() Op { return OpSetRelationship }
func (ToggleStealth) Op() Op   { return OpToggleStealth }
func (GiveItem) Op() Op        { return OpGiveItem }
func (Injure) Op() Op          { return OpInjure }
func (Heal) Op() Op            { return OpHeal }
func (Kill) Op() Op            { return OpKill }
func (StartCooldown) Op() Op   { return OpStartCooldown }
func (SetFlag) Op() Op         { return OpSetFlag }
func (ClearFlag) Op() Op       { return OpClearFlag }
func (Move) Op() Op            { return OpMove }
func (SetZone) Op() Op         { return OpSetZone }
func (SetPrimal) Op() Op       { return OpSetPrimal }
func (FleeCheck) Op() Op       { return OpFleeCheck }
func (RollCombat) Op() Op      { return OpRollCombat }

func (SetRelationship) isEffect() {}
func (ToggleStealth) isEffect()   {}
func (GiveItem) isEffect()        {}
func (Injure) isEffect()          {}
func (Heal) isEffect()            {}
func (Kill) isEffect()            {}
func (StartCooldown) isEffect()   {}
func (SetFlag) isEffect()         {}
func (ClearFlag) isEffect()       {}
func (Move) isEffect()            {}
func (SetZone) isEffect()         {}
func (SetPrimal) isEffect()       {}
func (FleeCheck) isEffect()       {}
func (RollCombat) isEffect()      {}

// wireEffect is the pack file shape of every effect kind.
type wireEffect struct {
	Do       Op     `json:"do"`
	A        string `json:"a,omitempty"`
	B        string `json:"b,omitempty"`
	Who      string `json:"who,omitempty"`
	To       string `json:"to,omitempty"` // Recipient for give_item, location for move
	Type     string `json:"type,omitempty"`
	State    string `json:"state,omitempty"`
	Item     string `json:"item,omitempty"`
	Severity string `json:"severity,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Turns    *int   `json:"turns,omitempty"`
	Flag     string `json:"flag,omitempty"`
	Zone     string `json:"zone,omitempty"`
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// decode converts the wire shape into its variant, filling per-op defaults.
func (w wireEffect) decode() (Effect, error) {
	switch w.Do {
	case OpSetRelationship:
		return SetRelationship{A: or(w.A, TokenA), B: or(w.B, TokenB), Type: or(w.Type, "allies")}, nil
	case OpToggleStealth:
		return ToggleStealth{Who: or(w.Who, TokenA), State: or(w.State, "off")}, nil
	case OpGiveItem:
		return GiveItem{To: or(w.To, TokenA), Item: or(w.Item, "item")}, nil
	case OpInjure:
		return Injure{Who: or(w.Who, TokenB), Severity: w.Severity}, nil
	case OpHeal:
		return Heal{Who: or(w.Who, TokenB)}, nil
	case OpKill:
		return Kill{Who: or(w.Who, TokenB)}, nil
	case OpStartCooldown:
		if w.Tag == "" {
			return nil, fmt.Errorf("start_cooldown requires a tag")
		}
		turns := DefaultCooldownTurns
		if w.Turns != nil {
			turns = *w.Turns
		}
		if turns < 0 {
			return nil, fmt.Errorf("start_cooldown %q: turns must not be negative", w.Tag)
		}
		return StartCooldown{Tag: w.Tag, Turns: turns}, nil
	case OpSetFlag:
		return SetFlag{Who: or(w.Who, TokenA), Flag: w.Flag}, nil
	case OpClearFlag:
		return ClearFlag{Who: or(w.Who, TokenA), Flag: w.Flag}, nil
	case OpMove:
		if w.To == "" {
			return nil, fmt.Errorf("move requires a destination")
		}
		return Move{To: w.To}, nil
	case OpSetZone:
		return SetZone{Who: or(w.Who, TokenA), Zone: w.Zone}, nil
	case OpSetPrimal:
		return SetPrimal{Who: or(w.Who, TokenA)}, nil
	case OpFleeCheck:
		return FleeCheck{}, nil
	case OpRollCombat:
		return RollCombat{A: or(w.A, TokenA), B: or(w.B, TokenB)}, nil
	default:
		return nil, fmt.Errorf("unknown effect %q", w.Do)
	}
}

func encode(e Effect) wireEffect {
	w := wireEffect{Do: e.Op()}
	switch e := e.(type) {
	case SetRelationship:
		w.A, w.B, w.Type = e.A, e.B, e.Type
	case ToggleStealth:
		w.Who, w.State = e.Who, e.State
	case GiveItem:
		w.To, w.Item = e.To, e.Item
	case Injure:
		w.Who, w.Severity = e.Who, e.Severity
	case Heal:
		w.Who = e.Who
	case Kill:
		w.Who = e.Who
	case StartCooldown:
		turns := e.Turns
		w.Tag, w.Turns = e.Tag, &turns
	case SetFlag:
		w.Who, w.Flag = e.Who, e.Flag
	case ClearFlag:
		w.Who, w.Flag = e.Who, e.Flag
	case Move:
		w.To = e.To
	case SetZone:
		w.Who, w.Zone = e.Who, e.Zone
	case SetPrimal:
		w.Who = e.Who
	case RollCombat:
		w.A, w.B = e.A, e.B
	}
	return w
}

// Effects is an ordered effect list.
type Effects []Effect

// UnmarshalJSON decodes each element by its "do" field.
func (es *Effects) UnmarshalJSON(data []byte) error {
	var raw []wireEffect
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Effects, 0, len(raw))
	for i, w := range raw {
		e, err := w.decode()
		if err != nil {
			return fmt.Errorf("effect %d: %w", i, err)
		}
		out = append(out, e)
	}
	*es = out
	return nil
}

// MarshalJSON encodes effects in pack file form.
func (es Effects) MarshalJSON() ([]byte, error) {
	raw := make([]wireEffect, 0, len(es))
	for _, e := range es {
		raw = append(raw, encode(e))
	}
	return json.Marshal(raw)
}
