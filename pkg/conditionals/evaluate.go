package conditionals

import (
	"slices"

	"github.com/expr-lang/expr"
)

// SceneGatesPass checks the gates that do not depend on a participant tuple:
// environment flags, location, zone, range, cooldown and the "when" expression.
func SceneGatesPass(c *Conditions, view StateView) bool {
	if c == nil {
		return true
	}

	if len(c.LocationsAny) > 0 && !slices.Contains(c.LocationsAny, view.GetLocation()) {
		return false
	}

	if len(c.ZoneAny) > 0 && !slices.Contains(c.ZoneAny, view.GetZone()) {
		return false
	}

	if c.Range != "" && c.Range != "any" && c.Range != view.GetRange() {
		return false
	}

	if len(c.FlagsAny) > 0 && !slices.ContainsFunc(c.FlagsAny, view.HasEnvFlag) {
		return false
	}

	if c.CooldownTag != "" && !view.CooldownReady(c.CooldownTag) {
		return false
	}

	if c.program != nil {
		env := ExprEnv{
			Location: view.GetLocation(),
			Zone:     view.GetZone(),
			Range:    view.GetRange(),
			Turn:     view.GetTurn(),
			Alive:    view.GetAliveCount(),
			Env:      view.GetEnvFlags(),
		}
		out, err := expr.Run(c.program, env)
		if err != nil {
			return false
		}
		if ok, _ := out.(bool); !ok {
			return false
		}
	}

	return true
}

// ParticipantGatesPass checks the gates bound to a concrete tuple: the
// relationship between the first two participants and the trait and item
// gates on the first participant.
func ParticipantGatesPass[P Participant](c *Conditions, view StateView, participants []P) bool {
	if c == nil {
		return true
	}
	if len(participants) == 0 {
		return !c.HasParticipantGates()
	}
	first := participants[0]

	if c.Relationship != "" && len(participants) >= 2 {
		if view.GetRelationship(first.GetName(), participants[1].GetName()) != c.Relationship {
			return false
		}
	}

	if len(c.RequiresTraitsAny) > 0 && !slices.ContainsFunc(c.RequiresTraitsAny, first.HasTrait) {
		return false
	}

	if len(c.ForbidsTraitsAny) > 0 && slices.ContainsFunc(c.ForbidsTraitsAny, first.HasTrait) {
		return false
	}

	if len(c.ItemsAny) > 0 && !slices.ContainsFunc(c.ItemsAny, first.HasItem) {
		return false
	}

	return true
}
