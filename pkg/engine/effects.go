package engine

import (
	"fmt"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// resolve binds a token to a character: {A}/{B}/{C} index the tuple, any
// other string is looked up by name in the roster. It returns nil when
// nothing matches.
func resolve(ws *state.WorldState, participants []*actor.Character, token string) *actor.Character {
	idx := -1
	switch token {
	case catalog.TokenA:
		idx = 0
	case catalog.TokenB:
		idx = 1
	case catalog.TokenC:
		idx = 2
	}
	if idx >= 0 {
		if idx < len(participants) {
			return participants[idx]
		}
		return nil
	}
	return ws.Players.Find(token)
}

// ApplyEffects runs tmpl's effects in order against ws and returns the trace.
// An effect whose character target does not resolve is skipped.
func (e *Engine) ApplyEffects(ws *state.WorldState, tmpl *catalog.Template, participants []*actor.Character) []string {
	trace := make([]string, 0, len(tmpl.Effects))
	for _, eff := range tmpl.Effects {
		entry, ok := e.apply(ws, eff, participants)
		if !ok {
			e.logger.Debug("Skipped effect", "template", tmpl.ID, "op", eff.Op())
			continue
		}
		trace = append(trace, entry)
	}
	return trace
}

func (e *Engine) apply(ws *state.WorldState, eff catalog.Effect, parts []*actor.Character) (string, bool) {
	switch eff := eff.(type) {
	case catalog.SetRelationship:
		a, b := resolve(ws, parts, eff.A), resolve(ws, parts, eff.B)
		if a == nil || b == nil {
			return "", false
		}
		ws.SetRelationship(a.Name, b.Name, eff.Type)
		return fmt.Sprintf("rel:%s<->%s=%s", a.Name, b.Name, eff.Type), true

	case catalog.ToggleStealth:
		who := resolve(ws, parts, eff.Who)
		if who == nil {
			return "", false
		}
		who.Stealth = eff.State
		return fmt.Sprintf("stealth(%s)=%s", who.Name, eff.State), true

	case catalog.GiveItem:
		who := resolve(ws, parts, eff.To)
		if who == nil {
			return "", false
		}
		who.Items.Add(eff.Item)
		return fmt.Sprintf("item(%s)+=%s", who.Name, eff.Item), true

	case catalog.Injure:
		who := resolve(ws, parts, eff.Who)
		if who == nil {
			return "", false
		}
		if eff.Severity != catalog.SeverityLethalHitCheck {
			who.Flags.Add(actor.FlagInjured)
			return fmt.Sprintf("injure(%s)=%s", who.Name, actor.FlagInjured), true
		}
		if e.coin(lethalHitChance) {
			who.Kill()
			return fmt.Sprintf("death:%s", who.Name), true
		}
		who.Flags.Add(actor.FlagBleeding)
		return fmt.Sprintf("injure(%s)=%s", who.Name, actor.FlagBleeding), true

	case catalog.Heal:
		who := resolve(ws, parts, eff.Who)
		if who == nil {
			return "", false
		}
		who.Flags.Remove(actor.FlagInjured)
		who.Flags.Remove(actor.FlagBleeding)
		return fmt.Sprintf("heal(%s)", who.Name), true

	case catalog.Kill:
		who := resolve(ws, parts, eff.Who)
		if who == nil {
			return "", false
		}
		who.Kill()
		return fmt.Sprintf("kill:%s", who.Name), true

	case catalog.StartCooldown:
		remaining := ws.StartCooldown(eff.Tag, eff.Turns)
		return fmt.Sprintf("cooldown:%s=%d", eff.Tag, remaining), true

	case catalog.SetFlag:
		if eff.Flag == "" {
			return "", false
		}
		if who := resolve(ws, parts, eff.Who); who != nil {
			who.Flags.Add(eff.Flag)
			return fmt.Sprintf("flag(%s):+%s", who.Name, eff.Flag), true
		}
		ws.EnvFlags.Add(eff.Flag)
		return fmt.Sprintf("env:+%s", eff.Flag), true

	case catalog.ClearFlag:
		if eff.Flag == "" {
			return "", false
		}
		if who := resolve(ws, parts, eff.Who); who != nil {
			who.Flags.Remove(eff.Flag)
			return fmt.Sprintf("flag(%s):-%s", who.Name, eff.Flag), true
		}
		ws.EnvFlags.Remove(eff.Flag)
		return fmt.Sprintf("env:-%s", eff.Flag), true

	case catalog.Move:
		ws.Move(eff.To)
		return fmt.Sprintf("move:location=%s", ws.Scene.Location), true

	case catalog.SetZone:
		if who := resolve(ws, parts, eff.Who); who != nil {
			who.Zone = eff.Zone
			return fmt.Sprintf("zone(%s)=%s", who.Name, eff.Zone), true
		}
		ws.SetZone(eff.Zone)
		return fmt.Sprintf("zone=%s", eff.Zone), true

	case catalog.SetPrimal:
		who := resolve(ws, parts, eff.Who)
		if who == nil {
			return "", false
		}
		who.Flags.Add(actor.FlagPrimal)
		return fmt.Sprintf("primal(%s)=on", who.Name), true

	case catalog.FleeCheck:
		return "flee:attempt", true

	case catalog.RollCombat:
		a, b := resolve(ws, parts, eff.A), resolve(ws, parts, eff.B)
		if a == nil || b == nil {
			return "", false
		}
		winner, loser := b, a
		if e.coin(combatWinChance) {
			winner, loser = a, b
		}
		if e.coin(combatLethality) {
			loser.Kill()
			return fmt.Sprintf("combat:%s kills %s", winner.Name, loser.Name), true
		}
		loser.Flags.Add(actor.FlagInjured)
		return fmt.Sprintf("combat:%s injures %s", winner.Name, loser.Name), true
	}

	return "", false
}
