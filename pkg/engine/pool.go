package engine

import (
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/conditionals"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// Candidate is a template in a pool together with its draw weight.
type Candidate struct {
	Template *catalog.Template
	Weight   float64
}

// IsEligible reports whether tmpl may run with the given ordered participants.
func IsEligible(ws *state.WorldState, tmpl *catalog.Template, participants []*actor.Character) bool {
	if len(participants) != tmpl.Participants {
		return false
	}
	return conditionals.SceneGatesPass(&tmpl.Conditions, ws) &&
		conditionals.ParticipantGatesPass(&tmpl.Conditions, ws, participants)
}

// BuildPool lists the templates for count that pass the scene-level gates.
// Participant gates are left for the tuple check in Select.
func (e *Engine) BuildPool(ws *state.WorldState, cat catalog.Catalog, count int) []Candidate {
	var pool []Candidate
	for _, tmpl := range cat {
		if tmpl.Participants != count {
			continue
		}
		if !conditionals.SceneGatesPass(&tmpl.Conditions, ws) {
			continue
		}
		weight := tmpl.EffectiveWeight()
		if e.opts.UniformDraw {
			weight = 1
		}
		pool = append(pool, Candidate{Template: tmpl, Weight: weight})
	}
	return pool
}

// filterForTuple keeps the candidates whose participant gates hold.
func filterForTuple(ws *state.WorldState, pool []Candidate, participants []*actor.Character) []Candidate {
	var kept []Candidate
	for _, c := range pool {
		if conditionals.ParticipantGatesPass(&c.Template.Conditions, ws, participants) {
			kept = append(kept, c)
		}
	}
	return kept
}

// drawWeighted picks a candidate with probability proportional to its weight.
func (e *Engine) drawWeighted(pool []Candidate) *catalog.Template {
	if len(pool) == 0 {
		return nil
	}
	total := 0.0
	for _, c := range pool {
		total += c.Weight
	}
	r := e.rng.Float64() * total
	for _, c := range pool {
		if r < c.Weight {
			return c.Template
		}
		r -= c.Weight
	}
	return pool[len(pool)-1].Template
}
