package engine

import (
	"slices"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/conditionals"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// Outcome classifies the result of a selection or round.
type Outcome int

const (
	// OutcomeOK means an event was selected (and, for rounds, applied).
	OutcomeOK Outcome = iota
	// OutcomeNoEligible means every attempt came up empty. The host may retry.
	OutcomeNoEligible
	// OutcomeInsufficient means fewer than two characters are alive. The scenario is over.
	OutcomeInsufficient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoEligible:
		return "no_eligible_event"
	case OutcomeInsufficient:
		return "insufficient_participants"
	default:
		return "unknown"
	}
}

// Selection is a drawn template with its ordered participants.
type Selection struct {
	Template     *catalog.Template
	Participants []*actor.Character
}

// pickCount prefers duo events and otherwise picks uniformly among the
// participant counts present in the catalog.
func (e *Engine) pickCount(counts []int) int {
	if len(counts) == 0 {
		return 0
	}
	if slices.Contains(counts, 2) {
		return 2
	}
	return counts[e.rng.Intn(len(counts))]
}

// sample returns a uniformly shuffled ordered subset of size n.
func (e *Engine) sample(alive []*actor.Character, n int) []*actor.Character {
	shuffled := slices.Clone(alive)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// Select draws a template and a matching participant tuple.
func (e *Engine) Select(ws *state.WorldState, cat catalog.Catalog) (Selection, Outcome) {
	alive := ws.Players.Alive()
	if len(alive) < 2 {
		return Selection{}, OutcomeInsufficient
	}

	counts := cat.ParticipantCounts()
	if len(counts) == 0 {
		return Selection{}, OutcomeNoEligible
	}

	count := e.pickCount(counts)
	for attempt := 0; attempt < e.opts.maxAttempts(); attempt++ {
		if attempt > 0 && e.opts.RecountEachAttempt {
			count = e.pickCount(counts)
		}
		if len(alive) < count {
			continue
		}

		participants := e.sample(alive, count)
		pool := e.BuildPool(ws, cat, count)
		if !e.opts.SinglePhase {
			pool = filterForTuple(ws, pool, participants)
		}

		tmpl := e.drawWeighted(pool)
		if tmpl == nil {
			continue
		}
		if e.opts.SinglePhase && !conditionals.ParticipantGatesPass(&tmpl.Conditions, ws, participants) {
			e.logger.Debug("Drawn template rejected for tuple", "template", tmpl.ID, "attempt", attempt+1)
			continue
		}

		e.logger.Debug("Selected event",
			"template", tmpl.ID,
			"participants", count,
			"attempt", attempt+1)
		return Selection{Template: tmpl, Participants: participants}, OutcomeOK
	}

	e.logger.Debug("No eligible event", "participants", count, "attempts", e.opts.maxAttempts())
	return Selection{}, OutcomeNoEligible
}
