package engine

import (
	"time"

	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// Round is the feed entry of a completed round.
type Round struct {
	Turn         int       `json:"turn"`
	TemplateID   string    `json:"template_id"`
	Category     string    `json:"category,omitempty"`
	Text         string    `json:"text"`
	Participants []string  `json:"participants"`
	Trace        []string  `json:"trace"`
	At           time.Time `json:"at"`
}

// AdvanceRound runs one round: cooldowns tick, an event is selected, its
// effects are applied and its text rendered. A nil round comes back with
// OutcomeNoEligible or OutcomeInsufficient.
func (e *Engine) AdvanceRound(ws *state.WorldState, cat catalog.Catalog) (*Round, Outcome) {
	if ws.Terminated() {
		return nil, OutcomeInsufficient
	}

	ws.TickCooldowns()

	sel, outcome := e.Select(ws, cat)
	if outcome != OutcomeOK {
		return nil, outcome
	}

	// Render before effects so the text names the tuple as it was drawn.
	text := RenderText(sel.Template, sel.Participants)
	trace := e.ApplyEffects(ws, sel.Template, sel.Participants)

	names := make([]string, len(sel.Participants))
	for i, p := range sel.Participants {
		names[i] = p.Name
	}

	ws.Turn++
	ws.UpdatedAt = time.Now()

	e.logger.Debug("Round complete",
		"turn", ws.Turn,
		"template", sel.Template.ID,
		"participants", names,
		"effects", len(trace),
		"alive", ws.AliveCount())

	return &Round{
		Turn:         ws.Turn,
		TemplateID:   sel.Template.ID,
		Category:     sel.Template.Category,
		Text:         text,
		Participants: names,
		Trace:        trace,
		At:           ws.UpdatedAt,
	}, OutcomeOK
}
