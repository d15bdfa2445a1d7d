package engine

import (
	"strings"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
)

// ItemToken is the item placeholder in template text.
const ItemToken = "{ITEM}"

// fallbackItem is shown when neither the first participant nor the template names an item.
const fallbackItem = "weapon"

var participantTokens = []string{catalog.TokenA, catalog.TokenB, catalog.TokenC}

// RenderText substitutes participant names and the item placeholder into tmpl's text.
func RenderText(tmpl *catalog.Template, participants []*actor.Character) string {
	text := tmpl.Text
	for i, p := range participants {
		if i >= len(participantTokens) {
			break
		}
		text = strings.ReplaceAll(text, participantTokens[i], p.Name)
	}

	if strings.Contains(text, ItemToken) {
		text = strings.ReplaceAll(text, ItemToken, renderItem(tmpl, participants))
	}
	return text
}

func renderItem(tmpl *catalog.Template, participants []*actor.Character) string {
	if len(participants) > 0 {
		if item := participants[0].Items.First(); item != "" {
			return actor.DisplayItem(item)
		}
	}
	if gate := tmpl.Conditions.ItemsAny; len(gate) > 0 {
		return actor.DisplayItem(gate[0])
	}
	return fallbackItem
}
