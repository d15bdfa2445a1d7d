package main

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/textfilter"
)

const helpText = `Commands:
• /add Name | Trait, Trait | item, item - Add a character
• /remove Name - Remove a character
• /zone name - Move to a zone of the current location
• /range close|far - Set the range
• /flag night|rain|fog - Toggle a condition
• /auto - Toggle autoplay
• /copy - Copy the round on display
• /help - Show this help

Traits: `

// parseAdd builds a character from "Name | traits | items". Traits and
// items are comma separated and optional.
func parseAdd(args string, names *textfilter.NameFilter) (*actor.Character, error) {
	parts := strings.Split(args, "|")
	if len(parts) > 3 {
		return nil, fmt.Errorf("usage: /add Name | Trait, Trait | item, item")
	}

	var traits, items []string
	if len(parts) > 1 {
		traits = splitList(parts[1])
	}
	if len(parts) > 2 {
		items = splitList(parts[2])
	}

	c := actor.New(parts[0], traits, items)
	if err := names.CleanCharacter(c); err != nil {
		return nil, err
	}
	return c, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
