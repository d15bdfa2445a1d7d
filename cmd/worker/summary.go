package main

import (
	"encoding/json"

	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// cloneRoster deep-copies r. A nil roster stays nil so the session falls
// back to the starter cast.
func cloneRoster(r actor.Roster) (actor.Roster, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out actor.Roster
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// summarize names the living characters in roster order.
func summarize(s *session.Session) []string {
	var names []string
	s.View(func(ws *state.WorldState) {
		for _, c := range ws.Players.Alive() {
			names = append(names, c.Name)
		}
	})
	return names
}
