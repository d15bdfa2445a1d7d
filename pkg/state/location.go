package state

import (
	"slices"

	"github.com/jwebster45206/easton-heights/pkg/actor"
)

// Locations is the fixed set of Easton Heights locations, in display order.
var Locations = []string{
	"High Buildings", "Medium Buildings", "Old Mall", "Old Industry", "Old Warehouse", "Old School",
	"Old Hospital", "Subway Station", "Suburb District", "Big Outlet", "Dense Forest", "Deep Lake", "Botafogo Stadium",
}

// ZonesByLocation lists each location's zones. The first zone is where a move lands.
var ZonesByLocation = map[string][]string{
	"High Buildings":   {"rooftop", "stairwell", "maintenance room", "elevator corridor", "balcony", "lobby"},
	"Medium Buildings": {"rooftop", "stairwell", "lobby", "maintenance room", "balcony"},
	"Old Mall":         {"food court", "service corridor", "escalator", "loading bay", "cinema hall"},
	"Old Industry":     {"catwalk", "boiler room", "kiln floor", "warehouse bay", "control room"},
	"Old Warehouse":    {"loading dock", "stack aisles", "office nook", "mezzanine"},
	"Old School":       {"hallway", "gym", "science lab", "staircase", "cafeteria"},
	"Old Hospital":     {"ward", "basement", "operating room", "morgue", "corridor"},
	"Subway Station":   {"platform", "service tunnel", "tracks", "ticket hall", "maintenance alcove"},
	"Suburb District":  {"alley", "empty lot", "backyard", "rooftop shed", "street corner"},
	"Big Outlet":       {"parking deck", "main corridor", "service ramp", "storage cage"},
	"Dense Forest":     {"ravine", "root tangle", "mud hollow", "clearing"},
	"Deep Lake":        {"pier", "slippery rock", "shallows"},
	"Botafogo Stadium": {"stands", "locker tunnel", "dugout", "concourse"},
}

// SceneRanges are the ranges a scene can be at.
var SceneRanges = []string{"close", "far"}

// Ranges are the range values a condition may name.
var Ranges = []string{"close", "far", RangeAny}

// EnvFlagOptions are the environment flags a host can toggle directly.
var EnvFlagOptions = []string{"night", "rain", "fog"}

// IsLocation reports whether loc is a known location.
func IsLocation(loc string) bool {
	_, ok := ZonesByLocation[loc]
	return ok
}

// HasZone reports whether zone belongs to loc.
func HasZone(loc, zone string) bool {
	return slices.Contains(ZonesByLocation[loc], zone)
}

// IsSceneRange reports whether r is a range a scene can be at.
func IsSceneRange(r string) bool {
	return slices.Contains(SceneRanges, r)
}

// NewDefault builds the starter scenario: six characters in the Old Mall food court.
func NewDefault() *WorldState {
	ws := NewWorldState("Old Mall")
	ws.Players = actor.Roster{
		actor.New("Ana", []string{"Ninja", "Aware"}, []string{"Rope"}),
		actor.New("Beto", []string{"Shooter"}, []string{"class:firearm:smg", "scope"}),
		actor.New("Carla", []string{"Genius", "Devious"}, []string{"Tear gas grenade"}),
		actor.New("Diego", []string{"Fighter"}, []string{"class:melee:blunt"}),
		actor.New("Eva", []string{"Runner", "Attractive"}, nil),
		actor.New("Felipe", []string{"Caveman", "Indomitable"}, nil),
	}
	return ws
}
