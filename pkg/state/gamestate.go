package state

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/easton-heights/pkg/actor"
)

// DefaultRelationship is the relationship between two characters with no recorded pair.
const DefaultRelationship = "strangers"

// RangeAny is the range wildcard accepted by conditions.
const RangeAny = "any"

// Scene is the shared location context of a round.
type Scene struct {
	Location string `json:"location"`
	Zone     string `json:"zone,omitempty"` // Must belong to ZonesByLocation[Location]
	Range    string `json:"range"`          // e.g. "close", "far"
}

// WorldState is the full mutable state of one scenario run.
// The host owns a single instance and passes it into every engine call.
type WorldState struct {
	ID            uuid.UUID         `json:"id"`
	Players       actor.Roster      `json:"players"`
	Relationships map[string]string `json:"relationships,omitempty"` // pair key -> type
	EnvFlags      actor.Tags        `json:"env_flags"`               // e.g. night, rain, fog
	Cooldowns     map[string]int    `json:"cooldowns,omitempty"`     // tag -> remaining turns
	Scene         Scene             `json:"scene"`
	Turn          int               `json:"turn"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewWorldState creates an empty world at the given location.
func NewWorldState(location string) *WorldState {
	ws := &WorldState{
		ID:            uuid.New(),
		Players:       make(actor.Roster, 0),
		Relationships: make(map[string]string),
		EnvFlags:      actor.NewTags(),
		Cooldowns:     make(map[string]int),
		Scene:         Scene{Range: SceneRanges[0]},
		CreatedAt:     time.Now(),
	}
	ws.Move(location)
	return ws
}

// pairKey canonicalises an unordered pair of names.
func pairKey(a, b string) string {
	pair := []string{a, b}
	slices.Sort(pair)
	return strings.Join(pair, "|")
}

// Relationship returns the relationship type between two characters.
func (ws *WorldState) Relationship(a, b string) string {
	if rel, ok := ws.Relationships[pairKey(a, b)]; ok {
		return rel
	}
	return DefaultRelationship
}

// SetRelationship overwrites the relationship between two characters.
func (ws *WorldState) SetRelationship(a, b, relType string) {
	if ws.Relationships == nil {
		ws.Relationships = make(map[string]string)
	}
	ws.Relationships[pairKey(a, b)] = relType
}

// CooldownReady reports whether tag is absent or has reached zero.
func (ws *WorldState) CooldownReady(tag string) bool {
	return ws.Cooldowns[tag] <= 0
}

// StartCooldown raises tag's counter to turns. A longer running cooldown is kept.
// It returns the resulting counter.
func (ws *WorldState) StartCooldown(tag string, turns int) int {
	if ws.Cooldowns == nil {
		ws.Cooldowns = make(map[string]int)
	}
	ws.Cooldowns[tag] = max(ws.Cooldowns[tag], turns)
	return ws.Cooldowns[tag]
}

// TickCooldowns decrements every positive counter by one.
// Counters stop at zero and stay in the map.
func (ws *WorldState) TickCooldowns() {
	for tag, remaining := range ws.Cooldowns {
		if remaining > 0 {
			ws.Cooldowns[tag] = remaining - 1
		}
	}
}

// Move changes the scene location and resets the zone to the location's first zone.
func (ws *WorldState) Move(location string) {
	ws.Scene.Location = location
	ws.Scene.Zone = ""
	if zones := ZonesByLocation[location]; len(zones) > 0 {
		ws.Scene.Zone = zones[0]
	}
}

// SetZone sets the scene zone.
func (ws *WorldState) SetZone(zone string) {
	ws.Scene.Zone = zone
}

// SetRange sets the scene range.
func (ws *WorldState) SetRange(r string) {
	ws.Scene.Range = r
}

// SetEnvFlag turns an environment flag on or off.
func (ws *WorldState) SetEnvFlag(flag string, on bool) {
	if on {
		ws.EnvFlags.Add(flag)
		return
	}
	ws.EnvFlags.Remove(flag)
}

// AliveCount returns the number of living characters.
func (ws *WorldState) AliveCount() int {
	n := 0
	for _, c := range ws.Players {
		if c.Alive {
			n++
		}
	}
	return n
}

// Terminated reports whether fewer than two characters remain alive.
func (ws *WorldState) Terminated() bool {
	return ws.AliveCount() < 2
}

// The methods below satisfy conditionals.StateView.

func (ws *WorldState) GetLocation() string { return ws.Scene.Location }
func (ws *WorldState) GetZone() string     { return ws.Scene.Zone }
func (ws *WorldState) GetRange() string    { return ws.Scene.Range }
func (ws *WorldState) GetTurn() int        { return ws.Turn }

func (ws *WorldState) HasEnvFlag(flag string) bool {
	return ws.EnvFlags.Has(flag)
}

func (ws *WorldState) GetEnvFlags() []string {
	return ws.EnvFlags.Sorted()
}

func (ws *WorldState) GetAliveCount() int {
	return ws.AliveCount()
}

func (ws *WorldState) GetRelationship(a, b string) string {
	return ws.Relationship(a, b)
}
