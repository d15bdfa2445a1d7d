package conditionals

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Conditions are the eligibility gates of an event template.
// Every unset field is "no constraint".
type Conditions struct {
	Relationship      string   `json:"relationship,omitempty"`      // Required type between {A} and {B}
	RequiresTraitsAny []string `json:"requiresTraitsAny,omitempty"` // {A} holds at least one
	ForbidsTraitsAny  []string `json:"forbidsTraitsAny,omitempty"`  // {A} holds none
	ItemsAny          []string `json:"itemsAny,omitempty"`          // {A} holds at least one item/class tag
	FlagsAny          []string `json:"flagsAny,omitempty"`          // At least one env flag is set
	LocationsAny      []string `json:"locationsAny,omitempty"`
	ZoneAny           []string `json:"zoneAny,omitempty"`
	Range             string   `json:"range,omitempty"` // "any" matches every range
	CooldownTag       string   `json:"cooldownTag,omitempty"`
	When              string   `json:"when,omitempty"` // Boolean expression over the scene, see ExprEnv

	program *vm.Program
}

// StateView is the read-only world view the gates need.
// It avoids an import cycle with the state package.
type StateView interface {
	GetLocation() string
	GetZone() string
	GetRange() string
	GetTurn() int
	HasEnvFlag(flag string) bool
	GetEnvFlags() []string
	GetAliveCount() int
	GetRelationship(a, b string) string
	CooldownReady(tag string) bool
}

// Participant is the view of a tuple member the gates need.
type Participant interface {
	GetName() string
	HasTrait(trait string) bool
	HasItem(item string) bool
}

// ExprEnv is the environment a "when" expression is evaluated against.
type ExprEnv struct {
	Location string   `expr:"location"`
	Zone     string   `expr:"zone"`
	Range    string   `expr:"range"`
	Turn     int      `expr:"turn"`
	Alive    int      `expr:"alive"`
	Env      []string `expr:"env"`
}

// Compile prepares the "when" expression. It must be called once before
// evaluation; catalog loading does this and treats a failure as fatal.
func (c *Conditions) Compile() error {
	if c.When == "" {
		c.program = nil
		return nil
	}
	program, err := expr.Compile(c.When, expr.Env(ExprEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("invalid when expression %q: %w", c.When, err)
	}
	c.program = program
	return nil
}

// HasParticipantGates reports whether any gate depends on the participant tuple.
func (c *Conditions) HasParticipantGates() bool {
	return c.Relationship != "" || len(c.RequiresTraitsAny) > 0 ||
		len(c.ForbidsTraitsAny) > 0 || len(c.ItemsAny) > 0
}
