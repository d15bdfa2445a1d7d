package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/easton-heights/pkg/actor"
)

// Step actions
const (
	ActionRoll     = "roll"     // POST /rounds, Count times (default 1)
	ActionAutoplay = "autoplay" // stream rounds until finished or Count rounds
	ActionAdd      = "add"      // POST /characters with Character
	ActionRemove   = "remove"   // DELETE /characters/{Name}
	ActionGet      = "get"      // GET the session only
	ActionScene    = "scene"    // PATCH /scene with Scene
)

// TestSuite defines a complete integration test scenario.
// It either holds Steps, or a list of Cases to run in sequence.
type TestSuite struct {
	Name       string             `json:"name"`
	Roster     string             `json:"roster,omitempty"`
	Characters []*actor.Character `json:"characters,omitempty"`
	Location   string             `json:"location,omitempty"`
	Zone       string             `json:"zone,omitempty"`
	Range      string             `json:"range,omitempty"`
	EnvFlags   []string           `json:"env_flags,omitempty"`
	Steps      []TestStep         `json:"steps,omitempty"`
	Cases      []string           `json:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one action against the session and its expected outcome.
type TestStep struct {
	Name         string           `json:"name,omitempty"`
	Action       string           `json:"action"`
	Count        int              `json:"count,omitempty"`
	Character    *actor.Character `json:"character,omitempty"`
	Target       string           `json:"target,omitempty"` // Character name for remove
	Scene        *SceneChange     `json:"scene,omitempty"`
	Expectations Expectations     `json:"expect"`
}

// SceneChange is the body of a scene step.
type SceneChange struct {
	Location string          `json:"location,omitempty"`
	Zone     string          `json:"zone,omitempty"`
	Range    string          `json:"range,omitempty"`
	EnvFlags map[string]bool `json:"env_flags,omitempty"`
}

// Expectations are checked against the response and the session after a step.
type Expectations struct {
	Status         *int     `json:"status,omitempty"`  // HTTP status of the last request
	Outcome        string   `json:"outcome,omitempty"` // Outcome of the last roll
	Turn           *int     `json:"turn,omitempty"`
	MinTurn        *int     `json:"min_turn,omitempty"`
	Rounds         *int     `json:"rounds,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Range          *string  `json:"range,omitempty"`
	Alive          *int     `json:"alive,omitempty"`
	MaxAlive       *int     `json:"max_alive,omitempty"`
	Terminated     *bool    `json:"terminated,omitempty"`
	RosterContains []string `json:"roster_contains,omitempty"`
	RosterExcludes []string `json:"roster_excludes,omitempty"`
	TextContains   []string `json:"text_contains,omitempty"` // Text of the latest round
	Finished       *bool    `json:"finished,omitempty"`      // Autoplay stream ended with "finished"
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Text     string // Latest round text after the step
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID
}
