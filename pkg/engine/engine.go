// Package engine selects eligible events for a round, applies their effects
// to the world state and renders their text.
package engine

import (
	"log/slog"
	"math/rand"
	"time"
)

// DefaultMaxAttempts bounds the resample loop of Select.
const DefaultMaxAttempts = 50

// Coin probabilities for the lethal hit check and combat resolution.
const (
	lethalHitChance = 0.5
	combatWinChance = 0.5
	combatLethality = 0.5
)

// Source is the random capability the engine draws from.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewSource returns a seeded Source. A zero seed uses the current time.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Options tune selection. The zero value is the canonical behaviour:
// weighted draw, two-phase filtering, participant count fixed per call.
type Options struct {
	MaxAttempts int // Resample attempts per Select; 0 means DefaultMaxAttempts

	// UniformDraw ignores template weights.
	UniformDraw bool

	// SinglePhase draws from the scene-filtered pool without first removing
	// candidates whose participant gates fail for the sampled tuple. A drawn
	// template that fails them burns the attempt.
	SinglePhase bool

	// RecountEachAttempt re-picks the participant count on every attempt
	// instead of once per call.
	RecountEachAttempt bool
}

func (o Options) maxAttempts() int {
	if o.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return o.MaxAttempts
}

// Engine runs rounds against a world state. It is not safe for concurrent
// use; hosts run one round at a time.
type Engine struct {
	rng    Source
	opts   Options
	logger *slog.Logger
}

// New creates an engine. A nil rng gets a time-seeded source and a nil
// logger discards output.
func New(rng Source, opts Options, logger *slog.Logger) *Engine {
	if rng == nil {
		rng = NewSource(0)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		rng:    rng,
		opts:   opts,
		logger: logger,
	}
}

// Options returns the engine's selection options.
func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) coin(p float64) bool {
	return e.rng.Float64() < p
}
