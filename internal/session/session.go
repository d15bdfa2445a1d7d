// Package session is the host side of a scenario run: it owns the world
// state, the loaded catalog and the round feed, and drives the engine one
// round at a time.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// MinRoster is the smallest roster a session accepts.
const MinRoster = 2

var (
	// ErrRosterTooSmall is returned when a roster edit would leave fewer than MinRoster characters.
	ErrRosterTooSmall = errors.New("roster must keep at least two characters")
	// ErrCharacterNotFound is returned when a roster edit names nobody.
	ErrCharacterNotFound = errors.New("character not found")
	// ErrDuplicateCharacter is returned when an added character's name is taken.
	ErrDuplicateCharacter = errors.New("character already exists")
	// ErrUnknownLocation is returned for a location outside the map.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrInvalidScene is returned for a zone, range or env flag the map does not offer.
	ErrInvalidScene = errors.New("invalid scene")
)

// SceneEdit changes a session's scene. Empty fields keep the current value.
// A location change lands in the location's first zone unless Zone is set.
type SceneEdit struct {
	Location string
	Zone     string
	Range    string
	EnvFlags map[string]bool // flag -> on/off; flags not named are kept
}

// applyScene validates edit against ws and applies it. On error ws is unchanged.
func applyScene(ws *state.WorldState, edit SceneEdit) error {
	loc := ws.Scene.Location
	if edit.Location != "" {
		if !state.IsLocation(edit.Location) {
			return fmt.Errorf("%w: %q", ErrUnknownLocation, edit.Location)
		}
		loc = edit.Location
	}
	if edit.Zone != "" && !state.HasZone(loc, edit.Zone) {
		return fmt.Errorf("%w: zone %q is not in %s", ErrInvalidScene, edit.Zone, loc)
	}
	if edit.Range != "" && !state.IsSceneRange(edit.Range) {
		return fmt.Errorf("%w: range %q", ErrInvalidScene, edit.Range)
	}
	for flag := range edit.EnvFlags {
		if !slices.Contains(state.EnvFlagOptions, flag) {
			return fmt.Errorf("%w: env flag %q", ErrInvalidScene, flag)
		}
	}

	if edit.Location != "" {
		ws.Move(edit.Location)
	}
	if edit.Zone != "" {
		ws.SetZone(edit.Zone)
	}
	if edit.Range != "" {
		ws.SetRange(edit.Range)
	}
	for flag, on := range edit.EnvFlags {
		ws.SetEnvFlag(flag, on)
	}
	return nil
}

// Session serialises access to one world state. All methods are safe for
// concurrent use; rounds still execute one at a time.
type Session struct {
	mu      sync.Mutex
	world   *state.WorldState
	catalog catalog.Catalog
	engine  *engine.Engine
	feed    []*engine.Round
	cursor  int // index into feed of the entry on display; -1 when empty
	logger  *slog.Logger
}

// New starts a session over ws. The roster must hold at least MinRoster characters.
func New(ws *state.WorldState, cat catalog.Catalog, eng *engine.Engine, logger *slog.Logger) (*Session, error) {
	return Restore(ws, nil, cat, eng, logger)
}

// Restore rebuilds a session from a stored world state and feed.
// The history cursor is placed on the latest round.
func Restore(ws *state.WorldState, feed []*engine.Round, cat catalog.Catalog, eng *engine.Engine, logger *slog.Logger) (*Session, error) {
	if ws == nil {
		return nil, errors.New("world state cannot be nil")
	}
	if len(ws.Players) < MinRoster {
		return nil, fmt.Errorf("%w: got %d", ErrRosterTooSmall, len(ws.Players))
	}
	if eng == nil {
		eng = engine.New(nil, engine.Options{}, logger)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		world:   ws,
		catalog: cat,
		engine:  eng,
		feed:    slices.Clone(feed),
		cursor:  len(feed) - 1,
		logger:  logger.With("session", ws.ID.String()),
	}, nil
}

// ID returns the world state id.
func (s *Session) ID() uuid.UUID {
	return s.world.ID
}

// Roll advances one round. A completed round is appended to the feed and
// the history cursor jumps to it.
func (s *Session) Roll() (*engine.Round, engine.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, outcome := s.engine.AdvanceRound(s.world, s.catalog)
	switch outcome {
	case engine.OutcomeOK:
		s.feed = append(s.feed, round)
		s.cursor = len(s.feed) - 1
	case engine.OutcomeNoEligible:
		s.logger.Info("No eligible event this round", "turn", s.world.Turn)
	case engine.OutcomeInsufficient:
		s.logger.Info("Scenario over", "turn", s.world.Turn, "alive", s.world.AliveCount())
	}
	return round, outcome
}

// Current returns the round under the history cursor, or nil before the first round.
func (s *Session) Current() *engine.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Session) current() *engine.Round {
	if s.cursor < 0 || s.cursor >= len(s.feed) {
		return nil
	}
	return s.feed[s.cursor]
}

// Back moves the history cursor one round earlier and returns it.
// At the first round it stays put.
func (s *Session) Back() *engine.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor > 0 {
		s.cursor--
	}
	return s.current()
}

// Forward moves the history cursor one round later and returns it.
// At the latest round it stays put.
func (s *Session) Forward() *engine.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < len(s.feed)-1 {
		s.cursor++
	}
	return s.current()
}

// Position returns the 1-based cursor position and the feed length.
func (s *Session) Position() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor + 1, len(s.feed)
}

// Feed returns a copy of the completed rounds, oldest first.
func (s *Session) Feed() []*engine.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.feed)
}

// AddCharacter adds a living character to the roster.
func (s *Session) AddCharacter(c *actor.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c != nil && s.world.Players.Find(c.Name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateCharacter, c.Name)
	}
	if err := s.world.Players.Add(c); err != nil {
		return err
	}
	s.logger.Info("Character added", "name", c.Name, "roster", len(s.world.Players))
	return nil
}

// RemoveCharacter drops a character from the roster, refusing to go below MinRoster.
func (s *Session) RemoveCharacter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.world.Players.Find(name) == nil {
		return fmt.Errorf("%w: %s", ErrCharacterNotFound, name)
	}
	if len(s.world.Players) <= MinRoster {
		return ErrRosterTooSmall
	}
	s.world.Players.Remove(name)
	s.logger.Info("Character removed", "name", name, "roster", len(s.world.Players))
	return nil
}

// EditScene changes the location, zone, range or env flags.
func (s *Session) EditScene(edit SceneEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := applyScene(s.world, edit); err != nil {
		return err
	}
	s.logger.Info("Scene changed",
		"location", s.world.Scene.Location,
		"zone", s.world.Scene.Zone,
		"range", s.world.Scene.Range,
		"env", s.world.EnvFlags.Sorted())
	return nil
}

// Terminated reports whether fewer than two characters remain alive.
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Terminated()
}

// View runs fn with the world state under the session lock. fn must not
// keep the pointer.
func (s *Session) View(fn func(ws *state.WorldState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.world)
}

// CatalogSize returns the number of loaded templates.
func (s *Session) CatalogSize() int {
	return len(s.catalog)
}
