package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/easton-heights/internal/config"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

// Manager hosts persisted sessions for the API. Every call loads the
// session from storage, mutates it and writes it back.
type Manager struct {
	store   storage.Storage
	catalog catalog.Catalog
	engine  *engine.Engine
	logger  *slog.Logger

	// The engine's random source is shared, so rounds across all sessions
	// run one at a time.
	mu sync.Mutex
}

// NewManager creates a session manager over store.
func NewManager(store storage.Storage, cat catalog.Catalog, eng *engine.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		store:   store,
		catalog: cat,
		engine:  eng,
		logger:  logger,
	}
}

// NewEngine builds an engine from the engine settings in cfg. A zero seed
// seeds from the clock.
func NewEngine(cfg *config.Config, logger *slog.Logger) *engine.Engine {
	return engine.New(engine.NewSource(cfg.Seed), engine.Options{
		MaxAttempts:        cfg.MaxAttempts,
		UniformDraw:        cfg.UniformDraw,
		SinglePhase:        cfg.SinglePhase,
		RecountEachAttempt: cfg.RecountEachAttempt,
	}, logger)
}

// Catalog returns the shared catalog.
func (m *Manager) Catalog() catalog.Catalog {
	return m.catalog
}

// Create starts and stores a new session. A nil roster uses the default
// starter cast; a zero scene keeps the default scene.
func (m *Manager) Create(ctx context.Context, roster actor.Roster, scene SceneEdit) (*Session, error) {
	ws := state.NewDefault()
	if roster != nil {
		ws.Players = roster
	}
	if err := applyScene(ws, scene); err != nil {
		return nil, err
	}

	s, err := New(ws, m.catalog, m.engine, m.logger)
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveWorldState(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	m.logger.Info("Session created",
		"session", ws.ID,
		"roster", len(ws.Players),
		"location", ws.Scene.Location,
		"zone", ws.Scene.Zone,
		"range", ws.Scene.Range)
	return s, nil
}

// Load restores a session and its feed. It returns storage.ErrSessionNotFound
// for unknown ids.
func (m *Manager) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	ws, err := m.store.LoadWorldState(ctx, id)
	if err != nil {
		return nil, err
	}
	feed, err := m.store.LoadFeed(ctx, id)
	if err != nil {
		return nil, err
	}
	return Restore(ws, feed, m.catalog, m.engine, m.logger)
}

// Roll advances the stored session by one round and persists the result.
func (m *Manager) Roll(ctx context.Context, id uuid.UUID) (*Session, *engine.Round, engine.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.Load(ctx, id)
	if err != nil {
		return nil, nil, engine.OutcomeNoEligible, err
	}

	round, outcome := s.Roll()
	if outcome == engine.OutcomeInsufficient {
		return s, nil, outcome, nil
	}

	// A round without an event still ticked cooldowns.
	if err := m.save(ctx, s, round); err != nil {
		return nil, nil, outcome, err
	}
	return s, round, outcome, nil
}

// Update applies a roster or scene edit to a stored session and persists it.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, edit func(s *Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := edit(s); err != nil {
		return nil, err
	}
	if err := m.save(ctx, s, nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes a stored session and its feed.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.store.DeleteSession(ctx, id)
}

func (m *Manager) save(ctx context.Context, s *Session, round *engine.Round) error {
	var err error
	s.View(func(ws *state.WorldState) {
		err = m.store.SaveWorldState(ctx, ws)
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if round != nil {
		if err := m.store.AppendRound(ctx, s.ID(), round); err != nil {
			return fmt.Errorf("failed to store round: %w", err)
		}
	}
	return nil
}
