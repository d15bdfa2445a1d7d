package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

// MockStorage is an in-memory Storage used by tests and the memory backend.
type MockStorage struct {
	mu        sync.RWMutex
	worlds    map[uuid.UUID]*state.WorldState
	feeds     map[uuid.UUID][]*engine.Round
	packs     map[string]catalog.Catalog
	packOrder []string
	rosters   map[string]actor.Roster
	pingError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		worlds:  make(map[uuid.UUID]*state.WorldState),
		feeds:   make(map[uuid.UUID][]*engine.Round),
		packs:   make(map[string]catalog.Catalog),
		rosters: make(map[string]actor.Roster),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveWorldState(ctx context.Context, ws *state.WorldState) error {
	if ws == nil {
		return errors.New("world state cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds[ws.ID] = ws
	return nil
}

func (m *MockStorage) LoadWorldState(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, exists := m.worlds[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return ws, nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.worlds, id)
	delete(m.feeds, id)
	return nil
}

func (m *MockStorage) AppendRound(ctx context.Context, id uuid.UUID, round *engine.Round) error {
	if round == nil {
		return errors.New("round cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[id] = append(m.feeds[id], round)
	return nil
}

func (m *MockStorage) LoadFeed(ctx context.Context, id uuid.UUID) ([]*engine.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.feeds[id]), nil
}

func (m *MockStorage) ListPacks(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.packOrder), nil
}

// LoadCatalog merges the added packs in the order they were added.
func (m *MockStorage) LoadCatalog(ctx context.Context) (catalog.Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cats := make([]catalog.Catalog, 0, len(m.packOrder))
	for _, name := range m.packOrder {
		cats = append(cats, m.packs[name])
	}
	return catalog.Merge(cats...), nil
}

// AddPack adds a pack to the mock storage (for testing)
func (m *MockStorage) AddPack(name string, cat catalog.Catalog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.packs[name]; !exists {
		m.packOrder = append(m.packOrder, name)
	}
	m.packs[name] = cat
}

func (m *MockStorage) ListRosters(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, 0, len(m.rosters))
	for name := range m.rosters {
		result = append(result, name)
	}
	slices.Sort(result)
	return result, nil
}

func (m *MockStorage) GetRoster(ctx context.Context, name string) (actor.Roster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, exists := m.rosters[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRosterNotFound, name)
	}
	return r, nil
}

// AddRoster adds a roster to the mock storage (for testing)
func (m *MockStorage) AddRoster(name string, r actor.Roster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosters[name] = r
}
