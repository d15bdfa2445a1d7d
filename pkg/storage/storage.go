package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

var (
	// ErrSessionNotFound is returned when no world state is stored under an id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRosterNotFound is returned when no roster file matches a name.
	ErrRosterNotFound = errors.New("roster not found")
)

// Storage defines a unified interface for all storage operations.
// Sessions (world state and round feed) live in the backing store; packs and
// rosters are read from the data directory.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations
	SaveWorldState(ctx context.Context, ws *state.WorldState) error
	LoadWorldState(ctx context.Context, id uuid.UUID) (*state.WorldState, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	AppendRound(ctx context.Context, id uuid.UUID, round *engine.Round) error
	LoadFeed(ctx context.Context, id uuid.UUID) ([]*engine.Round, error)

	Library
}

// Library is the read-only, filesystem-backed side of Storage: event packs
// and roster files.
type Library interface {
	// Pack operations
	ListPacks(ctx context.Context) ([]string, error)
	LoadCatalog(ctx context.Context) (catalog.Catalog, error)

	// Roster operations
	ListRosters(ctx context.Context) ([]string, error)
	GetRoster(ctx context.Context, name string) (actor.Roster, error)
}
