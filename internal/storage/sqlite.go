package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

// SQLiteStorage keeps sessions in a local SQLite file. Sessions do not expire.
type SQLiteStorage struct {
	files
	conn   *sqlx.DB
	logger *slog.Logger
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens or creates the database at path. ":memory:" gives
// a private in-memory database.
func NewSQLiteStorage(path, dataDir string, logger *slog.Logger) (*SQLiteStorage, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStorage{
		files:  newFiles(dataDir, logger),
		conn:   conn,
		logger: logger,
	}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS worlds (
		id TEXT PRIMARY KEY,
		turn INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		template_id TEXT NOT NULL,
		round_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStorage) SaveWorldState(ctx context.Context, ws *state.WorldState) error {
	data, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("failed to marshal world state: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO worlds (id, turn, alive, state_json, updated_at) VALUES (?, ?, ?, ?, ?)`,
		ws.ID.String(), ws.Turn, ws.AliveCount(), string(data), time.Now(),
	)
	if err != nil {
		s.logger.Error("Failed to save world state", "session", ws.ID, "error", err)
		return fmt.Errorf("failed to save world state: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadWorldState(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	var data string
	err := s.conn.GetContext(ctx, &data, "SELECT state_json FROM worlds WHERE id = ?", id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load world state: %w", err)
	}

	var ws state.WorldState
	if err := json.Unmarshal([]byte(data), &ws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal world state: %w", err)
	}
	return &ws, nil
}

func (s *SQLiteStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM rounds WHERE session_id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM worlds WHERE id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete world state: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStorage) AppendRound(ctx context.Context, id uuid.UUID, round *engine.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		"INSERT INTO rounds (session_id, turn, template_id, round_json) VALUES (?, ?, ?, ?)",
		id.String(), round.Turn, round.TemplateID, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to append round: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadFeed(ctx context.Context, id uuid.UUID) ([]*engine.Round, error) {
	var rows []string
	err := s.conn.SelectContext(ctx, &rows,
		"SELECT round_json FROM rounds WHERE session_id = ? ORDER BY id ASC", id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	feed := make([]*engine.Round, 0, len(rows))
	for _, row := range rows {
		var round engine.Round
		if err := json.Unmarshal([]byte(row), &round); err != nil {
			s.logger.Warn("Skipping unreadable feed entry", "session", id, "error", err)
			continue
		}
		feed = append(feed, &round)
	}
	return feed, nil
}
