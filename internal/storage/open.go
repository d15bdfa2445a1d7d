package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/easton-heights/internal/config"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

// Open builds the configured backend. The memory backend is an in-memory
// SQLite database.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		rs, err := NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, logger)
		if err != nil {
			return nil, err
		}
		if err := rs.WaitForConnection(ctx); err != nil {
			rs.Close()
			return nil, err
		}
		return rs, nil
	case config.BackendSQLite:
		return NewSQLiteStorage(cfg.SQLitePath, cfg.DataDir, logger)
	case config.BackendMemory:
		return NewSQLiteStorage(":memory:", cfg.DataDir, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
