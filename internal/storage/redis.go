package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for sessions
// and the filesystem for packs and rosters.
type RedisStorage struct {
	files
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL is a
// redis:// URL.
func NewRedisStorage(redisURL, dataDir string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisStorage{
		files:  newFiles(dataDir, logger),
		client: redis.NewClient(opt),
		logger: logger,
		ttl:    ttl,
	}, nil
}

func worldKey(id uuid.UUID) string { return "world:" + id.String() }
func feedKey(id uuid.UUID) string  { return "feed:" + id.String() }

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations

func (r *RedisStorage) SaveWorldState(ctx context.Context, ws *state.WorldState) error {
	data, err := json.Marshal(ws)
	if err != nil {
		r.logger.Error("Failed to marshal world state", "session", ws.ID, "error", err)
		return fmt.Errorf("failed to marshal world state: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, worldKey(ws.ID), data, r.ttl)
	pipe.Expire(ctx, feedKey(ws.ID), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save world state", "session", ws.ID, "error", err)
		return fmt.Errorf("failed to save world state: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadWorldState(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	data, err := r.client.Get(ctx, worldKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrSessionNotFound
		}
		r.logger.Error("Failed to load world state", "session", id, "error", err)
		return nil, fmt.Errorf("failed to load world state: %w", err)
	}

	var ws state.WorldState
	if err := json.Unmarshal(data, &ws); err != nil {
		r.logger.Error("Failed to unmarshal world state", "session", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal world state: %w", err)
	}
	return &ws, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, worldKey(id), feedKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisStorage) AppendRound(ctx context.Context, id uuid.UUID, round *engine.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, feedKey(id), data)
	pipe.Expire(ctx, feedKey(id), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to append round", "session", id, "error", err)
		return fmt.Errorf("failed to append round: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadFeed(ctx context.Context, id uuid.UUID) ([]*engine.Round, error) {
	items, err := r.client.LRange(ctx, feedKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	feed := make([]*engine.Round, 0, len(items))
	for _, item := range items {
		var round engine.Round
		if err := json.Unmarshal([]byte(item), &round); err != nil {
			r.logger.Warn("Skipping unreadable feed entry", "session", id, "error", err)
			continue
		}
		feed = append(feed, &round)
	}
	return feed, nil
}
