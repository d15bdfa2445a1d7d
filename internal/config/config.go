package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Port        string `env:"PORT"        envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL"   envDefault:"info"`
	LogLevel    slog.Level

	// Storage
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"redis"`
	RedisURL       string        `env:"REDIS_URL"       envDefault:"redis://localhost:6379"`
	SQLitePath     string        `env:"SQLITE_PATH"     envDefault:"data/easton.db"`
	DataDir        string        `env:"DATA_DIR"        envDefault:"data"`
	SessionTTL     time.Duration `env:"SESSION_TTL"     envDefault:"24h"`

	// Engine
	Seed               int64         `env:"SEED"`
	MaxAttempts        int           `env:"MAX_ATTEMPTS"         envDefault:"50"`
	UniformDraw        bool          `env:"UNIFORM_DRAW"`
	SinglePhase        bool          `env:"SINGLE_PHASE"`
	RecountEachAttempt bool          `env:"RECOUNT_EACH_ATTEMPT"`
	AutoplayDelay      time.Duration `env:"AUTOPLAY_DELAY"       envDefault:"1500ms"`

	// Headless worker
	WorkerSessions int    `env:"WORKER_SESSIONS"  envDefault:"1"`
	WorkerRoster   string `env:"WORKER_ROSTER"`
	WorkerLocation string `env:"WORKER_LOCATION"`
	WorkerMaxQuiet int    `env:"WORKER_MAX_QUIET" envDefault:"25"` // consecutive no-event rounds before a session counts as stalled

	// API
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the hosts cannot run with.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendRedis, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	if c.AutoplayDelay <= 0 {
		return fmt.Errorf("AUTOPLAY_DELAY must be positive")
	}
	if c.WorkerSessions < 1 {
		return fmt.Errorf("WORKER_SESSIONS must be at least 1, got %d", c.WorkerSessions)
	}
	if c.WorkerMaxQuiet < 1 {
		return fmt.Errorf("WORKER_MAX_QUIET must be at least 1, got %d", c.WorkerMaxQuiet)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
