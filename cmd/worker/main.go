package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jwebster45206/easton-heights/internal/config"
	"github.com/jwebster45206/easton-heights/internal/logger"
	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/internal/storage"
	"github.com/jwebster45206/easton-heights/internal/worker"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/engine"
)

// The worker plays WORKER_SESSIONS sessions to the end without a client,
// persisting every round, and logs who survived.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Easton Heights Worker",
		"environment", cfg.Environment,
		"storage", cfg.StorageBackend,
		"sessions", cfg.WorkerSessions)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	store, err := storage.Open(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()

	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	cat, err := store.LoadCatalog(storageCtx)
	if err != nil {
		log.Error("Failed to load event packs", "error", err)
		os.Exit(1)
	}
	if len(cat) == 0 {
		log.Error("No event templates loaded", "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	var roster actor.Roster
	if cfg.WorkerRoster != "" {
		roster, err = store.GetRoster(storageCtx, cfg.WorkerRoster)
		if err != nil {
			log.Error("Failed to load roster", "roster", cfg.WorkerRoster, "error", err)
			os.Exit(1)
		}
	}

	manager := session.NewManager(store, cat, session.NewEngine(cfg, log), log)

	// SIGINT/SIGTERM stop every autoplay after its round in flight.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := range cfg.WorkerSessions {
		// Sessions must not share character pointers.
		r, err := cloneRoster(roster)
		if err != nil {
			log.Error("Failed to copy roster", "error", err)
			os.Exit(1)
		}
		s, err := manager.Create(ctx, r, session.SceneEdit{Location: cfg.WorkerLocation})
		if err != nil {
			log.Error("Failed to create session", "error", err)
			os.Exit(1)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := play(ctx, manager, s, cfg.AutoplayDelay, cfg.WorkerMaxQuiet, log.With("worker", i))
			switch {
			case errors.Is(err, errStalled):
				log.Warn("Session stalled", "session", s.ID(), "max_quiet", cfg.WorkerMaxQuiet)
			case err != nil:
				log.Error("Session failed", "session", s.ID(), "error", err)
			}
		}()
	}

	log.Info("Worker started, playing sessions...")
	wg.Wait()
	log.Info("Worker exited")
}

// errStalled reports a session that went maxQuiet rounds in a row without an
// eligible event while two or more characters were still alive.
var errStalled = errors.New("no eligible event for too many rounds")

// play runs one session to the end and logs a summary.
func play(ctx context.Context, manager *session.Manager, s *session.Session, delay time.Duration, maxQuiet int, log *slog.Logger) error {
	id := s.ID()
	roll := func(ctx context.Context) (*engine.Round, engine.Outcome, error) {
		_, round, outcome, err := manager.Roll(ctx, id)
		return round, outcome, err
	}

	rounds, quiet, streak := 0, 0, 0
	stalled := false
	ap := worker.New(ctx, roll, delay, log)
	err := ap.Start(func(step worker.Step) bool {
		switch step.Outcome {
		case engine.OutcomeOK:
			rounds++
			streak = 0
			log.Debug("Round", "session", id, "turn", step.Round.Turn, "template", step.Round.TemplateID, "text", step.Round.Text)
		case engine.OutcomeNoEligible:
			quiet++
			streak++
			if streak >= maxQuiet {
				stalled = true
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	// Reload for the final roster; an interrupted run reports where it stopped.
	final, err := manager.Load(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed to load finished session: %w", err)
	}
	summary := summarize(final)
	log.Info("Session finished",
		"session", id,
		"rounds", rounds,
		"quiet_rounds", quiet,
		"terminated", final.Terminated(),
		"stalled", stalled,
		"survivors", summary)
	if stalled {
		return errStalled
	}
	if !final.Terminated() && ctx.Err() != nil {
		return errors.New("interrupted before the scenario ended")
	}
	return nil
}
