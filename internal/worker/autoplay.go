package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/easton-heights/pkg/engine"
)

// RollFunc advances a session by one round.
type RollFunc func(ctx context.Context) (*engine.Round, engine.Outcome, error)

// Step is one autoplay iteration as seen by the listener.
type Step struct {
	Round   *engine.Round
	Outcome engine.Outcome
}

// Autoplay drives rounds with a fixed delay until the scenario terminates,
// the listener declines further steps, or Stop is called. A round that
// found no eligible event is reported and play continues.
type Autoplay struct {
	id     string
	roll   RollFunc
	delay  time.Duration
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an autoplay loop bound to parent.
func New(parent context.Context, roll RollFunc, delay time.Duration, log *slog.Logger) *Autoplay {
	ctx, cancel := context.WithCancel(parent)

	return &Autoplay{
		id:     fmt.Sprintf("autoplay-%s", uuid.New().String()[:8]),
		roll:   roll,
		delay:  delay,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start runs the loop, calling emit after every round. It returns nil when
// play ends normally and the roll error otherwise.
func (a *Autoplay) Start(emit func(Step) bool) error {
	a.log.Info("Autoplay starting", "autoplay_id", a.id, "delay", a.delay)
	defer a.cancel()

	ticker := time.NewTicker(a.delay)
	defer ticker.Stop()

	rounds := 0
	for {
		round, outcome, err := a.roll(a.ctx)
		if err != nil {
			a.log.Error("Autoplay round failed", "autoplay_id", a.id, "error", err)
			return fmt.Errorf("autoplay round: %w", err)
		}
		if outcome == engine.OutcomeOK {
			rounds++
		}

		if !emit(Step{Round: round, Outcome: outcome}) {
			a.log.Info("Autoplay stopped by listener", "autoplay_id", a.id, "rounds", rounds)
			return nil
		}
		if outcome == engine.OutcomeInsufficient {
			a.log.Info("Autoplay finished", "autoplay_id", a.id, "rounds", rounds)
			return nil
		}

		select {
		case <-a.ctx.Done():
			a.log.Info("Autoplay shutting down", "autoplay_id", a.id, "rounds", rounds)
			return nil
		case <-ticker.C:
		}
	}
}

// Stop ends the loop after the round in flight.
func (a *Autoplay) Stop() {
	a.log.Info("Autoplay stop requested", "autoplay_id", a.id)
	a.cancel()
}
