package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jwebster45206/easton-heights/internal/logger"
	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/internal/worker"
	"github.com/jwebster45206/easton-heights/pkg/engine"
)

const autoplayWriteWait = 10 * time.Second

// Autoplay message types
const (
	MessageRound    = "round"
	MessageNoEvent  = "no_event"
	MessageFinished = "finished"
	MessageError    = "error"
)

// AutoplayMessage is one frame of the autoplay stream.
type AutoplayMessage struct {
	Type    string        `json:"type"`
	Outcome string        `json:"outcome,omitempty"`
	Round   *engine.Round `json:"round,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// AutoplayHandler streams rounds over a websocket until the scenario ends.
// Any message from the client, or closing the socket, stops play.
type AutoplayHandler struct {
	manager  *session.Manager
	delay    time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewAutoplayHandler(manager *session.Manager, delay time.Duration, logger *slog.Logger) *AutoplayHandler {
	return &AutoplayHandler{
		manager: manager,
		delay:   delay,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *AutoplayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}
	log := logger.WithSession(h.logger, id.String())

	// Fail before upgrading so plain HTTP clients see the status.
	if _, err := h.manager.Load(r.Context(), id); err != nil {
		writeSessionError(w, log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ap := worker.New(r.Context(), func(ctx context.Context) (*engine.Round, engine.Outcome, error) {
		_, round, outcome, err := h.manager.Roll(ctx, id)
		return round, outcome, err
	}, h.delay, log)

	go func() {
		// Reads only detect a client stop or disconnect.
		_, _, _ = conn.ReadMessage()
		ap.Stop()
	}()

	send := func(msg AutoplayMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(autoplayWriteWait))
		return conn.WriteJSON(msg)
	}

	runErr := ap.Start(func(step worker.Step) bool {
		msg := AutoplayMessage{Outcome: step.Outcome.String(), Round: step.Round}
		switch step.Outcome {
		case engine.OutcomeOK:
			msg.Type = MessageRound
		case engine.OutcomeNoEligible:
			msg.Type = MessageNoEvent
		default:
			msg.Type = MessageFinished
		}
		if err := send(msg); err != nil {
			log.Info("Autoplay client gone", "error", err)
			return false
		}
		return true
	})
	if runErr != nil {
		_ = send(AutoplayMessage{Type: MessageError, Error: "autoplay stopped: storage error"})
	}

	_ = conn.SetWriteDeadline(time.Now().Add(autoplayWriteWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "autoplay ended"))
}
