package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jwebster45206/easton-heights/internal/logger"
	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
	"github.com/jwebster45206/easton-heights/pkg/storage"
	"github.com/jwebster45206/easton-heights/pkg/textfilter"
)

// CreateSessionRequest starts a session. Roster names a roster file;
// Characters gives the cast inline. With neither, the starter cast is used.
type CreateSessionRequest struct {
	Roster     string             `json:"roster,omitempty"`
	Characters []*actor.Character `json:"characters,omitempty"`
	Location   string             `json:"location,omitempty"`
	Zone       string             `json:"zone,omitempty"`
	Range      string             `json:"range,omitempty"`
	EnvFlags   []string           `json:"env_flags,omitempty"` // night, rain, fog
}

// SceneRequest edits a running session's scene. Omitted fields are kept;
// env_flags switches the named flags on or off.
type SceneRequest struct {
	Location string          `json:"location,omitempty"`
	Zone     string          `json:"zone,omitempty"`
	Range    string          `json:"range,omitempty"`
	EnvFlags map[string]bool `json:"env_flags,omitempty"`
}

// SessionResponse is the host's view of a world state.
type SessionResponse struct {
	ID            uuid.UUID         `json:"id"`
	Turn          int               `json:"turn"`
	Scene         state.Scene       `json:"scene"`
	EnvFlags      []string          `json:"env_flags"`
	Players       actor.Roster      `json:"players"`
	Relationships map[string]string `json:"relationships,omitempty"`
	Cooldowns     map[string]int    `json:"cooldowns,omitempty"`
	Alive         int               `json:"alive"`
	Terminated    bool              `json:"terminated"`
	Rounds        int               `json:"rounds"`
	Latest        *engine.Round     `json:"latest,omitempty"`
}

// RoundResponse is the result of one roll.
type RoundResponse struct {
	Outcome string          `json:"outcome"`
	Round   *engine.Round   `json:"round"`
	Session SessionResponse `json:"session"`
}

// FeedResponse is a page of the round feed, oldest first.
type FeedResponse struct {
	Rounds []*engine.Round `json:"rounds"`
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
}

type SessionHandler struct {
	manager *session.Manager
	store   storage.Storage
	names   *textfilter.NameFilter
	logger  *slog.Logger
}

func NewSessionHandler(manager *session.Manager, store storage.Storage, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		store:   store,
		names:   textfilter.NewNameFilter(),
		logger:  logger,
	}
}

func newSessionResponse(s *session.Session) SessionResponse {
	var resp SessionResponse
	s.View(func(ws *state.WorldState) {
		resp = SessionResponse{
			ID:            ws.ID,
			Turn:          ws.Turn,
			Scene:         ws.Scene,
			EnvFlags:      ws.EnvFlags.Sorted(),
			Players:       ws.Players,
			Relationships: ws.Relationships,
			Cooldowns:     ws.Cooldowns,
			Alive:         ws.AliveCount(),
			Terminated:    ws.Terminated(),
		}
	})
	_, resp.Rounds = s.Position()
	resp.Latest = s.Current()
	return resp
}

// sessionID parses the {id} path parameter, writing a 400 on failure.
func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", raw, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return uuid.Nil, false
	}
	return id, true
}

// writeSessionError maps session and storage errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, log *slog.Logger, err error) {
	var unknownTraits *textfilter.UnknownTraitsError
	switch {
	case errors.Is(err, storage.ErrSessionNotFound),
		errors.Is(err, storage.ErrRosterNotFound),
		errors.Is(err, session.ErrCharacterNotFound):
		writeError(w, log, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrRosterTooSmall),
		errors.Is(err, session.ErrDuplicateCharacter):
		writeError(w, log, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrUnknownLocation),
		errors.Is(err, session.ErrInvalidScene),
		errors.Is(err, textfilter.ErrEmptyName),
		errors.Is(err, textfilter.ErrNameTooLong),
		errors.Is(err, textfilter.ErrNameProfanity),
		errors.As(err, &unknownTraits):
		writeError(w, log, http.StatusBadRequest, err.Error())
	default:
		logger.WithError(log, err).Error("Session request failed")
		writeError(w, log, http.StatusInternalServerError, "Internal server error")
	}
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid create session request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Roster != "" && len(req.Characters) > 0 {
		writeError(w, h.logger, http.StatusBadRequest, "Specify either roster or characters, not both")
		return
	}

	var roster actor.Roster
	switch {
	case req.Roster != "":
		loaded, err := h.store.GetRoster(r.Context(), req.Roster)
		if err != nil {
			writeSessionError(w, h.logger, err)
			return
		}
		roster = loaded
	case len(req.Characters) > 0:
		for _, c := range req.Characters {
			if c == nil {
				writeError(w, h.logger, http.StatusBadRequest, "Character cannot be null")
				return
			}
			if err := h.names.CleanCharacter(c); err != nil {
				writeSessionError(w, h.logger, err)
				return
			}
			if err := roster.Add(c); err != nil {
				writeError(w, h.logger, http.StatusBadRequest, err.Error())
				return
			}
		}
	}

	scene := session.SceneEdit{
		Location: req.Location,
		Zone:     req.Zone,
		Range:    req.Range,
	}
	if len(req.EnvFlags) > 0 {
		scene.EnvFlags = make(map[string]bool, len(req.EnvFlags))
		for _, flag := range req.EnvFlags {
			scene.EnvFlags[flag] = true
		}
	}

	s, err := h.manager.Create(r.Context(), roster, scene)
	if err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, newSessionResponse(s))
}

// Get handles GET /v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.manager.Load(r.Context(), id)
	if err != nil {
		writeSessionError(w, logger.WithSession(h.logger, id.String()), err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newSessionResponse(s))
}

// Delete handles DELETE /v1/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	log := logger.WithSession(h.logger, id.String())
	if _, err := h.store.LoadWorldState(r.Context(), id); err != nil {
		writeSessionError(w, log, err)
		return
	}
	if err := h.manager.Delete(r.Context(), id); err != nil {
		writeSessionError(w, log, err)
		return
	}
	log.Info("Session deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Roll handles POST /v1/sessions/{id}/rounds. A finished scenario answers
// 409 with the insufficient_participants outcome.
func (h *SessionHandler) Roll(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	log := logger.WithSession(h.logger, id.String())

	s, round, outcome, err := h.manager.Roll(r.Context(), id)
	if err != nil {
		writeSessionError(w, log, err)
		return
	}

	status := http.StatusOK
	if outcome == engine.OutcomeInsufficient {
		status = http.StatusConflict
	}
	writeJSON(w, log, status, RoundResponse{
		Outcome: outcome.String(),
		Round:   round,
		Session: newSessionResponse(s),
	})
}

// Feed handles GET /v1/sessions/{id}/feed?offset=&limit=.
func (h *SessionHandler) Feed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	offset, err1 := queryInt(r, "offset", 0)
	limit, err2 := queryInt(r, "limit", 0)
	if err := errors.Join(err1, err2); err != nil || offset < 0 || limit < 0 {
		writeError(w, h.logger, http.StatusBadRequest, "offset and limit must be non-negative integers")
		return
	}

	log := logger.WithSession(h.logger, id.String())
	if _, err := h.store.LoadWorldState(r.Context(), id); err != nil {
		writeSessionError(w, log, err)
		return
	}
	feed, err := h.store.LoadFeed(r.Context(), id)
	if err != nil {
		writeSessionError(w, log, err)
		return
	}

	total := len(feed)
	start := min(offset, total)
	end := total
	if limit > 0 {
		end = min(start+limit, total)
	}
	writeJSON(w, log, http.StatusOK, FeedResponse{
		Rounds: feed[start:end],
		Total:  total,
		Offset: start,
	})
}

// AddCharacter handles POST /v1/sessions/{id}/characters.
func (h *SessionHandler) AddCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var c actor.Character
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	log := logger.WithSession(h.logger, id.String())
	if err := h.names.CleanCharacter(&c); err != nil {
		writeSessionError(w, log, err)
		return
	}

	s, err := h.manager.Update(r.Context(), id, func(s *session.Session) error {
		return s.AddCharacter(&c)
	})
	if err != nil {
		writeSessionError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusCreated, newSessionResponse(s))
}

// RemoveCharacter handles DELETE /v1/sessions/{id}/characters/{name}.
func (h *SessionHandler) RemoveCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid character name")
		return
	}
	log := logger.WithSession(h.logger, id.String())

	s, err := h.manager.Update(r.Context(), id, func(s *session.Session) error {
		return s.RemoveCharacter(name)
	})
	if err != nil {
		writeSessionError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, newSessionResponse(s))
}

// EditScene handles PATCH /v1/sessions/{id}/scene.
func (h *SessionHandler) EditScene(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req SceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	log := logger.WithSession(h.logger, id.String())

	s, err := h.manager.Update(r.Context(), id, func(s *session.Session) error {
		return s.EditScene(session.SceneEdit{
			Location: req.Location,
			Zone:     req.Zone,
			Range:    req.Range,
			EnvFlags: req.EnvFlags,
		})
	})
	if err != nil {
		writeSessionError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, newSessionResponse(s))
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
