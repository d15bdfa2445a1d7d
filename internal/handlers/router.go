// Package handlers exposes sessions, rounds and the loaded catalog over HTTP.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jwebster45206/easton-heights/internal/config"
	"github.com/jwebster45206/easton-heights/internal/middleware"
	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

// NewRouter wires every API route. Round endpoints are rate limited per client.
func NewRouter(manager *session.Manager, store storage.Storage, cfg *config.Config, log *slog.Logger) http.Handler {
	health := NewHealthHandler(store, manager.Catalog(), log)
	sessions := NewSessionHandler(manager, store, log)
	cat := NewCatalogHandler(store, manager.Catalog(), log)
	autoplay := NewAutoplayHandler(manager, cfg.AutoplayDelay, log)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/health", health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/packs", cat.ListPacks)
		r.Get("/templates", cat.ListTemplates)
		r.Get("/templates/{templateID}", cat.GetTemplate)
		r.Get("/rosters", cat.ListRosters)
		r.Get("/rosters/{name}", cat.GetRoster)
		r.Get("/locations", cat.ListLocations)
		r.Get("/traits", cat.ListTraits)

		r.Post("/sessions", sessions.Create)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", sessions.Get)
			r.Delete("/", sessions.Delete)
			r.With(limiter.Middleware).Post("/rounds", sessions.Roll)
			r.Get("/feed", sessions.Feed)
			r.Patch("/scene", sessions.EditScene)
			r.Post("/characters", sessions.AddCharacter)
			r.Delete("/characters/{name}", sessions.RemoveCharacter)
			r.With(limiter.Middleware).Method(http.MethodGet, "/autoplay", autoplay)
		})
	})

	return r
}
