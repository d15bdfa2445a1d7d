package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/state"
	"github.com/jwebster45206/easton-heights/pkg/storage"
)

type PacksResponse struct {
	Packs     []string `json:"packs"`
	Templates int      `json:"templates"`
}

type LocationResponse struct {
	Name  string   `json:"name"`
	Zones []string `json:"zones"`
}

// CatalogHandler serves the loaded catalog and the data directory listings.
type CatalogHandler struct {
	store   storage.Storage
	catalog catalog.Catalog
	logger  *slog.Logger
}

func NewCatalogHandler(store storage.Storage, cat catalog.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		store:   store,
		catalog: cat,
		logger:  logger,
	}
}

// ListPacks handles GET /v1/packs.
func (h *CatalogHandler) ListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := h.store.ListPacks(r.Context())
	if err != nil {
		h.logger.Error("Failed to list packs", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list packs")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, PacksResponse{Packs: packs, Templates: len(h.catalog)})
}

// ListTemplates handles GET /v1/templates. The category query parameter
// filters case-insensitively.
func (h *CatalogHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	out := make(catalog.Catalog, 0, len(h.catalog))
	for _, t := range h.catalog {
		if category == "" || strings.EqualFold(t.Category, category) {
			out = append(out, t)
		}
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// GetTemplate handles GET /v1/templates/{templateID}.
func (h *CatalogHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t := h.catalog.Find(chi.URLParam(r, "templateID"))
	if t == nil {
		writeError(w, h.logger, http.StatusNotFound, "Template not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, t)
}

// ListRosters handles GET /v1/rosters.
func (h *CatalogHandler) ListRosters(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.store.ListRosters(r.Context())
	if err != nil {
		h.logger.Error("Failed to list rosters", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list rosters")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rosters)
}

// GetRoster handles GET /v1/rosters/{name}.
func (h *CatalogHandler) GetRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.store.GetRoster(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, storage.ErrRosterNotFound) {
		writeError(w, h.logger, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to load roster", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load roster")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, roster)
}

// ListLocations handles GET /v1/locations.
func (h *CatalogHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	out := make([]LocationResponse, 0, len(state.Locations))
	for _, loc := range state.Locations {
		out = append(out, LocationResponse{Name: loc, Zones: state.ZonesByLocation[loc]})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// ListTraits handles GET /v1/traits.
func (h *CatalogHandler) ListTraits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, actor.Traits)
}
