package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/easton-heights/pkg/catalog"
)

// Pinger is the storage capability the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Components map[string]any `json:"components"`
}

type HealthHandler struct {
	store   Pinger
	catalog catalog.Catalog
	logger  *slog.Logger
}

func NewHealthHandler(store Pinger, cat catalog.Catalog, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		catalog: cat,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]any)
	overallStatus := "healthy"

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}

	// An empty catalog is reported but does not degrade the service:
	// rounds still run and come back with no eligible event.
	catalogStatus := "healthy"
	if len(h.catalog) == 0 {
		catalogStatus = "empty"
	}
	components["catalog"] = map[string]any{
		"status":    catalogStatus,
		"templates": len(h.catalog),
		"counts":    h.catalog.ParticipantCounts(),
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "easton-heights",
		Components: components,
	})
}
