package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/common"
	"github.com/ternarybob/genero/internal/queue"
	"github.com/ternarybob/genero/internal/services/providers"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	coordinator *queue.Coordinator
	registry    *providers.Registry
	startedAt   time.Time
	logger      arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(coordinator *queue.Coordinator, registry *providers.Registry, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		coordinator: coordinator,
		registry:    registry,
		startedAt:   time.Now(),
		logger:      logger,
	}
}

// HealthHandler handles GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// VersionHandler handles GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
	})
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	queues := make([]*queue.QueueStatus, 0)
	for _, name := range h.coordinator.Queues() {
		status, err := h.coordinator.GetStatus(r.Context(), name)
		if err != nil {
			h.logger.Error().Err(err).Str("queue", name).Msg("Failed to get queue status")
			WriteError(w, http.StatusInternalServerError, "Failed to get application status")
			return
		}
		queues = append(queues, status)
	}

	available := 0
	entries := h.registry.List()
	for _, entry := range entries {
		if entry.Descriptor.Available {
			available++
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":             common.Version,
		"uptime":              time.Since(h.startedAt).Round(time.Second).String(),
		"queues":              queues,
		"providers":           len(entries),
		"providers_available": available,
	})
}

// NotFoundHandler handles unmatched /api/ routes
func (h *StatusHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found: "+r.URL.Path)
}
