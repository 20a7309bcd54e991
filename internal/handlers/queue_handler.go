package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/models"
	"github.com/ternarybob/genero/internal/queue"
)

// DefaultCleanGrace is applied when a clean request omits the grace period
const DefaultCleanGrace = time.Hour

// QueueHandler handles HTTP requests for queue management
type QueueHandler struct {
	coordinator *queue.Coordinator
	logger      arbor.ILogger
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(coordinator *queue.Coordinator, logger arbor.ILogger) *QueueHandler {
	return &QueueHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// ListQueuesHandler handles GET /api/queues
func (h *QueueHandler) ListQueuesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	statuses := make([]*queue.QueueStatus, 0)
	for _, name := range h.coordinator.Queues() {
		status, err := h.coordinator.GetStatus(r.Context(), name)
		if err != nil {
			h.logger.Error().Err(err).Str("queue", name).Msg("Failed to get queue status")
			WriteError(w, http.StatusInternalServerError, "Failed to get queue status")
			return
		}
		statuses = append(statuses, status)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(statuses),
		"queues": statuses,
	})
}

// GetQueueHandler handles GET /api/queues/{name}
func (h *QueueHandler) GetQueueHandler(w http.ResponseWriter, r *http.Request, queueName string) {
	status, err := h.coordinator.GetStatus(r.Context(), queueName)
	if err != nil {
		if errors.Is(err, models.ErrUnknownQueue) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("queue", queueName).Msg("Failed to get queue status")
		WriteError(w, http.StatusInternalServerError, "Failed to get queue status")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// PauseHandler handles POST /api/queues/{name}/pause
func (h *QueueHandler) PauseHandler(w http.ResponseWriter, r *http.Request, queueName string) {
	if err := h.coordinator.Pause(queueName); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteSuccess(w, fmt.Sprintf("Queue %s paused", queueName))
}

// ResumeHandler handles POST /api/queues/{name}/resume
func (h *QueueHandler) ResumeHandler(w http.ResponseWriter, r *http.Request, queueName string) {
	if err := h.coordinator.Resume(queueName); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteSuccess(w, fmt.Sprintf("Queue %s resumed", queueName))
}

// RetryFailedHandler handles POST /api/queues/{name}/retry-failed
func (h *QueueHandler) RetryFailedHandler(w http.ResponseWriter, r *http.Request, queueName string) {
	requeued, err := h.coordinator.RetryFailed(r.Context(), queueName)
	if err != nil {
		if errors.Is(err, models.ErrUnknownQueue) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("queue", queueName).Msg("Failed to retry failed jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to retry failed jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"queue":    queueName,
		"requeued": requeued,
	})
}

// CleanHandler handles POST /api/queues/{name}/clean?grace=<duration>
func (h *QueueHandler) CleanHandler(w http.ResponseWriter, r *http.Request, queueName string) {
	grace := DefaultCleanGrace
	if graceStr := r.URL.Query().Get("grace"); graceStr != "" {
		parsed, err := time.ParseDuration(graceStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid grace duration: "+graceStr)
			return
		}
		grace = parsed
	}

	removed, err := h.coordinator.Clean(r.Context(), queueName, grace)
	if err != nil {
		if errors.Is(err, models.ErrUnknownQueue) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("queue", queueName).Msg("Failed to clean queue")
		WriteError(w, http.StatusInternalServerError, "Failed to clean queue")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"queue":   queueName,
		"removed": removed,
	})
}
