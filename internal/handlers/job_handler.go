package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/models"
	"github.com/ternarybob/genero/internal/queue"
)

// JobHandler handles HTTP requests for job management
type JobHandler struct {
	coordinator *queue.Coordinator
	validate    *validator.Validate
	logger      arbor.ILogger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(coordinator *queue.Coordinator, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		coordinator: coordinator,
		validate:    validator.New(),
		logger:      logger,
	}
}

// EnqueueRequest is the POST /api/jobs request body
type EnqueueRequest struct {
	Queue       string                 `json:"queue" validate:"required"`
	Type        string                 `json:"type" validate:"required"`
	Payload     map[string]interface{} `json:"payload"`
	Priority    string                 `json:"priority" validate:"omitempty,oneof=low normal high"`
	Delay       string                 `json:"delay"`
	MaxAttempts int                    `json:"max_attempts" validate:"gte=0"`
}

// EnqueueHandler handles POST /api/jobs
func (h *JobHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	opts := make([]queue.EnqueueOption, 0, 3)
	switch req.Priority {
	case "low":
		opts = append(opts, queue.WithPriority(models.PriorityLow))
	case "high":
		opts = append(opts, queue.WithPriority(models.PriorityHigh))
	}
	if req.Delay != "" {
		delay, err := time.ParseDuration(req.Delay)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid delay duration: "+req.Delay)
			return
		}
		opts = append(opts, queue.WithDelay(delay))
	}
	if req.MaxAttempts > 0 {
		opts = append(opts, queue.WithMaxAttempts(req.MaxAttempts))
	}

	job, err := h.coordinator.Enqueue(r.Context(), req.Queue, req.Type, req.Payload, opts...)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			WriteError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		h.logger.Error().Err(err).Str("queue", req.Queue).Msg("Failed to enqueue job")
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// ListJobsHandler handles GET /api/jobs?queue=<name>&status=<status>&limit=<n>
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	queueName := r.URL.Query().Get("queue")
	if queueName == "" {
		WriteError(w, http.StatusBadRequest, "Missing required query parameter: queue")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	status := models.JobStatus(r.URL.Query().Get("status"))
	jobs, err := h.coordinator.ListJobs(r.Context(), queueName, status, limit)
	if err != nil {
		if errors.Is(err, models.ErrUnknownQueue) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("queue", queueName).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"queue": queueName,
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDFromPath(r.URL.Path)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Missing job ID")
		return
	}

	job, err := h.coordinator.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found: "+jobID)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// CancelJobHandler handles DELETE /api/jobs/{id}
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDFromPath(r.URL.Path)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Missing job ID")
		return
	}

	if err := h.coordinator.Cancel(r.Context(), jobID); err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found: "+jobID)
			return
		}
		if errors.Is(err, models.ErrJobNotCancelable) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to cancel job")
		WriteError(w, http.StatusInternalServerError, "Failed to cancel job")
		return
	}

	WriteSuccess(w, fmt.Sprintf("Job %s cancelled", jobID))
}

// jobIDFromPath extracts the job ID from /api/jobs/{id} paths
func jobIDFromPath(path string) string {
	id := strings.TrimPrefix(path, "/api/jobs/")
	id = strings.TrimSuffix(id, "/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
