// -----------------------------------------------------------------------
// Job - queued unit of work with retry policy and lifecycle state
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusDelayed   JobStatus = "delayed"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Named priority tiers. Priority is an open integer scale (higher = sooner);
// these are the values the API maps the symbolic names onto.
const (
	PriorityLow    = -10
	PriorityNormal = 0
	PriorityHigh   = 10
)

// DefaultMaxAttempts is applied when enqueue options omit max_attempts
const DefaultMaxAttempts = 3

// Job is the persisted representation of a queued unit of work.
//
// Lifecycle: waiting -> active -> completed (terminal)
// or active -> delayed -> waiting (retry cycle)
// or active -> failed (terminal, attempts exhausted).
// Terminal states are immutable; the owning worker pool is the only mutator.
type Job struct {
	ID    string `json:"id" badgerhold:"key"`
	Queue string `json:"queue" badgerhold:"index"`
	Type  string `json:"type"`

	Payload map[string]interface{} `json:"payload"`

	Priority    int       `json:"priority"`
	DelayUntil  time.Time `json:"delay_until"`
	MaxAttempts int       `json:"max_attempts"`

	// Sequence is a process-wide monotonic counter assigned at enqueue time.
	// It breaks ties within a priority tier (FIFO by enqueue order).
	Sequence uint64 `json:"sequence"`

	Status       JobStatus `json:"status" badgerhold:"index"`
	AttemptsMade int       `json:"attempts_made"`
	Progress     int       `json:"progress"`

	Result        map[string]interface{} `json:"result,omitempty"`
	FailureReason string                 `json:"failure_reason,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewJob creates a waiting job with defaults applied
func NewJob(queue, jobType string, payload map[string]interface{}) *Job {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Job{
		ID:          uuid.New().String(),
		Queue:       queue,
		Type:        jobType,
		Payload:     payload,
		Priority:    PriorityNormal,
		MaxAttempts: DefaultMaxAttempts,
		Status:      JobStatusWaiting,
		CreatedAt:   time.Now(),
	}
}

// Eligible reports whether the job can be claimed by a worker at the given time
func (j *Job) Eligible(now time.Time) bool {
	if j.Status != JobStatusWaiting && j.Status != JobStatusDelayed {
		return false
	}
	return !j.DelayUntil.After(now)
}

// IsTerminal returns true when the job has reached completed or failed
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// MarkActive transitions the job to active for a new execution attempt.
// Progress resets so it only ever increases within one attempt.
func (j *Job) MarkActive() {
	j.Status = JobStatusActive
	j.AttemptsMade++
	j.Progress = 0
	now := time.Now()
	j.StartedAt = &now
}

// MarkCompleted finalizes the job with a result
func (j *Job) MarkCompleted(result map[string]interface{}) {
	j.Status = JobStatusCompleted
	j.Result = result
	j.Progress = 100
	now := time.Now()
	j.FinishedAt = &now
}

// MarkDelayed schedules the job for a retry after the backoff delay elapses
func (j *Job) MarkDelayed(until time.Time) {
	j.Status = JobStatusDelayed
	j.DelayUntil = until
}

// MarkWaiting returns a delayed job to the waiting state once its delay elapsed
func (j *Job) MarkWaiting() {
	j.Status = JobStatusWaiting
}

// MarkFailed finalizes the job after its attempts are exhausted
func (j *Job) MarkFailed(reason string) {
	j.Status = JobStatusFailed
	j.FailureReason = reason
	now := time.Now()
	j.FinishedAt = &now
}

// SetProgress clamps and applies a progress report from the handler.
// Progress never decreases within an active execution.
func (j *Job) SetProgress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct > j.Progress {
		j.Progress = pct
	}
}
