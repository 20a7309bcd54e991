package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/common"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
)

// EnqueueOption customizes a job at enqueue time
type EnqueueOption func(*models.Job)

// WithPriority sets the job's priority (higher runs sooner)
func WithPriority(priority int) EnqueueOption {
	return func(j *models.Job) { j.Priority = priority }
}

// WithDelay holds the job back for the given duration before it becomes
// eligible
func WithDelay(delay time.Duration) EnqueueOption {
	return func(j *models.Job) {
		if delay > 0 {
			j.DelayUntil = time.Now().Add(delay)
		}
	}
}

// WithMaxAttempts overrides the queue's default attempt cap for this job
func WithMaxAttempts(maxAttempts int) EnqueueOption {
	return func(j *models.Job) {
		if maxAttempts > 0 {
			j.MaxAttempts = maxAttempts
		}
	}
}

// QueueStatus is a point-in-time snapshot of one queue
type QueueStatus struct {
	Queue       string `json:"queue"`
	Paused      bool   `json:"paused"`
	Concurrency int    `json:"concurrency"`
	Waiting     int    `json:"waiting"`
	Active      int    `json:"active"`
	Delayed     int    `json:"delayed"`
	Completed   int    `json:"completed"`
	Failed      int    `json:"failed"`
}

type waitResult struct {
	result map[string]interface{}
	err    error
}

// Coordinator owns the named queues and their worker pools. It is the
// enqueue and management surface; execution happens in the pools.
type Coordinator struct {
	storage interfaces.JobStorage
	events  interfaces.EventService
	logger  arbor.ILogger

	pools map[string]*WorkerPool

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	// sequence breaks FIFO ties within a priority tier
	sequence atomic.Uint64

	waitersMu sync.Mutex
	waiters   map[string][]chan waitResult
}

// NewCoordinator builds the coordinator and one worker pool per configured
// queue
func NewCoordinator(storage interfaces.JobStorage, events interfaces.EventService, queueConfigs []common.QueueConfig, logger arbor.ILogger) *Coordinator {
	c := &Coordinator{
		storage:  storage,
		events:   events,
		logger:   logger,
		pools:    make(map[string]*WorkerPool),
		handlers: make(map[string]Handler),
		waiters:  make(map[string][]chan waitResult),
	}

	for _, qc := range queueConfigs {
		opts := OptionsFromConfig(qc)
		c.pools[opts.Name] = NewWorkerPool(opts, storage, events, c.handlerFor, logger)
	}

	// Terminal events resolve pending Wait calls
	events.Subscribe(models.EventJobCompleted, c.onTerminalEvent)
	events.Subscribe(models.EventJobFailed, c.onTerminalEvent)
	events.Subscribe(models.EventJobCancelled, c.onTerminalEvent)

	return c
}

// RegisterHandler registers the handler for a job type across all queues
func (c *Coordinator) RegisterHandler(jobType string, handler Handler) {
	c.handlersMu.Lock()
	c.handlers[jobType] = handler
	c.handlersMu.Unlock()

	c.logger.Debug().
		Str("job_type", jobType).
		Msg("Job handler registered")
}

func (c *Coordinator) handlerFor(jobType string) (Handler, bool) {
	c.handlersMu.RLock()
	defer c.handlersMu.RUnlock()
	h, ok := c.handlers[jobType]
	return h, ok
}

// Start recovers jobs stranded in active by a previous run, then starts
// every worker pool
func (c *Coordinator) Start(ctx context.Context) error {
	for name, pool := range c.pools {
		requeued, err := c.storage.RequeueActive(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to recover active jobs for queue %s: %w", name, err)
		}
		if requeued > 0 {
			c.logger.Info().
				Str("queue", name).
				Int("requeued", requeued).
				Msg("Recovered jobs from previous run")
		}
		pool.Start(ctx)
	}
	return nil
}

// Stop stops every worker pool and waits for in-flight jobs
func (c *Coordinator) Stop() {
	var wg sync.WaitGroup
	for _, pool := range c.pools {
		wg.Add(1)
		go func(p *WorkerPool) {
			defer wg.Done()
			p.Stop()
		}(pool)
	}
	wg.Wait()
	c.logger.Info().Msg("Queue coordinator stopped")
}

// Queues returns the configured queue names, sorted
func (c *Coordinator) Queues() []string {
	names := make([]string, 0, len(c.pools))
	for name := range c.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enqueue validates and persists a new job on a named queue
func (c *Coordinator) Enqueue(ctx context.Context, queue, jobType string, payload map[string]interface{}, opts ...EnqueueOption) (*models.Job, error) {
	pool, ok := c.pools[queue]
	if !ok {
		return nil, &models.ValidationError{Field: "queue", Reason: fmt.Sprintf("queue %q is not configured", queue)}
	}
	if jobType == "" {
		return nil, &models.ValidationError{Field: "type", Reason: "job type is required"}
	}

	job := models.NewJob(queue, jobType, payload)
	if pool.opts.MaxAttempts > 0 {
		job.MaxAttempts = pool.opts.MaxAttempts
	}
	for _, opt := range opts {
		opt(job)
	}
	if job.MaxAttempts < 1 {
		return nil, &models.ValidationError{Field: "max_attempts", Reason: "must be at least 1"}
	}
	job.Sequence = c.sequence.Add(1)

	if err := c.storage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	c.logger.Debug().
		Str("queue", queue).
		Str("job_id", job.ID).
		Str("type", jobType).
		Int("priority", job.Priority).
		Msg("Job enqueued")

	c.events.Publish(ctx, models.NewEvent(models.EventJobCreated, job.ID, queue, map[string]interface{}{
		"type":     jobType,
		"priority": job.Priority,
	}))

	return job, nil
}

// GetJob returns a job by ID
func (c *Coordinator) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return c.storage.GetJob(ctx, jobID)
}

// ListJobs returns recent jobs for a queue, optionally filtered by status
func (c *Coordinator) ListJobs(ctx context.Context, queue string, status models.JobStatus, limit int) ([]*models.Job, error) {
	if _, ok := c.pools[queue]; !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownQueue, queue)
	}
	if status == "" {
		return c.storage.ListJobs(ctx, queue, limit)
	}
	return c.storage.ListByStatus(ctx, queue, status, limit)
}

// Cancel removes a job that has not started. Active and terminal jobs are
// not cancelable.
func (c *Coordinator) Cancel(ctx context.Context, jobID string) error {
	job, err := c.storage.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	pool, ok := c.pools[job.Queue]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownQueue, job.Queue)
	}

	// The status check and delete run under the pool's claim lock so a
	// worker cannot activate the job in between
	if err := pool.cancelJob(ctx, jobID); err != nil {
		return err
	}

	c.logger.Info().
		Str("queue", job.Queue).
		Str("job_id", jobID).
		Msg("Job cancelled")

	c.events.Publish(ctx, models.NewEvent(models.EventJobCancelled, jobID, job.Queue, nil))
	return nil
}

// Pause stops a queue from claiming new jobs. Idempotent.
func (c *Coordinator) Pause(queue string) error {
	pool, ok := c.pools[queue]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownQueue, queue)
	}
	pool.Pause()
	return nil
}

// Resume restarts a paused queue. Idempotent.
func (c *Coordinator) Resume(queue string) error {
	pool, ok := c.pools[queue]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownQueue, queue)
	}
	pool.Resume()
	return nil
}

// RetryFailed returns every failed job in a queue to waiting with a fresh
// attempt budget, returning the number requeued
func (c *Coordinator) RetryFailed(ctx context.Context, queue string) (int, error) {
	if _, ok := c.pools[queue]; !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrUnknownQueue, queue)
	}

	failed, err := c.storage.ListByStatus(ctx, queue, models.JobStatusFailed, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list failed jobs: %w", err)
	}

	requeued := 0
	for _, job := range failed {
		job.AttemptsMade = 0
		job.FailureReason = ""
		job.FinishedAt = nil
		job.DelayUntil = time.Time{}
		job.MarkWaiting()
		if err := c.storage.SaveJob(ctx, job); err != nil {
			return requeued, fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
		}
		requeued++
	}

	if requeued > 0 {
		c.logger.Info().
			Str("queue", queue).
			Int("requeued", requeued).
			Msg("Failed jobs requeued")
	}
	return requeued, nil
}

// Clean prunes terminal jobs past the grace period beyond the queue's
// retention caps, returning the number removed
func (c *Coordinator) Clean(ctx context.Context, queue string, grace time.Duration) (int, error) {
	pool, ok := c.pools[queue]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrUnknownQueue, queue)
	}

	removed, err := c.storage.PruneTerminal(ctx, queue, grace, pool.opts.RetainCompleted, pool.opts.RetainFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to prune queue %s: %w", queue, err)
	}
	if removed > 0 {
		c.logger.Info().
			Str("queue", queue).
			Int("removed", removed).
			Msg("Terminal jobs pruned")
	}
	return removed, nil
}

// CleanAll runs Clean across every queue, returning the total removed
func (c *Coordinator) CleanAll(ctx context.Context, grace time.Duration) (int, error) {
	total := 0
	for name := range c.pools {
		removed, err := c.Clean(ctx, name, grace)
		if err != nil {
			return total, err
		}
		total += removed
	}
	return total, nil
}

// GetStatus returns counts per lifecycle state for a queue
func (c *Coordinator) GetStatus(ctx context.Context, queue string) (*QueueStatus, error) {
	pool, ok := c.pools[queue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownQueue, queue)
	}

	status := &QueueStatus{
		Queue:       queue,
		Paused:      pool.Paused(),
		Concurrency: pool.opts.Concurrency,
	}

	counts := []struct {
		state models.JobStatus
		dst   *int
	}{
		{models.JobStatusWaiting, &status.Waiting},
		{models.JobStatusActive, &status.Active},
		{models.JobStatusDelayed, &status.Delayed},
		{models.JobStatusCompleted, &status.Completed},
		{models.JobStatusFailed, &status.Failed},
	}
	for _, count := range counts {
		jobs, err := c.storage.ListByStatus(ctx, queue, count.state, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s jobs: %w", count.state, err)
		}
		*count.dst = len(jobs)
	}

	return status, nil
}

// Wait blocks until the job reaches a terminal state, returning its result
// or the failure reason as an error. Returns immediately for jobs that are
// already terminal.
func (c *Coordinator) Wait(ctx context.Context, jobID string) (map[string]interface{}, error) {
	ch := make(chan waitResult, 1)
	c.waitersMu.Lock()
	c.waiters[jobID] = append(c.waiters[jobID], ch)
	c.waitersMu.Unlock()

	// Check after registering so a terminal transition between the lookup
	// and the subscription cannot be missed
	job, err := c.storage.GetJob(ctx, jobID)
	if err != nil {
		c.removeWaiter(jobID, ch)
		return nil, err
	}
	if job.IsTerminal() {
		c.removeWaiter(jobID, ch)
		if job.Status == models.JobStatusFailed {
			return nil, errors.New(job.FailureReason)
		}
		return job.Result, nil
	}

	select {
	case <-ctx.Done():
		c.removeWaiter(jobID, ch)
		return nil, ctx.Err()
	case res := <-ch:
		return res.result, res.err
	}
}

func (c *Coordinator) removeWaiter(jobID string, ch chan waitResult) {
	c.waitersMu.Lock()
	defer c.waitersMu.Unlock()
	chans := c.waiters[jobID]
	for i, existing := range chans {
		if existing == ch {
			c.waiters[jobID] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(c.waiters[jobID]) == 0 {
		delete(c.waiters, jobID)
	}
}

// onTerminalEvent resolves any Wait calls pending on the finished job
func (c *Coordinator) onTerminalEvent(ctx context.Context, event models.Event) error {
	c.waitersMu.Lock()
	chans := c.waiters[event.JobID]
	delete(c.waiters, event.JobID)
	c.waitersMu.Unlock()

	if len(chans) == 0 {
		return nil
	}

	var res waitResult
	switch event.Type {
	case models.EventJobCompleted:
		if result, ok := event.Payload["result"].(map[string]interface{}); ok {
			res.result = result
		}
	case models.EventJobFailed:
		reason, _ := event.Payload["error"].(string)
		if reason == "" {
			reason = "job failed"
		}
		res.err = errors.New(reason)
	case models.EventJobCancelled:
		res.err = fmt.Errorf("job %s was cancelled", event.JobID)
	}

	for _, ch := range chans {
		ch <- res
	}
	return nil
}
