package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
)

// Handler executes one job attempt. The returned map becomes the job's
// result on success. Returning an error schedules a retry until the job's
// attempts are exhausted, except for *models.ValidationError which fails
// the job immediately.
type Handler func(ctx context.Context, job *models.Job, report models.ProgressFunc) (map[string]interface{}, error)

// HandlerResolver looks up the handler registered for a job type
type HandlerResolver func(jobType string) (Handler, bool)

// WorkerPool runs one queue's workers: a fixed number of goroutines that
// poll storage for eligible jobs and drive them through the lifecycle.
// The pool is the sole mutator of its queue's jobs while running.
type WorkerPool struct {
	opts    Options
	storage interfaces.JobStorage
	events  interfaces.EventService
	resolve HandlerResolver
	logger  arbor.ILogger

	// claimMu serializes claim-and-activate so two workers never take the
	// same job
	claimMu sync.Mutex
	paused  atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a worker pool for one queue
func NewWorkerPool(opts Options, storage interfaces.JobStorage, events interfaces.EventService, resolve HandlerResolver, logger arbor.ILogger) *WorkerPool {
	return &WorkerPool{
		opts:    opts,
		storage: storage,
		events:  events,
		resolve: resolve,
		logger:  logger,
	}
}

// Start launches the worker goroutines
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)

	wp.logger.Info().
		Str("queue", wp.opts.Name).
		Int("concurrency", wp.opts.Concurrency).
		Dur("poll_interval", wp.opts.PollInterval).
		Msg("Starting worker pool")

	for i := 0; i < wp.opts.Concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop signals the workers and waits for in-flight jobs to finish
func (wp *WorkerPool) Stop() {
	if wp.cancel == nil {
		return
	}
	wp.logger.Info().
		Str("queue", wp.opts.Name).
		Msg("Stopping worker pool")
	wp.cancel()
	wp.wg.Wait()
}

// Pause stops claiming new jobs. In-flight jobs run to completion.
func (wp *WorkerPool) Pause() {
	wp.paused.Store(true)
	wp.logger.Info().
		Str("queue", wp.opts.Name).
		Msg("Queue paused")
}

// Resume restarts job claiming
func (wp *WorkerPool) Resume() {
	wp.paused.Store(false)
	wp.logger.Info().
		Str("queue", wp.opts.Name).
		Msg("Queue resumed")
}

// Paused reports whether the pool is currently paused
func (wp *WorkerPool) Paused() bool {
	return wp.paused.Load()
}

// worker is the poll loop for one worker goroutine
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	// Stagger worker starts to spread claims across the poll interval
	staggerDelay := (wp.opts.PollInterval / time.Duration(wp.opts.Concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		select {
		case <-wp.ctx.Done():
			return
		case <-time.After(staggerDelay):
		}
	}

	wp.logger.Debug().
		Str("queue", wp.opts.Name).
		Int("worker_id", workerID).
		Msg("Worker started")

	ticker := time.NewTicker(wp.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Str("queue", wp.opts.Name).
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if wp.paused.Load() {
				continue
			}
			// Drain eligible jobs before sleeping again
			for {
				processed, err := wp.processNext(workerID)
				if err != nil {
					wp.logger.Warn().
						Err(err).
						Str("queue", wp.opts.Name).
						Int("worker_id", workerID).
						Msg("Error processing job")
					break
				}
				if !processed {
					break
				}
				if wp.paused.Load() || wp.ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// processNext claims and executes a single job. Returns false when the
// queue has nothing eligible.
func (wp *WorkerPool) processNext(workerID int) (bool, error) {
	job, err := wp.claim()
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	wp.logger.Debug().
		Str("queue", wp.opts.Name).
		Str("job_id", job.ID).
		Str("type", job.Type).
		Int("attempt", job.AttemptsMade).
		Int("worker_id", workerID).
		Msg("Processing job")

	wp.events.Publish(wp.ctx, models.NewEvent(models.EventJobStarted, job.ID, job.Queue, map[string]interface{}{
		"type":    job.Type,
		"attempt": job.AttemptsMade,
	}))

	wp.execute(job, workerID)
	return true, nil
}

// claim atomically selects the next eligible job and marks it active
func (wp *WorkerPool) claim() (*models.Job, error) {
	wp.claimMu.Lock()
	defer wp.claimMu.Unlock()

	job, err := wp.storage.NextEligible(wp.ctx, wp.opts.Name, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to select eligible job: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	job.MarkActive()
	if err := wp.storage.SaveJob(wp.ctx, job); err != nil {
		return nil, fmt.Errorf("failed to activate job %s: %w", job.ID, err)
	}
	return job, nil
}

// cancelJob deletes a not-yet-started job under the claim lock so no worker
// can activate it mid-cancel
func (wp *WorkerPool) cancelJob(ctx context.Context, jobID string) error {
	wp.claimMu.Lock()
	defer wp.claimMu.Unlock()

	job, err := wp.storage.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusWaiting && job.Status != models.JobStatusDelayed {
		return fmt.Errorf("%w: job %s is %s", models.ErrJobNotCancelable, jobID, job.Status)
	}
	return wp.storage.DeleteJob(ctx, jobID)
}

// execute runs the handler for an active job and applies the outcome
func (wp *WorkerPool) execute(job *models.Job, workerID int) {
	handler, ok := wp.resolve(job.Type)
	if !ok {
		wp.logger.Error().
			Str("queue", wp.opts.Name).
			Str("job_id", job.ID).
			Str("type", job.Type).
			Msg("No handler registered for job type")
		wp.fail(job, fmt.Sprintf("no handler registered for job type %q", job.Type))
		return
	}

	report := func(pct int) {
		job.SetProgress(pct)
		if err := wp.storage.SaveJob(wp.ctx, job); err != nil {
			wp.logger.Warn().
				Err(err).
				Str("job_id", job.ID).
				Msg("Failed to persist job progress")
			return
		}
		wp.events.Publish(wp.ctx, models.NewEvent(models.EventJobProgress, job.ID, job.Queue, map[string]interface{}{
			"progress": job.Progress,
		}))
	}

	startTime := time.Now()
	result, handlerErr := handler(wp.ctx, job, report)
	duration := time.Since(startTime)

	if handlerErr != nil {
		wp.handleFailure(job, handlerErr, duration, workerID)
		return
	}

	job.MarkCompleted(result)
	if err := wp.storage.SaveJob(wp.ctx, job); err != nil {
		wp.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to persist completed job")
		return
	}

	wp.logger.Info().
		Str("queue", wp.opts.Name).
		Str("job_id", job.ID).
		Str("type", job.Type).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Job completed")

	wp.events.Publish(wp.ctx, models.NewEvent(models.EventJobCompleted, job.ID, job.Queue, map[string]interface{}{
		"result":      result,
		"duration_ms": duration.Milliseconds(),
	}))
}

// handleFailure schedules a retry with exponential backoff, or fails the
// job when its attempts are exhausted or the error is non-retryable
func (wp *WorkerPool) handleFailure(job *models.Job, handlerErr error, duration time.Duration, workerID int) {
	// A pool shutdown cancels the handler's context mid-attempt. Hand the
	// attempt back, as startup recovery does after a crash. The save uses a
	// fresh context because wp.ctx is already cancelled.
	if wp.ctx.Err() != nil {
		if job.AttemptsMade > 0 {
			job.AttemptsMade--
		}
		job.MarkWaiting()
		if err := wp.storage.SaveJob(context.Background(), job); err != nil {
			wp.logger.Error().
				Err(err).
				Str("job_id", job.ID).
				Msg("Failed to requeue interrupted job")
			return
		}
		wp.logger.Info().
			Str("queue", wp.opts.Name).
			Str("job_id", job.ID).
			Int("worker_id", workerID).
			Msg("Job interrupted by shutdown, requeued without consuming an attempt")
		return
	}

	var validationErr *models.ValidationError
	retryable := !errors.As(handlerErr, &validationErr)

	if retryable && job.AttemptsMade < job.MaxAttempts {
		delay := wp.backoff(job.AttemptsMade)
		job.MarkDelayed(time.Now().Add(delay))
		if err := wp.storage.SaveJob(wp.ctx, job); err != nil {
			wp.logger.Error().
				Err(err).
				Str("job_id", job.ID).
				Msg("Failed to persist delayed job")
			return
		}

		wp.logger.Warn().
			Err(handlerErr).
			Str("queue", wp.opts.Name).
			Str("job_id", job.ID).
			Str("type", job.Type).
			Int("attempt", job.AttemptsMade).
			Int("max_attempts", job.MaxAttempts).
			Dur("retry_delay", delay).
			Int("worker_id", workerID).
			Msg("Job attempt failed, retry scheduled")

		wp.events.Publish(wp.ctx, models.NewEvent(models.EventJobRetried, job.ID, job.Queue, map[string]interface{}{
			"error":          handlerErr.Error(),
			"attempt":        job.AttemptsMade,
			"retry_delay_ms": delay.Milliseconds(),
		}))
		return
	}

	wp.logger.Error().
		Err(handlerErr).
		Str("queue", wp.opts.Name).
		Str("job_id", job.ID).
		Str("type", job.Type).
		Int("attempt", job.AttemptsMade).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Job failed")

	wp.fail(job, handlerErr.Error())
}

// fail finalizes a job as failed and publishes the terminal event
func (wp *WorkerPool) fail(job *models.Job, reason string) {
	job.MarkFailed(reason)
	if err := wp.storage.SaveJob(wp.ctx, job); err != nil {
		wp.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to persist failed job")
		return
	}
	wp.events.Publish(wp.ctx, models.NewEvent(models.EventJobFailed, job.ID, job.Queue, map[string]interface{}{
		"error":    reason,
		"attempts": job.AttemptsMade,
	}))
}

// backoff returns the retry delay after the given attempt number:
// base * 2^attempt, capped at the configured maximum
func (wp *WorkerPool) backoff(attempt int) time.Duration {
	delay := wp.opts.BackoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= wp.opts.BackoffMax {
			return wp.opts.BackoffMax
		}
	}
	if delay > wp.opts.BackoffMax {
		return wp.opts.BackoffMax
	}
	return delay
}
