package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.ErrJobNotFound
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// NextEligible promotes due delayed jobs to waiting, then returns the
// highest-priority eligible waiting job (FIFO by sequence within a tier).
// BadgerHold cannot sort on two keys in opposite directions, so the eligible
// set is sorted in memory; queues are small relative to the database.
func (s *JobStorage) NextEligible(ctx context.Context, queue string, now time.Time) (*models.Job, error) {
	// Promote delayed jobs whose delay has elapsed
	var delayed []models.Job
	q := badgerhold.Where("Queue").Eq(queue).Index("Queue").
		And("Status").Eq(models.JobStatusDelayed).
		And("DelayUntil").Le(now)
	if err := s.db.Store().Find(&delayed, q); err != nil {
		return nil, fmt.Errorf("failed to query delayed jobs: %w", err)
	}
	for i := range delayed {
		delayed[i].MarkWaiting()
		if err := s.db.Store().Update(delayed[i].ID, &delayed[i]); err != nil {
			return nil, fmt.Errorf("failed to promote delayed job: %w", err)
		}
	}

	var waiting []models.Job
	q = badgerhold.Where("Queue").Eq(queue).Index("Queue").
		And("Status").Eq(models.JobStatusWaiting).
		And("DelayUntil").Le(now)
	if err := s.db.Store().Find(&waiting, q); err != nil {
		return nil, fmt.Errorf("failed to query waiting jobs: %w", err)
	}
	if len(waiting) == 0 {
		return nil, nil
	}

	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].Priority != waiting[j].Priority {
			return waiting[i].Priority > waiting[j].Priority
		}
		return waiting[i].Sequence < waiting[j].Sequence
	})

	job := waiting[0]
	return &job, nil
}

func (s *JobStorage) ListByStatus(ctx context.Context, queue string, status models.JobStatus, limit int) ([]*models.Job, error) {
	query := badgerhold.Where("Queue").Eq(queue).Index("Queue").
		And("Status").Eq(status).
		SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, queue string, limit int) ([]*models.Job, error) {
	query := badgerhold.Where("Queue").Eq(queue).Index("Queue").
		SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// PruneTerminal enforces the per-queue retention policy: terminal jobs older
// than the grace period are deleted once the completed/failed counts exceed
// their caps. Newest jobs are kept.
func (s *JobStorage) PruneTerminal(ctx context.Context, queue string, grace time.Duration, retainCompleted, retainFailed int) (int, error) {
	pruned := 0
	cutoff := time.Now().Add(-grace)

	for _, p := range []struct {
		status models.JobStatus
		retain int
	}{
		{models.JobStatusCompleted, retainCompleted},
		{models.JobStatusFailed, retainFailed},
	} {
		jobs, err := s.ListByStatus(ctx, queue, p.status, 0)
		if err != nil {
			return pruned, err
		}
		// ListByStatus returns newest first; everything past the cap is a
		// candidate if it finished before the cutoff
		for i, job := range jobs {
			if i < p.retain {
				continue
			}
			if job.FinishedAt != nil && job.FinishedAt.After(cutoff) {
				continue
			}
			if err := s.DeleteJob(ctx, job.ID); err != nil {
				return pruned, err
			}
			pruned++
		}
	}

	return pruned, nil
}

// RequeueActive returns orphaned active jobs to waiting. Called once per
// queue on startup; an interrupted attempt does not count against the job.
func (s *JobStorage) RequeueActive(ctx context.Context, queue string) (int, error) {
	var active []models.Job
	q := badgerhold.Where("Queue").Eq(queue).Index("Queue").
		And("Status").Eq(models.JobStatusActive)
	if err := s.db.Store().Find(&active, q); err != nil {
		return 0, fmt.Errorf("failed to query active jobs: %w", err)
	}

	for i := range active {
		if active[i].AttemptsMade > 0 {
			active[i].AttemptsMade--
		}
		active[i].MarkWaiting()
		if err := s.db.Store().Update(active[i].ID, &active[i]); err != nil {
			return i, fmt.Errorf("failed to requeue active job: %w", err)
		}
		s.logger.Info().
			Str("job_id", active[i].ID).
			Str("queue", queue).
			Msg("Requeued orphaned active job")
	}

	return len(active), nil
}
