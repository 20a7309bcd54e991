package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/genero/internal/models"
)

// JobStorage persists jobs and answers the eligibility queries worker pools
// claim from
type JobStorage interface {
	// SaveJob inserts or replaces a job
	SaveJob(ctx context.Context, job *models.Job) error

	// GetJob returns a job by ID, or models.ErrJobNotFound
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// DeleteJob removes a job
	DeleteJob(ctx context.Context, jobID string) error

	// NextEligible returns the next claimable job for a queue: waiting jobs
	// whose delay has elapsed, ordered by descending priority then ascending
	// sequence. Delayed jobs whose delay elapsed are promoted back to waiting
	// before selection. Returns nil when nothing is eligible.
	NextEligible(ctx context.Context, queue string, now time.Time) (*models.Job, error)

	// ListByStatus returns jobs for a queue in one state, newest first
	ListByStatus(ctx context.Context, queue string, status models.JobStatus, limit int) ([]*models.Job, error)

	// ListJobs returns jobs for a queue regardless of state, newest first
	ListJobs(ctx context.Context, queue string, limit int) ([]*models.Job, error)

	// PruneTerminal removes completed/failed jobs older than the grace period
	// beyond the retention caps, returning the number deleted
	PruneTerminal(ctx context.Context, queue string, grace time.Duration, retainCompleted, retainFailed int) (int, error)

	// RequeueActive returns jobs stuck in active (crash recovery) to waiting
	// without consuming an attempt, returning the number requeued
	RequeueActive(ctx context.Context, queue string) (int, error)
}

// AssetStorage persists generated artifacts
type AssetStorage interface {
	SaveAsset(ctx context.Context, asset *models.GeneratedAsset) error
	GetAsset(ctx context.Context, assetID string) (*models.GeneratedAsset, error)
	ListAssetsByOwner(ctx context.Context, ownerID string, limit int) ([]*models.GeneratedAsset, error)
}

// StorageManager owns the database connection and hands out typed stores
type StorageManager interface {
	JobStorage() JobStorage
	AssetStorage() AssetStorage
	AssetSink() AssetSink
	Close() error
}
