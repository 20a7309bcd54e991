package badger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/common"
	"github.com/ternarybob/genero/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	if err != nil {
		t.Fatalf("failed to create storage manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestJobStorage_SaveGetDelete(t *testing.T) {
	store := newTestManager(t).JobStorage()
	ctx := context.Background()

	job := models.NewJob("publish", "publish", map[string]interface{}{"asset_id": "a1"})
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Queue != "publish" || got.Status != models.JobStatusWaiting {
		t.Errorf("unexpected job: %+v", got)
	}

	if err := store.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}

	if _, err := store.GetJob(ctx, job.ID); !errors.Is(err, models.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
	if err := store.DeleteJob(ctx, job.ID); !errors.Is(err, models.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound on second delete, got %v", err)
	}
}

func TestJobStorage_NextEligibleOrdering(t *testing.T) {
	store := newTestManager(t).JobStorage()
	ctx := context.Background()
	now := time.Now()

	mk := func(priority int, seq uint64) *models.Job {
		job := models.NewJob("ai-generation", "generate", nil)
		job.Priority = priority
		job.Sequence = seq
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
		return job
	}

	lowFirst := mk(models.PriorityLow, 1)
	normal := mk(models.PriorityNormal, 2)
	highLate := mk(models.PriorityHigh, 4)
	highEarly := mk(models.PriorityHigh, 3)

	// Higher priority wins; FIFO within the tier
	expect := []string{highEarly.ID, highLate.ID, normal.ID, lowFirst.ID}
	for i, want := range expect {
		job, err := store.NextEligible(ctx, "ai-generation", now)
		if err != nil {
			t.Fatalf("NextEligible failed: %v", err)
		}
		if job == nil {
			t.Fatalf("step %d: no job returned", i)
		}
		if job.ID != want {
			t.Fatalf("step %d: got %s, want %s", i, job.ID, want)
		}
		job.MarkActive()
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	job, err := store.NextEligible(ctx, "ai-generation", now)
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if job != nil {
		t.Errorf("expected empty queue, got %s", job.ID)
	}
}

func TestJobStorage_NextEligiblePromotesDelayed(t *testing.T) {
	store := newTestManager(t).JobStorage()
	ctx := context.Background()

	job := models.NewJob("publish", "publish", nil)
	job.Sequence = 1
	job.MarkDelayed(time.Now().Add(time.Minute))
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	// Delay not elapsed yet
	got, err := store.NextEligible(ctx, "publish", time.Now())
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if got != nil {
		t.Fatal("delayed job claimed before its delay elapsed")
	}

	// After the delay the job is promoted and claimable
	got, err = store.NextEligible(ctx, "publish", time.Now().Add(2*time.Minute))
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if got == nil || got.ID != job.ID {
		t.Fatal("delayed job not promoted after its delay elapsed")
	}
	if got.Status != models.JobStatusWaiting {
		t.Errorf("promoted job status = %s, want waiting", got.Status)
	}
}

func TestJobStorage_QueueIsolation(t *testing.T) {
	store := newTestManager(t).JobStorage()
	ctx := context.Background()

	jobA := models.NewJob("publish", "publish", nil)
	jobA.Sequence = 1
	if err := store.SaveJob(ctx, jobA); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.NextEligible(ctx, "analytics", time.Now())
	if err != nil {
		t.Fatalf("NextEligible failed: %v", err)
	}
	if got != nil {
		t.Error("job claimed from the wrong queue")
	}
}

func TestJobStorage_RequeueActive(t *testing.T) {
	store := newTestManager(t).JobStorage()
	ctx := context.Background()

	job := models.NewJob("publish", "publish", nil)
	job.MarkActive()
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	requeued, err := store.RequeueActive(ctx, "publish")
	if err != nil {
		t.Fatalf("RequeueActive failed: %v", err)
	}
	if requeued != 1 {
		t.Fatalf("requeued = %d, want 1", requeued)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != models.JobStatusWaiting {
		t.Errorf("status = %s, want waiting", got.Status)
	}
	// The interrupted attempt must not count
	if got.AttemptsMade != 0 {
		t.Errorf("attempts_made = %d, want 0", got.AttemptsMade)
	}
}

func TestJobStorage_PruneTerminal(t *testing.T) {
	store := newTestManager(t).JobStorage()
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 5; i++ {
		job := models.NewJob("publish", "publish", nil)
		job.CreatedAt = old.Add(time.Duration(i) * time.Minute)
		job.MarkCompleted(nil)
		job.FinishedAt = &old
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}
	// A recent completion stays inside the grace period
	recent := models.NewJob("publish", "publish", nil)
	recent.MarkCompleted(nil)
	if err := store.SaveJob(ctx, recent); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	pruned, err := store.PruneTerminal(ctx, "publish", time.Hour, 2, 2)
	if err != nil {
		t.Fatalf("PruneTerminal failed: %v", err)
	}
	// 6 completed, cap 2, but the recent one is both within the cap and the
	// grace period; 4 old ones past the cap get deleted
	if pruned != 4 {
		t.Fatalf("pruned = %d, want 4", pruned)
	}

	remaining, err := store.ListByStatus(ctx, "publish", models.JobStatusCompleted, 0)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("remaining = %d, want 2", len(remaining))
	}
}

func TestAssetStorage_StoreAndList(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	asset := models.NewGeneratedAsset(models.CapabilityText, "text/plain", "prompt", []byte("content"))
	if err := mgr.AssetSink().Store(ctx, asset, "user-1", "claude-primary"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if asset.Location == "" {
		t.Error("sink did not assign a location")
	}
	if asset.OwnerID != "user-1" || asset.Provider != "claude-primary" {
		t.Errorf("ownership not stamped: %+v", asset)
	}

	got, err := mgr.AssetStorage().GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if string(got.Content) != "content" {
		t.Errorf("content round-trip failed: %q", got.Content)
	}

	list, err := mgr.AssetStorage().ListAssetsByOwner(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("ListAssetsByOwner failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list length = %d, want 1", len(list))
	}

	if _, err := mgr.AssetStorage().GetAsset(ctx, "missing"); err == nil {
		t.Error("expected error for missing asset")
	}
}
