package models

import (
	"testing"
	"time"
)

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob("publish", "publish", nil)

	if job.Status != JobStatusWaiting {
		t.Fatalf("new job status = %s, want waiting", job.Status)
	}
	if job.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("max attempts = %d, want %d", job.MaxAttempts, DefaultMaxAttempts)
	}
	if job.Payload == nil {
		t.Error("nil payload not defaulted")
	}

	job.MarkActive()
	if job.Status != JobStatusActive || job.AttemptsMade != 1 {
		t.Errorf("after MarkActive: status=%s attempts=%d", job.Status, job.AttemptsMade)
	}
	if job.StartedAt == nil {
		t.Error("StartedAt not stamped")
	}

	job.MarkDelayed(time.Now().Add(time.Second))
	if job.Status != JobStatusDelayed {
		t.Errorf("after MarkDelayed: status=%s", job.Status)
	}

	job.MarkWaiting()
	job.MarkActive()
	if job.AttemptsMade != 2 {
		t.Errorf("second attempt not counted: %d", job.AttemptsMade)
	}

	job.MarkCompleted(map[string]interface{}{"ok": true})
	if !job.IsTerminal() || job.Progress != 100 {
		t.Errorf("after MarkCompleted: status=%s progress=%d", job.Status, job.Progress)
	}
	if job.FinishedAt == nil {
		t.Error("FinishedAt not stamped")
	}
}

func TestJob_Eligible(t *testing.T) {
	now := time.Now()
	job := NewJob("publish", "publish", nil)

	if !job.Eligible(now) {
		t.Error("waiting job with no delay should be eligible")
	}

	job.DelayUntil = now.Add(time.Minute)
	if job.Eligible(now) {
		t.Error("job should not be eligible before its delay")
	}
	if !job.Eligible(now.Add(2 * time.Minute)) {
		t.Error("job should be eligible after its delay")
	}

	job.DelayUntil = time.Time{}
	job.MarkActive()
	if job.Eligible(now) {
		t.Error("active job should not be eligible")
	}
}

func TestJob_SetProgressClamped(t *testing.T) {
	job := NewJob("publish", "publish", nil)
	job.MarkActive()

	job.SetProgress(150)
	if job.Progress != 100 {
		t.Errorf("progress = %d, want clamped to 100", job.Progress)
	}

	// Progress never decreases within an attempt
	job.SetProgress(40)
	if job.Progress != 100 {
		t.Errorf("progress regressed to %d", job.Progress)
	}

	job.SetProgress(-5)
	if job.Progress != 100 {
		t.Errorf("negative report changed progress to %d", job.Progress)
	}

	// A fresh attempt resets progress
	job.MarkDelayed(time.Now())
	job.MarkWaiting()
	job.MarkActive()
	if job.Progress != 0 {
		t.Errorf("progress = %d after new attempt, want 0", job.Progress)
	}
}

func TestCapabilityType_Supports(t *testing.T) {
	cases := []struct {
		have, want CapabilityType
		supports   bool
	}{
		{CapabilityText, CapabilityText, true},
		{CapabilityText, CapabilityImage, false},
		{CapabilityImage, CapabilityImage, true},
		{CapabilityBoth, CapabilityText, true},
		{CapabilityBoth, CapabilityImage, true},
	}
	for _, tc := range cases {
		if got := tc.have.Supports(tc.want); got != tc.supports {
			t.Errorf("%s.Supports(%s) = %v, want %v", tc.have, tc.want, got, tc.supports)
		}
	}
}
