package queue

import (
	"testing"
	"time"

	"github.com/ternarybob/genero/internal/common"
	"github.com/ternarybob/genero/internal/models"
)

func TestWorkerPool_Backoff(t *testing.T) {
	wp := &WorkerPool{opts: Options{
		BackoffBase: 2 * time.Second,
		BackoffMax:  5 * time.Minute,
	}}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 32 * time.Second},
		{10, 5 * time.Minute}, // capped
	}
	for _, tc := range cases {
		if got := wp.backoff(tc.attempt); got != tc.want {
			t.Errorf("backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestOptionsFromConfig_Defaults(t *testing.T) {
	opts := OptionsFromConfig(common.QueueConfig{Name: "publish"})

	if opts.Concurrency != DefaultConcurrency {
		t.Errorf("concurrency = %d, want %d", opts.Concurrency, DefaultConcurrency)
	}
	if opts.PollInterval != DefaultPollInterval {
		t.Errorf("poll interval = %v, want %v", opts.PollInterval, DefaultPollInterval)
	}
	if opts.MaxAttempts != models.DefaultMaxAttempts {
		t.Errorf("max attempts = %d, want %d", opts.MaxAttempts, models.DefaultMaxAttempts)
	}
	if opts.RetainCompleted != DefaultRetainCompleted || opts.RetainFailed != DefaultRetainFailed {
		t.Errorf("retention = %d/%d, want %d/%d", opts.RetainCompleted, opts.RetainFailed, DefaultRetainCompleted, DefaultRetainFailed)
	}
}

func TestOptionsFromConfig_Parsed(t *testing.T) {
	opts := OptionsFromConfig(common.QueueConfig{
		Name:         "analytics",
		Concurrency:  8,
		PollInterval: "1s",
		BackoffBase:  "3s",
		BackoffMax:   "2m",
		MaxAttempts:  5,
	})

	if opts.Concurrency != 8 || opts.PollInterval != time.Second {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.BackoffBase != 3*time.Second || opts.BackoffMax != 2*time.Minute {
		t.Errorf("backoff not parsed: %+v", opts)
	}
	if opts.MaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", opts.MaxAttempts)
	}
}
