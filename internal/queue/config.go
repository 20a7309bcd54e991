package queue

import (
	"time"

	"github.com/ternarybob/genero/internal/common"
	"github.com/ternarybob/genero/internal/models"
)

// Options is the parsed runtime configuration for one queue's worker pool
type Options struct {
	Name            string
	Concurrency     int
	PollInterval    time.Duration
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	MaxAttempts     int
	RetainCompleted int
	RetainFailed    int
}

// Defaults applied when a queue config omits a field
const (
	DefaultConcurrency     = 1
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultBackoffBase     = 2 * time.Second
	DefaultBackoffMax      = 5 * time.Minute
	DefaultRetainCompleted = 100
	DefaultRetainFailed    = 50
)

// OptionsFromConfig parses a queue's file configuration into runtime options
func OptionsFromConfig(cfg common.QueueConfig) Options {
	opts := Options{
		Name:            cfg.Name,
		Concurrency:     cfg.Concurrency,
		PollInterval:    common.ParseDurationOr(cfg.PollInterval, DefaultPollInterval),
		BackoffBase:     common.ParseDurationOr(cfg.BackoffBase, DefaultBackoffBase),
		BackoffMax:      common.ParseDurationOr(cfg.BackoffMax, DefaultBackoffMax),
		MaxAttempts:     cfg.MaxAttempts,
		RetainCompleted: cfg.RetainCompleted,
		RetainFailed:    cfg.RetainFailed,
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = models.DefaultMaxAttempts
	}
	if opts.RetainCompleted <= 0 {
		opts.RetainCompleted = DefaultRetainCompleted
	}
	if opts.RetainFailed <= 0 {
		opts.RetainFailed = DefaultRetainFailed
	}
	return opts
}
