// -----------------------------------------------------------------------
// Health checker - periodic liveness probes toggling provider availability
// -----------------------------------------------------------------------

package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
)

// DefaultProbeTimeout bounds one provider liveness probe
const DefaultProbeTimeout = 10 * time.Second

// Checker runs provider liveness probes on a fixed cron schedule and flips
// the availability flag on the registry. One consistent policy: periodic
// sweeps only; the API exposes CheckProvider for operators but nothing
// probes ad hoc before batches. Probe outcomes are independent from
// per-call errors: an unavailable provider is excluded from selection, and
// a probe failure never cancels jobs already in flight against it.
type Checker struct {
	registry     *Registry
	events       interfaces.EventService
	cron         *cron.Cron
	schedule     string
	probeTimeout time.Duration
	logger       arbor.ILogger
}

// NewChecker creates a health checker for the given registry
func NewChecker(registry *Registry, events interfaces.EventService, schedule string, logger arbor.ILogger) *Checker {
	if schedule == "" {
		schedule = "*/1 * * * *" // Default: every 1 minute
	}
	return &Checker{
		registry:     registry,
		events:       events,
		cron:         cron.New(),
		schedule:     schedule,
		probeTimeout: DefaultProbeTimeout,
		logger:       logger,
	}
}

// Start runs an initial sweep and schedules periodic ones
func (c *Checker) Start() error {
	c.CheckAll(context.Background())

	if _, err := c.cron.AddFunc(c.schedule, func() {
		c.CheckAll(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule health checks: %w", err)
	}
	c.cron.Start()

	c.logger.Info().
		Str("schedule", c.schedule).
		Msg("Health checker started")

	return nil
}

// Stop stops the periodic sweeps. In-flight probes finish.
func (c *Checker) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	c.logger.Info().Msg("Health checker stopped")
}

// CheckAll probes every registered provider
func (c *Checker) CheckAll(ctx context.Context) {
	for _, entry := range c.registry.List() {
		c.check(ctx, entry)
	}
}

// CheckProvider probes a single provider on demand, returning its new
// availability
func (c *Checker) CheckProvider(ctx context.Context, name string) (bool, error) {
	entry, ok := c.registry.Get(name)
	if !ok {
		return false, fmt.Errorf("provider not registered: %s", name)
	}
	return c.check(ctx, entry), nil
}

func (c *Checker) check(ctx context.Context, entry *Entry) bool {
	name := entry.Descriptor.Name

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	err := entry.Provider.Probe(probeCtx)
	available := err == nil

	previous, setErr := c.registry.SetAvailable(name, available)
	if setErr != nil {
		return available
	}

	if available != previous {
		c.logger.Info().
			Str("provider", name).
			Bool("available", available).
			Msg("Provider availability changed")

		c.events.Publish(ctx, models.NewEvent(models.EventProviderHealth, "", "", map[string]interface{}{
			"provider":  name,
			"available": available,
		}))
	}

	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("provider", name).
			Msg("Provider health probe failed")
	}

	return available
}
