// -----------------------------------------------------------------------
// Usage tracker - per-provider counters, cost accounting, admission
// -----------------------------------------------------------------------

package providers

import (
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/models"
)

// Default admission thresholds
const (
	DefaultFailureThreshold = 5
	DefaultCooldownWindow   = 5 * time.Minute
)

// usageEntry wraps one provider's counters with its own lock so concurrent
// workers serialize per provider, not across the whole tracker
type usageEntry struct {
	mu     sync.Mutex
	record models.UsageRecord
	limit  models.RateLimit
}

// Tracker maintains per-provider usage counters and performs the admission
// check combining rate limits with a failure cooldown.
//
// Admission reserves: a successful Admit counts the request against the
// minute/hour windows immediately, so check-and-count is one atomic unit and
// two concurrent calls can never jointly exceed a provider's limit. Record
// afterwards only settles cost and the failure streak.
//
// Windows are approximate: a counter resets to zero once now - LastRequestAt
// exceeds the window, rather than keeping a rolling log.
type Tracker struct {
	mu               sync.RWMutex
	entries          map[string]*usageEntry
	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time
	logger           arbor.ILogger
}

// TrackerOption configures the Tracker
type TrackerOption func(*Tracker)

// WithFailureThreshold overrides the consecutive-failure threshold
func WithFailureThreshold(n int) TrackerOption {
	return func(t *Tracker) {
		t.failureThreshold = n
	}
}

// WithCooldownWindow overrides the failure cooldown window
func WithCooldownWindow(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.cooldown = d
	}
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a usage tracker
func NewTracker(logger arbor.ILogger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		entries:          make(map[string]*usageEntry),
		failureThreshold: DefaultFailureThreshold,
		cooldown:         DefaultCooldownWindow,
		now:              time.Now,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track registers a provider's rate limits. Called at provider registration.
func (t *Tracker) Track(name string, limit models.RateLimit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[name]; exists {
		return
	}
	t.entries[name] = &usageEntry{
		record: models.UsageRecord{Provider: name},
		limit:  limit,
	}
}

// Admit checks rate limits and the failure cooldown for a provider and, if
// the provider is admissible, counts the request. A rejected admission
// changes no state; in particular it never touches the failure streak.
func (t *Tracker) Admit(name string) bool {
	entry := t.entry(name)
	if entry == nil {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := t.now()
	t.resetElapsedWindows(entry, now)

	rec := &entry.record

	if entry.limit.PerMinute > 0 && rec.RequestsThisMinute >= entry.limit.PerMinute {
		return false
	}
	if entry.limit.PerHour > 0 && rec.RequestsThisHour >= entry.limit.PerHour {
		return false
	}
	if rec.ConsecutiveFailures > t.failureThreshold &&
		now.Sub(rec.LastFailureAt) < t.cooldown {
		return false
	}

	rec.RequestsThisMinute++
	rec.RequestsThisHour++
	rec.LastRequestAt = now
	return true
}

// Record settles the outcome of an admitted request: cost accrual on
// success, failure streak bookkeeping on failure.
func (t *Tracker) Record(name string, cost float64, success bool) {
	entry := t.entry(name)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	rec := &entry.record
	if success {
		rec.TotalCostAccrued += cost
		if rec.ConsecutiveFailures > 0 {
			rec.ConsecutiveFailures--
		}
	} else {
		rec.ConsecutiveFailures++
		rec.LastFailureAt = t.now()
	}
}

// Usage returns a snapshot of one provider's usage record
func (t *Tracker) Usage(name string) (models.UsageRecord, bool) {
	entry := t.entry(name)
	if entry == nil {
		return models.UsageRecord{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.record, true
}

// Stats returns usage snapshots for all tracked providers, sorted by name
func (t *Tracker) Stats() []models.UsageRecord {
	t.mu.RLock()
	entries := make([]*usageEntry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	stats := make([]models.UsageRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		stats = append(stats, e.record)
		e.mu.Unlock()
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Provider < stats[j].Provider
	})
	return stats
}

func (t *Tracker) entry(name string) *usageEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[name]
}

// resetElapsedWindows zeroes counters whose window has fully elapsed since
// the last counted request. Caller holds the entry lock.
func (t *Tracker) resetElapsedWindows(entry *usageEntry, now time.Time) {
	since := now.Sub(entry.record.LastRequestAt)
	if since > time.Minute {
		entry.record.RequestsThisMinute = 0
	}
	if since > time.Hour {
		entry.record.RequestsThisHour = 0
	}
}
