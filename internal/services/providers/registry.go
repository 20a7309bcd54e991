// -----------------------------------------------------------------------
// Provider registry - descriptors ordered into a failover sequence
// -----------------------------------------------------------------------

package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
)

// Entry pairs a provider descriptor with its driver implementation
type Entry struct {
	Descriptor *models.ProviderDescriptor
	Provider   interfaces.Provider
}

// Registry holds the configured backend providers. Ordering is by the
// descriptor's fixed priority rank (lower rank = tried first), never by cost.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	logger  arbor.ILogger
}

// NewRegistry creates an empty provider registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		logger:  logger,
	}
}

// Register adds a provider to the registry. Providers start available;
// the health checker corrects that on its first sweep.
func (r *Registry) Register(desc *models.ProviderDescriptor, provider interfaces.Provider) error {
	if desc.Name == "" {
		return fmt.Errorf("provider name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("provider already registered: %s", desc.Name)
	}

	desc.Available = true
	r.entries[desc.Name] = &Entry{Descriptor: desc, Provider: provider}

	r.logger.Info().
		Str("provider", desc.Name).
		Str("driver", desc.Driver).
		Str("type", string(desc.Type)).
		Int("priority", desc.Priority).
		Msg("Provider registered")

	return nil
}

// Get returns a registry entry by name
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// List returns all entries in priority order
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Descriptor.Priority < entries[j].Descriptor.Priority
	})
	return entries
}

// Candidates returns available providers matching the requested capability,
// in priority order. Admission is checked by the caller per attempt, not
// here, so that only invoked providers consume rate-limit slots.
func (r *Registry) Candidates(requested models.CapabilityType) []*Entry {
	candidates := make([]*Entry, 0)
	for _, e := range r.List() {
		if !e.Descriptor.Available {
			continue
		}
		if !e.Descriptor.Type.Supports(requested) {
			continue
		}
		candidates = append(candidates, e)
	}
	return candidates
}

// SetAvailable toggles a provider's availability flag, returning the
// previous value
func (r *Registry) SetAvailable(name string, available bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return false, fmt.Errorf("provider not registered: %s", name)
	}

	previous := entry.Descriptor.Available
	entry.Descriptor.Available = available
	return previous, nil
}
