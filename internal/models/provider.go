// -----------------------------------------------------------------------
// Provider descriptors and per-provider usage accounting
// -----------------------------------------------------------------------

package models

import "time"

// CapabilityType describes what a backend provider can generate
type CapabilityType string

const (
	CapabilityText  CapabilityType = "text"
	CapabilityImage CapabilityType = "image"
	CapabilityBoth  CapabilityType = "both"
)

// Supports reports whether a provider capability satisfies a requested type
func (c CapabilityType) Supports(requested CapabilityType) bool {
	if c == CapabilityBoth {
		return true
	}
	return c == requested
}

// RateLimit holds the externally imposed request ceilings for a provider
type RateLimit struct {
	PerMinute int `json:"per_minute" toml:"per_minute" yaml:"per_minute"`
	PerHour   int `json:"per_hour" toml:"per_hour" yaml:"per_hour"`
}

// ProviderDescriptor describes a backend provider in the failover sequence.
// Priority is a fixed rank chosen by configuration (lower value = tried
// first); it encodes a reliability/cost tradeoff and is not derived from cost.
type ProviderDescriptor struct {
	Name           string         `json:"name" toml:"name" yaml:"name" validate:"required"`
	Driver         string         `json:"driver" toml:"driver" yaml:"driver" validate:"required,oneof=claude gemini relay"`
	Type           CapabilityType `json:"type" toml:"type" yaml:"type" validate:"required,oneof=text image both"`
	Priority       int            `json:"priority" toml:"priority" yaml:"priority"`
	CostPerRequest float64        `json:"cost_per_request" toml:"cost_per_request" yaml:"cost_per_request" validate:"gte=0"`
	RateLimit      RateLimit      `json:"rate_limit" toml:"rate_limit" yaml:"rate_limit"`

	// Driver-specific settings
	Model    string `json:"model,omitempty" toml:"model" yaml:"model"`
	Endpoint string `json:"endpoint,omitempty" toml:"endpoint" yaml:"endpoint"`
	APIKey   string `json:"-" toml:"api_key" yaml:"api_key"`

	// Available is runtime state toggled by the health checker, not config
	Available bool `json:"available" toml:"-" yaml:"-"`
}

// UsageRecord tracks request counters and cost for one provider.
// Counters use an approximate windowing scheme: they reset to zero once
// now - LastRequestAt exceeds the window, rather than keeping a rolling log.
type UsageRecord struct {
	Provider            string    `json:"provider"`
	RequestsThisMinute  int       `json:"requests_this_minute"`
	RequestsThisHour    int       `json:"requests_this_hour"`
	LastRequestAt       time.Time `json:"last_request_at"`
	TotalCostAccrued    float64   `json:"total_cost_accrued"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureAt       time.Time `json:"last_failure_at"`
}

// ProviderStatus is the observability view of one registry entry
type ProviderStatus struct {
	Name           string         `json:"name"`
	Type           CapabilityType `json:"type"`
	Available      bool           `json:"available"`
	Priority       int            `json:"priority"`
	CostPerRequest float64        `json:"cost_per_request"`
	Usage          UsageRecord    `json:"usage"`
}
