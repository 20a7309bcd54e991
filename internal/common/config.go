package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Queues      []QueueConfig  `toml:"queues"`
	Providers   ProviderConfig `toml:"providers"`
	Usage       UsageConfig    `toml:"usage"`
	Health      HealthConfig   `toml:"health"`
	Cleanup     CleanupConfig  `toml:"cleanup"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// QueueConfig configures one named queue and its worker pool.
// Interval/duration fields use Go duration strings ("250ms", "2s", "5m").
type QueueConfig struct {
	Name            string `toml:"name"`
	Concurrency     int    `toml:"concurrency"`
	PollInterval    string `toml:"poll_interval"`
	BackoffBase     string `toml:"backoff_base"`
	BackoffMax      string `toml:"backoff_max"`
	MaxAttempts     int    `toml:"max_attempts"`
	RetainCompleted int    `toml:"retain_completed"`
	RetainFailed    int    `toml:"retain_failed"`
}

// ProviderConfig points at the directory of provider descriptor files
// (*.toml / *.yaml), one descriptor per file.
type ProviderConfig struct {
	Dir string `toml:"dir"`
}

// UsageConfig configures the admission failure cooldown
type UsageConfig struct {
	FailureThreshold int    `toml:"failure_threshold"` // Consecutive failures before cooldown (default: 5)
	CooldownWindow   string `toml:"cooldown_window"`   // e.g. "5m"
}

// HealthConfig configures the periodic provider health check
type HealthConfig struct {
	Schedule string `toml:"schedule"` // Cron schedule format (default: every minute)
}

// CleanupConfig configures the periodic retention sweep
type CleanupConfig struct {
	Schedule    string `toml:"schedule"`     // Cron schedule format
	GracePeriod string `toml:"grace_period"` // Terminal jobs younger than this are kept regardless of caps
}

// NewDefaultConfig returns configuration defaults applied before any file
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8985,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/genero",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Queues: []QueueConfig{
			{Name: "ai-generation", Concurrency: 2, PollInterval: "500ms", BackoffBase: "2s", BackoffMax: "5m", MaxAttempts: 3, RetainCompleted: 100, RetainFailed: 50},
			{Name: "image-transcode", Concurrency: 2, PollInterval: "500ms", BackoffBase: "2s", BackoffMax: "5m", MaxAttempts: 3, RetainCompleted: 100, RetainFailed: 50},
			{Name: "publish", Concurrency: 4, PollInterval: "500ms", BackoffBase: "2s", BackoffMax: "5m", MaxAttempts: 3, RetainCompleted: 100, RetainFailed: 50},
			{Name: "analytics", Concurrency: 8, PollInterval: "1s", BackoffBase: "2s", BackoffMax: "2m", MaxAttempts: 3, RetainCompleted: 100, RetainFailed: 50},
		},
		Providers: ProviderConfig{
			Dir: "./providers",
		},
		Usage: UsageConfig{
			FailureThreshold: 5,
			CooldownWindow:   "5m",
		},
		Health: HealthConfig{
			Schedule: "*/1 * * * *",
		},
		Cleanup: CleanupConfig{
			Schedule:    "*/10 * * * *",
			GracePeriod: "1h",
		},
	}
}

// LoadFromFiles loads configuration from defaults, then merges each file in
// order (later files override earlier ones), then applies env overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variables on top of file config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("GENERO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("GENERO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("GENERO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if path := os.Getenv("GENERO_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("GENERO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if dir := os.Getenv("GENERO_PROVIDERS_DIR"); dir != "" {
		config.Providers.Dir = dir
	}
}

// QueueByName returns the configuration for a named queue
func (c *Config) QueueByName(name string) (QueueConfig, bool) {
	for _, q := range c.Queues {
		if q.Name == name {
			return q, true
		}
	}
	return QueueConfig{}, false
}

// ParseDurationOr parses a duration string, falling back to a default when
// the value is empty or malformed
func ParseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
