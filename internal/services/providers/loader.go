package providers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/models"
	"gopkg.in/yaml.v3"
)

// Default request ceilings applied when a descriptor omits rate limits
const (
	DefaultPerMinute = 60
	DefaultPerHour   = 1000
)

// LoadDescriptors reads provider descriptor files (*.toml, *.yaml, *.yml)
// from a directory, one descriptor per file. Invalid files are skipped with
// a warning so one bad descriptor does not prevent startup.
func LoadDescriptors(dir string, logger arbor.ILogger) ([]*models.ProviderDescriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers directory %s: %w", dir, err)
	}

	validate := validator.New()
	descriptors := make([]*models.ProviderDescriptor, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))

		var desc models.ProviderDescriptor
		switch ext {
		case ".toml":
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn().Err(err).Str("file", path).Msg("Failed to read provider descriptor")
				continue
			}
			if err := toml.Unmarshal(data, &desc); err != nil {
				logger.Warn().Err(err).Str("file", path).Msg("Failed to parse provider descriptor")
				continue
			}
		case ".yaml", ".yml":
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn().Err(err).Str("file", path).Msg("Failed to read provider descriptor")
				continue
			}
			if err := yaml.Unmarshal(data, &desc); err != nil {
				logger.Warn().Err(err).Str("file", path).Msg("Failed to parse provider descriptor")
				continue
			}
		default:
			continue
		}

		if err := validate.Struct(&desc); err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Provider descriptor failed validation")
			continue
		}

		if desc.RateLimit.PerMinute <= 0 {
			desc.RateLimit.PerMinute = DefaultPerMinute
		}
		if desc.RateLimit.PerHour <= 0 {
			desc.RateLimit.PerHour = DefaultPerHour
		}

		// API keys may reference environment variables ("env:NAME")
		if strings.HasPrefix(desc.APIKey, "env:") {
			desc.APIKey = os.Getenv(strings.TrimPrefix(desc.APIKey, "env:"))
		}

		logger.Debug().
			Str("file", entry.Name()).
			Str("provider", desc.Name).
			Msg("Loaded provider descriptor")

		descriptors = append(descriptors, &desc)
	}

	return descriptors, nil
}
