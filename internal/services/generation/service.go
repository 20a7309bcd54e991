// -----------------------------------------------------------------------
// Failover manager - sequential provider failover for generation requests
// -----------------------------------------------------------------------

package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
	"github.com/ternarybob/genero/internal/services/providers"
)

// Service routes generation requests across the provider registry with
// sequential failover. Candidates are tried strictly in priority order, one
// at a time, so cost and side effects stay attributable to exactly one
// provider per attempt. Failover is never parallel or speculative.
type Service struct {
	registry *providers.Registry
	usage    *providers.Tracker
	sink     interfaces.AssetSink
	logger   arbor.ILogger
}

// NewService creates a failover manager over the given registry and tracker
func NewService(registry *providers.Registry, usage *providers.Tracker, sink interfaces.AssetSink, logger arbor.ILogger) *Service {
	return &Service{
		registry: registry,
		usage:    usage,
		sink:     sink,
		logger:   logger,
	}
}

// Generate attempts providers in priority order and returns the first
// success. Admission is checked per candidate immediately before invocation
// so only invoked providers consume rate-limit slots. A rejected admission
// is "temporarily unavailable", not a provider failure: it does not touch
// the failure streak.
func (s *Service) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	candidates := s.registry.Candidates(req.Type)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no %s providers registered and available", models.ErrNoProviderAvailable, req.Type)
	}

	var lastErr error
	attempted := 0

	for _, candidate := range candidates {
		name := candidate.Descriptor.Name

		if !s.usage.Admit(name) {
			s.logger.Debug().
				Str("provider", name).
				Msg("Provider not admitted, skipping")
			continue
		}
		attempted++

		s.logger.Debug().
			Str("provider", name).
			Str("type", string(req.Type)).
			Msg("Attempting provider")

		start := time.Now()
		assets, model, err := candidate.Provider.Generate(ctx, req)
		elapsed := time.Since(start)

		if err != nil {
			s.usage.Record(name, 0, false)
			lastErr = models.NewProviderError(name, true, err)

			s.logger.Warn().
				Err(err).
				Str("provider", name).
				Dur("duration", elapsed).
				Msg("Provider generation failed, trying next candidate")
			continue
		}

		cost := candidate.Descriptor.CostPerRequest
		s.usage.Record(name, cost, true)

		s.persistAssets(ctx, assets, req, name)

		s.logger.Info().
			Str("provider", name).
			Str("model", model).
			Int("assets", len(assets)).
			Dur("duration", elapsed).
			Msg("Generation succeeded")

		return &models.GenerationResult{
			Assets: assets,
			Metadata: models.ResultMetadata{
				Provider:       name,
				Cost:           cost,
				ProcessingTime: elapsed,
				Model:          model,
			},
		}, nil
	}

	if attempted == 0 {
		return nil, fmt.Errorf("%w: all %d candidates rejected by admission", models.ErrNoProviderAvailable, len(candidates))
	}

	return nil, fmt.Errorf("all %d attempted providers failed: %w", attempted, lastErr)
}

// persistAssets hands generated artifacts to the persistence sink. A sink
// failure is logged, never propagated: generation already succeeded and
// persistence can be retried without redoing it.
func (s *Service) persistAssets(ctx context.Context, assets []models.GeneratedAsset, req *models.GenerationRequest, providerName string) {
	for i := range assets {
		if err := s.sink.Store(ctx, &assets[i], req.Requester, providerName); err != nil {
			s.logger.Warn().
				Err(err).
				Str("asset_id", assets[i].ID).
				Str("provider", providerName).
				Msg("Asset persistence failed; job result is unaffected")
		}
	}
}
