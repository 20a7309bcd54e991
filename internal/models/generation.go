// -----------------------------------------------------------------------
// Generation request/result contract consumed by job handlers
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// ProgressFunc reports incremental progress (0-100) during a generation call
type ProgressFunc func(pct int)

// GenerationParams is the parameter bag accepted by providers.
// Providers ignore parameters they do not understand.
type GenerationParams struct {
	Style       string `json:"style,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Quality     string `json:"quality,omitempty"`
	Iterations  int    `json:"iterations,omitempty"`
	Model       string `json:"model,omitempty"`
	MaxTokens   int    `json:"max_tokens,omitempty"`
}

// GenerationRequest is a provider-agnostic content generation request
type GenerationRequest struct {
	Type            CapabilityType   `json:"type"`
	Prompt          string           `json:"prompt"`
	Params          GenerationParams `json:"params"`
	ReferenceAssets []string         `json:"reference_assets,omitempty"`
	Requester       string           `json:"requester"`
	OnProgress      ProgressFunc     `json:"-"`
}

// AssetMetadata describes a generated artifact
type AssetMetadata struct {
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Prompt    string `json:"prompt"`
}

// GeneratedAsset is one artifact produced by a provider.
// Location is assigned by the persistence sink; Content carries the raw
// payload until the sink has stored it.
type GeneratedAsset struct {
	ID       string         `json:"id" badgerhold:"key"`
	Location string         `json:"location"`
	Type     CapabilityType `json:"type"`
	Content  []byte         `json:"content,omitempty"`
	OwnerID  string         `json:"owner_id" badgerhold:"index"`
	Provider string         `json:"provider"`
	Metadata AssetMetadata  `json:"metadata"`
	StoredAt time.Time      `json:"stored_at"`
}

// NewGeneratedAsset creates an asset with a fresh ID
func NewGeneratedAsset(assetType CapabilityType, format, prompt string, content []byte) *GeneratedAsset {
	return &GeneratedAsset{
		ID:      uuid.New().String(),
		Type:    assetType,
		Content: content,
		Metadata: AssetMetadata{
			Format:    format,
			SizeBytes: int64(len(content)),
			Prompt:    prompt,
		},
	}
}

// ResultMetadata records which provider served a generation call and at what cost
type ResultMetadata struct {
	Provider       string        `json:"provider"`
	Cost           float64       `json:"cost"`
	ProcessingTime time.Duration `json:"processing_time"`
	Model          string        `json:"model"`
}

// GenerationResult is the outcome of one successful failover call
type GenerationResult struct {
	Assets   []GeneratedAsset `json:"assets"`
	Metadata ResultMetadata   `json:"metadata"`
}
