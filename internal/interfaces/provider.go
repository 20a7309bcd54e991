package interfaces

import (
	"context"

	"github.com/ternarybob/genero/internal/models"
)

// Provider is one backend capable of serving generation requests.
// Implementations translate the provider-agnostic request into their own
// API calls and return raw assets; persistence is the caller's concern.
type Provider interface {
	// Name returns the registry name this provider was registered under
	Name() string

	// Generate performs one generation call. The returned model string
	// identifies the concrete model that served the request.
	Generate(ctx context.Context, req *models.GenerationRequest) ([]models.GeneratedAsset, string, error)

	// Probe performs a cheap liveness/credential check
	Probe(ctx context.Context) error
}
