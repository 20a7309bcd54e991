package interfaces

import (
	"context"

	"github.com/ternarybob/genero/internal/models"
)

// AssetSink stores successfully generated artifacts. A sink failure is
// logged by the caller but never fails the owning job; persistence can be
// retried independently without redoing costly generation.
type AssetSink interface {
	Store(ctx context.Context, asset *models.GeneratedAsset, ownerID, providerName string) error
}
