package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AssetStorage implements the AssetStorage and AssetSink interfaces for Badger
type AssetStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAssetStorage creates a new AssetStorage instance
func NewAssetStorage(db *BadgerDB, logger arbor.ILogger) *AssetStorage {
	return &AssetStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AssetStorage) SaveAsset(ctx context.Context, asset *models.GeneratedAsset) error {
	if asset.ID == "" {
		return fmt.Errorf("asset ID is required")
	}
	if err := s.db.Store().Upsert(asset.ID, asset); err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	return nil
}

func (s *AssetStorage) GetAsset(ctx context.Context, assetID string) (*models.GeneratedAsset, error) {
	var asset models.GeneratedAsset
	if err := s.db.Store().Get(assetID, &asset); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("asset not found: %s", assetID)
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

func (s *AssetStorage) ListAssetsByOwner(ctx context.Context, ownerID string, limit int) ([]*models.GeneratedAsset, error) {
	query := badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID").
		SortBy("StoredAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var assets []models.GeneratedAsset
	if err := s.db.Store().Find(&assets, query); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	result := make([]*models.GeneratedAsset, len(assets))
	for i := range assets {
		result[i] = &assets[i]
	}
	return result, nil
}

// Store implements the AssetSink interface: stamps ownership and persists
// the artifact. Location is the badger-backed reference callers hand out.
func (s *AssetStorage) Store(ctx context.Context, asset *models.GeneratedAsset, ownerID, providerName string) error {
	asset.OwnerID = ownerID
	asset.Provider = providerName
	asset.StoredAt = time.Now()
	if asset.Location == "" {
		asset.Location = "badger://assets/" + asset.ID
	}

	if err := s.SaveAsset(ctx, asset); err != nil {
		return err
	}

	s.logger.Debug().
		Str("asset_id", asset.ID).
		Str("owner_id", ownerID).
		Str("provider", providerName).
		Msg("Asset stored")

	return nil
}

// Compile-time interface checks
var (
	_ interfaces.AssetStorage = (*AssetStorage)(nil)
	_ interfaces.AssetSink    = (*AssetStorage)(nil)
)
