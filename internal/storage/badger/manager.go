package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/common"
	"github.com/ternarybob/genero/internal/interfaces"
)

var _ interfaces.StorageManager = (*Manager)(nil)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	job    interfaces.JobStorage
	asset  *AssetStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		job:    NewJobStorage(db, logger),
		asset:  NewAssetStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// AssetStorage returns the Asset storage interface
func (m *Manager) AssetStorage() interfaces.AssetStorage {
	return m.asset
}

// AssetSink returns the asset persistence sink backed by Badger
func (m *Manager) AssetSink() interfaces.AssetSink {
	return m.asset
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
