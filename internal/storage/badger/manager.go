package badger

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	list   interfaces.ListStorage
	chunk  interfaces.ChunkStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		list:   NewListStorage(db, logger),
		chunk:  NewChunkStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ListStorage returns the list storage interface
func (m *Manager) ListStorage() interfaces.ListStorage {
	return m.list
}

// ChunkStorage returns the chunk storage interface
func (m *Manager) ChunkStorage() interfaces.ChunkStorage {
	return m.chunk
}

// RunGarbageCollection rewrites value-log files until Badger reports nothing left to reclaim
func (m *Manager) RunGarbageCollection(discardRatio float64) error {
	rewritten := 0
	for {
		err := m.db.Store().Badger().RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			break
		}
		if err != nil {
			return err
		}
		rewritten++
	}
	m.logger.Debug().Int("rewritten", rewritten).Msg("Value log garbage collection finished")
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
