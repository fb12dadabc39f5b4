package badger

import (
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	fingerprint interfaces.FingerprintStorage
	analysis    interfaces.AnalysisStorage
	checklist   interfaces.ChecklistStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	checklist, err := NewChecklistStorage(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	manager := &Manager{
		db:          db,
		fingerprint: NewFingerprintStorage(db, logger),
		analysis:    NewAnalysisStorage(db, logger),
		checklist:   checklist,
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// FingerprintStorage returns the fingerprint cache storage interface
func (m *Manager) FingerprintStorage() interfaces.FingerprintStorage {
	return m.fingerprint
}

// AnalysisStorage returns the analysis record storage interface
func (m *Manager) AnalysisStorage() interfaces.AnalysisStorage {
	return m.analysis
}

// ChecklistStorage returns the checklist storage interface
func (m *Manager) ChecklistStorage() interfaces.ChecklistStorage {
	return m.checklist
}

// Close closes the database connection
func (m *Manager) Close() error {
	if c, ok := m.checklist.(*ChecklistStorage); ok {
		c.ReleaseSequence()
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
