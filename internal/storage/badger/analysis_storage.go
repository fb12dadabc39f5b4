package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// AnalysisStorage implements the AnalysisStorage interface for Badger
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
	}
}

// Get returns the analysis record for a (document, processing version) pair.
func (s *AnalysisStorage) Get(ctx context.Context, documentID, version string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	err := s.db.Store().Get(models.AnalysisKey(documentID, version), &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis record: %w", err)
	}
	return &record, nil
}

// Save upserts the record under its (document, version) key. Unknown
// departments are rejected before anything is written.
func (s *AnalysisStorage) Save(ctx context.Context, record *models.AnalysisRecord) error {
	if record.DocumentID == "" || record.ProcessingVersion == "" {
		return fmt.Errorf("document ID and processing version are required")
	}
	for dept := range record.Summaries {
		if !dept.IsValid() {
			return fmt.Errorf("%w: %q", interfaces.ErrUnknownDepartment, dept)
		}
	}

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := s.db.Store().Upsert(record.Key(), record); err != nil {
		return fmt.Errorf("failed to save analysis record: %w", err)
	}
	return nil
}

// DeleteByDocument removes every version of the document's analysis record.
func (s *AnalysisStorage) DeleteByDocument(ctx context.Context, documentID string) error {
	err := s.db.Store().DeleteMatching(&models.AnalysisRecord{}, badgerhold.Where("DocumentID").Eq(documentID))
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete analysis records: %w", err)
	}

	s.logger.Debug().Str("document_id", documentID).Msg("Deleted analysis records for document")
	return nil
}
