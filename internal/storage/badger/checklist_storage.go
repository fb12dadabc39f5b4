package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// ChecklistStorage implements the ChecklistStorage interface for Badger.
// Insertion order is tracked with a monotonic Badger sequence so List can
// return items in the order they first appeared.
type ChecklistStorage struct {
	db     *BadgerDB
	seq    *badgerdb.Sequence
	logger arbor.ILogger
}

// NewChecklistStorage creates a new ChecklistStorage instance
func NewChecklistStorage(db *BadgerDB, logger arbor.ILogger) (*ChecklistStorage, error) {
	seq, err := db.Store().Badger().GetSequence([]byte("checklist_seq"), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to create checklist sequence: %w", err)
	}

	return &ChecklistStorage{
		db:     db,
		seq:    seq,
		logger: logger,
	}, nil
}

// ReleaseSequence returns unused sequence numbers to Badger. Called on
// manager close.
func (s *ChecklistStorage) ReleaseSequence() {
	if s.seq != nil {
		if err := s.seq.Release(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to release checklist sequence")
		}
	}
}

// Upsert inserts or updates a checklist item keyed by
// (document, user, normalized criteria). Criteria text is normalized here so
// cosmetic variants never create duplicate rows. Updates keep the original
// Seq and CreatedAt so insertion order is stable.
func (s *ChecklistStorage) Upsert(ctx context.Context, item *models.ChecklistItem) (*models.ChecklistItem, error) {
	if item.DocumentID == "" || item.UserID == "" {
		return nil, fmt.Errorf("document ID and user ID are required")
	}

	normalized := models.NormalizeCriteria(item.CriteriaText)
	if normalized == "" {
		return nil, fmt.Errorf("criteria text is required")
	}

	stored := *item
	if stored.DisplayText == "" {
		stored.DisplayText = models.NormalizeDisplayText(item.CriteriaText)
	}
	stored.CriteriaText = normalized
	if stored.Status == "" {
		stored.Status = models.ChecklistPending
	}

	key := stored.Key()
	now := time.Now()

	var existing models.ChecklistItem
	err := s.db.Store().Get(key, &existing)
	switch {
	case err == nil:
		stored.Seq = existing.Seq
		stored.CreatedAt = existing.CreatedAt
		stored.UpdatedAt = now
	case err == badgerhold.ErrNotFound:
		next, seqErr := s.seq.Next()
		if seqErr != nil {
			return nil, fmt.Errorf("failed to allocate checklist sequence: %w", seqErr)
		}
		stored.Seq = next
		stored.CreatedAt = now
		stored.UpdatedAt = now
	default:
		return nil, fmt.Errorf("failed to check checklist item: %w", err)
	}

	if err := s.db.Store().Upsert(key, &stored); err != nil {
		return nil, fmt.Errorf("failed to upsert checklist item: %w", err)
	}

	return &stored, nil
}

// List returns the checklist for a (document, user) pair in stable insertion
// order.
func (s *ChecklistStorage) List(ctx context.Context, documentID, userID string) ([]models.ChecklistItem, error) {
	var items []models.ChecklistItem
	err := s.db.Store().Find(&items,
		badgerhold.Where("DocumentID").Eq(documentID).And("UserID").Eq(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Seq < items[j].Seq
	})

	return items, nil
}

// DeleteByDocument cascades document deletion to its checklist items.
func (s *ChecklistStorage) DeleteByDocument(ctx context.Context, documentID string) error {
	err := s.db.Store().DeleteMatching(&models.ChecklistItem{}, badgerhold.Where("DocumentID").Eq(documentID))
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete checklist items for document: %w", err)
	}
	return nil
}

// DeleteByUser cascades user deletion to their checklist items.
func (s *ChecklistStorage) DeleteByUser(ctx context.Context, userID string) error {
	err := s.db.Store().DeleteMatching(&models.ChecklistItem{}, badgerhold.Where("UserID").Eq(userID))
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete checklist items for user: %w", err)
	}
	return nil
}

// Ensure interface compliance at compile time.
var _ interfaces.ChecklistStorage = (*ChecklistStorage)(nil)
