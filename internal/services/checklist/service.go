// Package checklist maintains the per-document, per-user eligibility
// checklist derived from tender requirements.
package checklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// Service exposes checklist operations over the ledger storage.
type Service struct {
	storage interfaces.ChecklistStorage
	logger  arbor.ILogger
}

// NewService creates a checklist service.
func NewService(storage interfaces.ChecklistStorage, logger arbor.ILogger) *Service {
	return &Service{storage: storage, logger: logger}
}

// Upsert normalizes the criteria text and writes the item. Cosmetic
// variants of the same criterion resolve to one stored row; the write
// carries the caller's status and notes.
func (s *Service) Upsert(ctx context.Context, documentID, userID, criteriaText string, status models.ChecklistStatus, notes string) (*models.ChecklistItem, error) {
	if strings.TrimSpace(criteriaText) == "" {
		return nil, fmt.Errorf("criteria text is required")
	}

	item := &models.ChecklistItem{
		DocumentID:   documentID,
		UserID:       userID,
		CriteriaText: criteriaText,
		Status:       status,
		Notes:        notes,
	}
	stored, err := s.storage.Upsert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("upsert checklist item: %w", err)
	}
	return stored, nil
}

// List returns the user's checklist for a document in insertion order.
func (s *Service) List(ctx context.Context, documentID, userID string) ([]models.ChecklistItem, error) {
	return s.storage.List(ctx, documentID, userID)
}

// SeedFromRecord creates pending checklist items for every required
// document the legal summary names. Existing items keep their status; a
// failed write is logged and skipped so one bad criterion never blocks the
// rest.
func (s *Service) SeedFromRecord(ctx context.Context, record *models.AnalysisRecord, userID string) int {
	legal, ok := record.Summaries[models.DepartmentLegal]
	if !ok {
		return 0
	}
	required, ok := legal["requiredDocuments"].([]interface{})
	if !ok {
		return 0
	}

	existing, err := s.storage.List(ctx, record.DocumentID, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("document_id", record.DocumentID).Msg("Failed to load checklist before seeding")
		return 0
	}
	present := make(map[string]bool, len(existing))
	for _, item := range existing {
		present[item.CriteriaText] = true
	}

	seeded := 0
	for _, raw := range required {
		criteria, ok := raw.(string)
		if !ok || strings.TrimSpace(criteria) == "" {
			continue
		}
		// Re-seeding never resets a criterion the user already reviewed.
		if present[models.NormalizeCriteria(criteria)] {
			continue
		}
		item := &models.ChecklistItem{
			DocumentID:   record.DocumentID,
			UserID:       userID,
			CriteriaText: criteria,
			Status:       models.ChecklistPending,
		}
		if _, err := s.storage.Upsert(ctx, item); err != nil {
			s.logger.Warn().Err(err).Str("criteria", criteria).Msg("Failed to seed checklist item")
			continue
		}
		seeded++
	}

	if seeded > 0 {
		s.logger.Info().
			Str("document_id", record.DocumentID).
			Str("user_id", userID).
			Int("seeded", seeded).
			Msg("Checklist seeded from analysis record")
	}
	return seeded
}

// DeleteByDocument cascades a document deletion to its checklist items.
func (s *Service) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.storage.DeleteByDocument(ctx, documentID)
}

// DeleteByUser cascades a user deletion to their checklist items.
func (s *Service) DeleteByUser(ctx context.Context, userID string) error {
	return s.storage.DeleteByUser(ctx, userID)
}
