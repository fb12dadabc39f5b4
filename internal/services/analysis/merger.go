// Package analysis orchestrates the document analysis pipeline: fingerprint
// cache, base extraction, item enrichment and the versioned record merge.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// Merger upserts analysis records with field-level additive merge semantics.
// Writes to the same (document, version) pair are serialized through an
// exclusive lock; different pairs proceed in parallel.
type Merger struct {
	storage interfaces.AnalysisStorage
	logger  arbor.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMerger creates a merger over the given record storage.
func NewMerger(storage interfaces.AnalysisStorage, logger arbor.ILogger) *Merger {
	return &Merger{
		storage: storage,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the exclusive lock for one (document, version) pair.
// Locks are created on first use and held until the document is forgotten;
// the per-pair footprint is one mutex.
func (m *Merger) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// Forget drops the lock entries for every version of the document, so the
// table does not grow with the set of all documents ever analyzed. A writer
// racing the delete keeps the mutex it already holds; the next upsert for
// the pair creates a fresh one.
func (m *Merger) Forget(documentID string) {
	prefix := documentID + ":"
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.locks {
		if strings.HasPrefix(key, prefix) {
			delete(m.locks, key)
		}
	}
}

// Upsert merges the partial record into the stored record for the pair and
// persists the result. Summary fields merge at field granularity: a field
// present in the partial replaces the stored value, a field only present in
// the stored record is preserved. Items follow vendor gap-fill semantics.
// fullReset discards the stored record first.
func (m *Merger) Upsert(ctx context.Context, documentID, version string, partial *models.AnalysisRecord, fullReset bool) (*models.AnalysisRecord, error) {
	if err := validateSummaries(partial.Summaries); err != nil {
		return nil, err
	}

	key := models.AnalysisKey(documentID, version)
	lock := m.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.storage.Get(ctx, documentID, version)
	if err != nil && !errors.Is(err, interfaces.ErrRecordNotFound) {
		return nil, fmt.Errorf("load record for merge: %w", err)
	}

	var merged *models.AnalysisRecord
	if existing == nil || fullReset {
		merged = &models.AnalysisRecord{
			DocumentID:        documentID,
			ProcessingVersion: version,
			Summaries:         cloneSummaries(partial.Summaries),
			Items:             cloneItems(partial.Items),
			Enrichment:        partial.Enrichment,
		}
		if existing != nil {
			merged.CreatedAt = existing.CreatedAt
		}
	} else {
		merged = mergeRecords(existing, partial)
	}
	merged.UpdatedAt = time.Now()

	if err := m.storage.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("save merged record: %w", err)
	}

	m.logger.Debug().
		Str("document_id", documentID).
		Str("version", version).
		Int("departments", len(merged.Summaries)).
		Int("items", len(merged.Items)).
		Msg("Analysis record upserted")

	return merged, nil
}

// mergeRecords folds the partial record into a copy of the existing one.
func mergeRecords(existing, partial *models.AnalysisRecord) *models.AnalysisRecord {
	merged := &models.AnalysisRecord{
		DocumentID:        existing.DocumentID,
		ProcessingVersion: existing.ProcessingVersion,
		Summaries:         cloneSummaries(existing.Summaries),
		Items:             cloneItems(existing.Items),
		Enrichment:        existing.Enrichment,
		CreatedAt:         existing.CreatedAt,
	}

	for dept, fields := range partial.Summaries {
		target, ok := merged.Summaries[dept]
		if !ok {
			target = make(models.SummaryFields, len(fields))
			merged.Summaries[dept] = target
		}
		for name, value := range fields {
			target[name] = value
		}
	}

	if len(partial.Items) > 0 {
		merged.Items = mergeItems(merged.Items, partial.Items)
	}
	if partial.Enrichment != (models.EnrichmentStats{}) {
		merged.Enrichment = partial.Enrichment
	}

	return merged
}

// mergeItems replaces the stored item list with the incoming one, carrying
// forward a stored vendor, model or recommendation list wherever the new
// item left the field empty. A vendor the document stated is never lost to
// an enrichment gap on a later run.
func mergeItems(stored, incoming []models.ExtractedItem) []models.ExtractedItem {
	byName := make(map[string]models.ExtractedItem, len(stored))
	for _, item := range stored {
		byName[item.Name] = item
	}

	merged := make([]models.ExtractedItem, 0, len(incoming))
	for _, item := range incoming {
		prior, ok := byName[item.Name]
		if ok {
			if item.Vendor == "" && prior.Vendor != "" {
				item.Vendor = prior.Vendor
				item.Source = prior.Source
			}
			if item.Model == "" && prior.Model != "" {
				item.Model = prior.Model
			}
			if len(item.Recommendations) == 0 && len(prior.Recommendations) > 0 {
				item.Recommendations = prior.Recommendations
			}
			if item.ID == "" {
				item.ID = prior.ID
			}
		}
		merged = append(merged, item)
	}
	return merged
}

func validateSummaries(summaries map[models.Department]models.SummaryFields) error {
	for dept := range summaries {
		if !dept.IsValid() {
			return fmt.Errorf("%w: %q", interfaces.ErrUnknownDepartment, dept)
		}
	}
	return nil
}

func cloneSummaries(summaries map[models.Department]models.SummaryFields) map[models.Department]models.SummaryFields {
	out := make(map[models.Department]models.SummaryFields, len(summaries))
	for dept, fields := range summaries {
		copied := make(models.SummaryFields, len(fields))
		for name, value := range fields {
			copied[name] = value
		}
		out[dept] = copied
	}
	return out
}

func cloneItems(items []models.ExtractedItem) []models.ExtractedItem {
	out := make([]models.ExtractedItem, len(items))
	copy(out, items)
	return out
}
