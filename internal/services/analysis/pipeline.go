package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/services/checklist"
	"github.com/ternarybob/aestimo/internal/services/enrichment"
	"github.com/ternarybob/arbor"
)

// AnalyzeRequest carries one document through the pipeline.
type AnalyzeRequest struct {
	DocumentID string
	UserID     string
	Content    []byte

	// Force bypasses the fingerprint cache and replaces the stored record
	// instead of merging into it.
	Force bool
}

// Pipeline runs the full analysis flow for a document: fingerprint lookup,
// base extraction, item dedup, bounded enrichment, record merge, cache
// write-back and checklist seeding.
type Pipeline struct {
	config       *common.PipelineConfig
	gateway      interfaces.ExtractionService
	dispatcher   *enrichment.Dispatcher
	merger       *Merger
	fingerprints interfaces.FingerprintStorage
	records      interfaces.AnalysisStorage
	checklist    *checklist.Service
	logger       arbor.ILogger
}

// NewPipeline wires the pipeline. Configuration is passed in explicitly so
// multiple pipelines with different settings can coexist in one process.
func NewPipeline(config *common.PipelineConfig, storage interfaces.StorageManager, gateway interfaces.ExtractionService, checklistSvc *checklist.Service, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		config:       config,
		gateway:      gateway,
		dispatcher:   enrichment.NewDispatcher(gateway, config.EnrichmentConcurrency, logger),
		merger:       NewMerger(storage.AnalysisStorage(), logger),
		fingerprints: storage.FingerprintStorage(),
		records:      storage.AnalysisStorage(),
		checklist:    checklistSvc,
		logger:       logger,
	}
}

// Analyze produces the versioned analysis record for the document. Identical
// content under the same processing version is served from the fingerprint
// cache without touching the external provider.
func (p *Pipeline) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisRecord, error) {
	if req.DocumentID == "" {
		return nil, fmt.Errorf("document ID is required")
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("document content is empty")
	}

	startTime := time.Now()
	version := p.config.ProcessingVersion
	fingerprint := models.Fingerprint(req.Content)

	if !req.Force {
		if record, ok := p.fromCache(ctx, req, fingerprint, version); ok {
			return record, nil
		}
	}

	result, err := p.gateway.Extract(ctx, string(req.Content))
	if err != nil {
		// A wholly failed base extraction leaves no partial record behind.
		return nil, err
	}

	result.Items = DedupItems(result.Items, p.config.DedupThreshold, p.logger)

	enriched, stats := p.dispatcher.Dispatch(ctx, result.Items)

	partial := &models.AnalysisRecord{
		Summaries:  result.Summaries,
		Items:      enriched,
		Enrichment: stats,
	}
	record, err := p.merger.Upsert(ctx, req.DocumentID, version, partial, req.Force)
	if err != nil {
		return nil, err
	}

	p.writeCache(ctx, fingerprint, version, record)
	p.seedChecklist(ctx, record, req.UserID)

	p.logger.Info().
		Str("document_id", req.DocumentID).
		Str("version", version).
		Int("items", len(record.Items)).
		Int("enriched", stats.Enriched).
		Int("failed", stats.Failed).
		Dur("duration", time.Since(startTime)).
		Msg("Document analysis completed")

	return record, nil
}

// fromCache serves the request from the fingerprint store. A transient
// cache failure degrades to a miss; the cache is an optimization, never a
// source of truth.
func (p *Pipeline) fromCache(ctx context.Context, req AnalyzeRequest, fingerprint, version string) (*models.AnalysisRecord, bool) {
	entry, err := p.fingerprints.Lookup(ctx, fingerprint, version)
	if err != nil {
		if errors.Is(err, interfaces.ErrCacheUnavailable) {
			p.logger.Warn().Err(err).Msg("Fingerprint cache unavailable, proceeding with extraction")
		}
		return nil, false
	}

	stats := models.EnrichmentStats{}
	for i := range entry.Result.Items {
		if !entry.Result.Items[i].NeedsEnrichment() {
			stats.Skipped++
		}
		stats.Recommendations += len(entry.Result.Items[i].Recommendations)
	}

	partial := &models.AnalysisRecord{
		Summaries:  entry.Result.Summaries,
		Items:      entry.Result.Items,
		Enrichment: stats,
	}
	record, err := p.merger.Upsert(ctx, req.DocumentID, version, partial, false)
	if err != nil {
		p.logger.Warn().Err(err).Str("document_id", req.DocumentID).Msg("Failed to upsert cached result, re-extracting")
		return nil, false
	}

	p.seedChecklist(ctx, record, req.UserID)

	p.logger.Info().
		Str("document_id", req.DocumentID).
		Str("fingerprint", fingerprint[:12]).
		Msg("Analysis served from fingerprint cache")

	return record, true
}

// writeCache stores the enriched result for future identical content. A
// failed write is logged and absorbed.
func (p *Pipeline) writeCache(ctx context.Context, fingerprint, version string, record *models.AnalysisRecord) {
	entry := &models.FingerprintEntry{
		Fingerprint:       fingerprint,
		ProcessingVersion: version,
		Result: models.ExtractionResult{
			Summaries: record.Summaries,
			Items:     record.Items,
		},
	}
	if err := p.fingerprints.Put(ctx, entry); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to write fingerprint cache entry")
	}
}

func (p *Pipeline) seedChecklist(ctx context.Context, record *models.AnalysisRecord, userID string) {
	if p.checklist == nil || userID == "" {
		return
	}
	p.checklist.SeedFromRecord(ctx, record, userID)
}

// GetRecord returns the stored analysis record for the current processing
// version.
func (p *Pipeline) GetRecord(ctx context.Context, documentID string) (*models.AnalysisRecord, error) {
	return p.records.Get(ctx, documentID, p.config.ProcessingVersion)
}

// DeleteDocument removes the document's analysis records and cascades to
// its checklist items. Fingerprint cache entries are left alone since other
// byte-identical documents may share them.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentID string) error {
	if err := p.records.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete analysis records: %w", err)
	}
	p.merger.Forget(documentID)
	if p.checklist != nil {
		if err := p.checklist.DeleteByDocument(ctx, documentID); err != nil {
			return fmt.Errorf("delete checklist items: %w", err)
		}
	}
	return nil
}
