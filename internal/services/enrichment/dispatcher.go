// Package enrichment fans extracted items out to the recommendation
// gateway, bounded by a concurrency cap, and folds the ranked candidates
// back into the items.
package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// DefaultConcurrency caps in-flight recommendation calls when the
// configured value is missing or invalid.
const DefaultConcurrency = 5

// Dispatcher runs recommendation lookups for items that still need a
// vendor or model.
type Dispatcher struct {
	gateway     interfaces.ExtractionService
	concurrency int
	logger      arbor.ILogger
}

// NewDispatcher creates a dispatcher over the given gateway.
func NewDispatcher(gateway interfaces.ExtractionService, concurrency int, logger arbor.ILogger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Dispatcher{
		gateway:     gateway,
		concurrency: concurrency,
		logger:      logger,
	}
}

type itemResult struct {
	index int
	recs  []models.Recommendation
	err   error
}

// Dispatch enriches every item that needs it and returns the items in
// their original order alongside run statistics. A failed lookup leaves
// that item untouched and never aborts the run.
func (d *Dispatcher) Dispatch(ctx context.Context, items []models.ExtractedItem) ([]models.ExtractedItem, models.EnrichmentStats) {
	startTime := time.Now()

	enriched := make([]models.ExtractedItem, len(items))
	copy(enriched, items)

	stats := models.EnrichmentStats{}

	var pending []int
	for i, item := range enriched {
		if item.NeedsEnrichment() {
			pending = append(pending, i)
		} else {
			stats.Skipped++
		}
	}
	stats.Attempted = len(pending)

	if len(pending) == 0 {
		d.logger.Debug().Int("items", len(items)).Msg("No items need enrichment")
		return enriched, stats
	}

	results := make(chan itemResult, len(pending))
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.concurrency)

	for _, idx := range pending {
		wg.Add(1)
		go func(i int, item models.ExtractedItem) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results <- itemResult{index: i, err: ctx.Err()}
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
			}

			recs, err := d.gateway.Recommend(ctx, item)
			results <- itemResult{index: i, recs: recs, err: err}
		}(idx, enriched[idx])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err != nil {
			stats.Failed++
			d.logger.Warn().Err(r.err).Str("item", enriched[r.index].Name).Msg("Item enrichment failed")
			continue
		}

		ranked := models.RankRecommendations(r.recs)
		enriched[r.index].Recommendations = ranked
		promotePrimary(&enriched[r.index])

		stats.Enriched++
		stats.Recommendations += len(ranked)
		for _, rec := range ranked {
			if rec.LocalOrigin {
				stats.LocalOrigin++
			}
		}
	}

	d.logger.Info().
		Int("attempted", stats.Attempted).
		Int("enriched", stats.Enriched).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Int("recommendations", stats.Recommendations).
		Dur("duration", time.Since(startTime)).
		Msg("Enrichment dispatch completed")

	return enriched, stats
}

// promotePrimary fills the item's missing vendor/model from the top
// candidate. Fields already stated in the document are never overwritten.
// Source tracks vendor provenance: it flips to inferred only when a missing
// vendor is filled, so a model-only fill keeps a document-named vendor's
// source intact.
func promotePrimary(item *models.ExtractedItem) {
	if len(item.Recommendations) == 0 {
		return
	}
	primary := item.Recommendations[0]

	if item.Vendor == "" && primary.Vendor != "" {
		item.Vendor = primary.Vendor
		item.Source = models.SourceInferred
	}
	if item.Model == "" && primary.Model != "" {
		item.Model = primary.Model
	}
}
