package analysis

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/services/checklist"
	"github.com/ternarybob/arbor"
)

func newTestPipeline(t *testing.T, gateway *MockGateway) (*Pipeline, *MemoryStorageManager) {
	t.Helper()
	config := &common.PipelineConfig{
		ProcessingVersion:     "v1",
		EnrichmentConcurrency: 5,
		MaxRetries:            3,
		ExtractionTimeout:     time.Minute,
		EnrichmentTimeout:     30 * time.Second,
		DedupThreshold:        0.85,
	}
	storage := NewMemoryStorageManager()
	logger := arbor.NewLogger()
	checklistSvc := checklist.NewService(storage.ChecklistStorage(), logger)
	return NewPipeline(config, storage, gateway, checklistSvc, logger), storage
}

func scriptedExtraction() *models.ExtractionResult {
	return &models.ExtractionResult{
		Summaries: map[models.Department]models.SummaryFields{
			models.DepartmentFinance: {"bidValue": "45,00,000 INR"},
			models.DepartmentLegal: {
				"requiredDocuments": []interface{}{"GST certificate", "PAN card"},
			},
		},
		Items: []models.ExtractedItem{
			{ID: "item_1", Name: "Switch", Source: models.SourceDocument},
			{ID: "item_2", Name: "Router", Source: models.SourceDocument},
			{ID: "item_3", Name: "Firewall", Source: models.SourceDocument},
		},
	}
}

func TestPipeline_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("Cache miss runs the full flow", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractResult = scriptedExtraction()
		gateway.failFor["Firewall"] = errors.New("provider exploded")
		p, _ := newTestPipeline(t, gateway)

		record, err := p.Analyze(ctx, AnalyzeRequest{
			DocumentID: "doc_1",
			UserID:     "user_1",
			Content:    []byte("tender text"),
		})
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		extracts, recommends := gateway.Calls()
		if extracts != 1 {
			t.Errorf("Expected 1 extract call, got %d", extracts)
		}
		if recommends != 3 {
			t.Errorf("Expected 3 recommend calls, got %d", recommends)
		}
		if record.Enrichment.Attempted != 3 || record.Enrichment.Enriched != 2 || record.Enrichment.Failed != 1 {
			t.Errorf("Unexpected enrichment stats: %+v", record.Enrichment)
		}

		var unenriched int
		for _, item := range record.Items {
			if len(item.Recommendations) == 0 {
				unenriched++
			}
		}
		if unenriched != 1 {
			t.Errorf("Expected exactly 1 unenriched item, got %d", unenriched)
		}
	})

	t.Run("Second run with identical content hits the cache", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractResult = scriptedExtraction()
		gateway.failFor["Firewall"] = errors.New("provider exploded")
		p, _ := newTestPipeline(t, gateway)

		content := []byte("tender text")
		first, err := p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", UserID: "user_1", Content: content})
		if err != nil {
			t.Fatalf("First analyze failed: %v", err)
		}

		second, err := p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", UserID: "user_1", Content: content})
		if err != nil {
			t.Fatalf("Second analyze failed: %v", err)
		}

		extracts, recommends := gateway.Calls()
		if extracts != 1 {
			t.Errorf("Expected cache hit to skip extraction, got %d extract calls", extracts)
		}
		if recommends != 3 {
			t.Errorf("Expected cache hit to skip enrichment, got %d recommend calls", recommends)
		}
		if !reflect.DeepEqual(first.Summaries, second.Summaries) {
			t.Error("Expected identical summaries from the cache")
		}
		if !reflect.DeepEqual(first.Items, second.Items) {
			t.Error("Expected identical items from the cache")
		}
	})

	t.Run("Shared fingerprint serves a second document", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractResult = scriptedExtraction()
		p, storage := newTestPipeline(t, gateway)

		content := []byte("tender text")
		p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", Content: content})
		record, err := p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_2", Content: content})
		if err != nil {
			t.Fatalf("Analyze for second document failed: %v", err)
		}

		extracts, _ := gateway.Calls()
		if extracts != 1 {
			t.Errorf("Expected byte-identical documents to share one extraction, got %d", extracts)
		}
		if record.DocumentID != "doc_2" {
			t.Errorf("Expected record for doc_2, got %s", record.DocumentID)
		}
		if _, err := storage.AnalysisStorage().Get(ctx, "doc_2", "v1"); err != nil {
			t.Errorf("Expected stored record for doc_2: %v", err)
		}
	})

	t.Run("Version bump misses the cache", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractResult = scriptedExtraction()
		p, _ := newTestPipeline(t, gateway)

		content := []byte("tender text")
		p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", Content: content})

		p.config.ProcessingVersion = "v2"
		p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", Content: content})

		extracts, _ := gateway.Calls()
		if extracts != 2 {
			t.Errorf("Expected version bump to force re-extraction, got %d extract calls", extracts)
		}
	})

	t.Run("Cache outage degrades to a miss", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractResult = scriptedExtraction()
		p, storage := newTestPipeline(t, gateway)
		storage.fingerprints.failing = true

		_, err := p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", Content: []byte("tender text")})
		if err != nil {
			t.Fatalf("Expected pipeline to survive cache outage, got %v", err)
		}

		extracts, _ := gateway.Calls()
		if extracts != 1 {
			t.Errorf("Expected extraction despite cache outage, got %d", extracts)
		}
	})

	t.Run("Failed base extraction leaves no record", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractErr = interfaces.ErrExtractionFailed
		p, storage := newTestPipeline(t, gateway)

		_, err := p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", Content: []byte("tender text")})
		if !errors.Is(err, interfaces.ErrExtractionFailed) {
			t.Fatalf("Expected ErrExtractionFailed, got %v", err)
		}
		if _, err := storage.AnalysisStorage().Get(ctx, "doc_1", "v1"); !errors.Is(err, interfaces.ErrRecordNotFound) {
			t.Error("Expected no partial record after failed extraction")
		}
	})

	t.Run("Force bypasses cache and resets the record", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractResult = scriptedExtraction()
		p, _ := newTestPipeline(t, gateway)

		content := []byte("tender text")
		p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", Content: content})
		p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", Content: content, Force: true})

		extracts, _ := gateway.Calls()
		if extracts != 2 {
			t.Errorf("Expected forced run to re-extract, got %d extract calls", extracts)
		}
	})

	t.Run("Checklist is seeded from required documents", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractResult = scriptedExtraction()
		p, storage := newTestPipeline(t, gateway)

		p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", UserID: "user_1", Content: []byte("tender text")})

		items, err := storage.ChecklistStorage().List(ctx, "doc_1", "user_1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 seeded checklist items, got %d", len(items))
		}
		if items[0].CriteriaText != "gst certificate" {
			t.Errorf("Expected normalized first criterion, got %q", items[0].CriteriaText)
		}
		for _, item := range items {
			if item.Status != models.ChecklistPending {
				t.Errorf("Expected seeded item to be pending, got %q", item.Status)
			}
		}
	})

	t.Run("Delete cascades to checklist", func(t *testing.T) {
		gateway := NewMockGateway()
		gateway.extractResult = scriptedExtraction()
		p, storage := newTestPipeline(t, gateway)

		p.Analyze(ctx, AnalyzeRequest{DocumentID: "doc_1", UserID: "user_1", Content: []byte("tender text")})

		if err := p.DeleteDocument(ctx, "doc_1"); err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}
		if _, err := storage.AnalysisStorage().Get(ctx, "doc_1", "v1"); !errors.Is(err, interfaces.ErrRecordNotFound) {
			t.Error("Expected analysis record to be deleted")
		}
		items, _ := storage.ChecklistStorage().List(ctx, "doc_1", "user_1")
		if len(items) != 0 {
			t.Errorf("Expected checklist cascade, got %d items", len(items))
		}
	})
}
