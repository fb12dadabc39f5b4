package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

func TestAnalysisStorage(t *testing.T) {
	db := newTestDB(t)
	storage := NewAnalysisStorage(db, arbor.NewLogger())
	ctx := context.Background()

	t.Run("Get before save misses", func(t *testing.T) {
		_, err := storage.Get(ctx, "doc_1", "v1")
		if !errors.Is(err, interfaces.ErrRecordNotFound) {
			t.Errorf("Expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("Save and get round-trip", func(t *testing.T) {
		record := &models.AnalysisRecord{
			DocumentID:        "doc_1",
			ProcessingVersion: "v1",
			Summaries: map[models.Department]models.SummaryFields{
				models.DepartmentFinance: {"bidValue": "45,00,000 INR"},
			},
			Items: []models.ExtractedItem{
				{ID: "item_1", Name: "Switch", Vendor: "Cisco", Source: models.SourceDocument},
			},
		}
		if err := storage.Save(ctx, record); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if record.CreatedAt.IsZero() || record.UpdatedAt.IsZero() {
			t.Error("Expected timestamps to be set on save")
		}

		loaded, err := storage.Get(ctx, "doc_1", "v1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if loaded.Items[0].Vendor != "Cisco" {
			t.Error("Expected saved item to round-trip")
		}
	})

	t.Run("Versions are independent records", func(t *testing.T) {
		record := &models.AnalysisRecord{
			DocumentID:        "doc_1",
			ProcessingVersion: "v2",
		}
		if err := storage.Save(ctx, record); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		v1, err := storage.Get(ctx, "doc_1", "v1")
		if err != nil {
			t.Fatalf("Get v1 failed: %v", err)
		}
		if len(v1.Items) != 1 {
			t.Error("Expected v1 record to be untouched by v2 save")
		}
	})

	t.Run("Unknown department is rejected", func(t *testing.T) {
		record := &models.AnalysisRecord{
			DocumentID:        "doc_2",
			ProcessingVersion: "v1",
			Summaries: map[models.Department]models.SummaryFields{
				"marketing": {"campaign": "x"},
			},
		}
		err := storage.Save(ctx, record)
		if !errors.Is(err, interfaces.ErrUnknownDepartment) {
			t.Errorf("Expected ErrUnknownDepartment, got %v", err)
		}
	})

	t.Run("DeleteByDocument removes all versions", func(t *testing.T) {
		if err := storage.DeleteByDocument(ctx, "doc_1"); err != nil {
			t.Fatalf("DeleteByDocument failed: %v", err)
		}
		if _, err := storage.Get(ctx, "doc_1", "v1"); !errors.Is(err, interfaces.ErrRecordNotFound) {
			t.Error("Expected v1 record to be deleted")
		}
		if _, err := storage.Get(ctx, "doc_1", "v2"); !errors.Is(err, interfaces.ErrRecordNotFound) {
			t.Error("Expected v2 record to be deleted")
		}
	})
}
