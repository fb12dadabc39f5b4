package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

func newChecklistStorage(t *testing.T) *ChecklistStorage {
	t.Helper()
	db := newTestDB(t)
	storage, err := NewChecklistStorage(db, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewChecklistStorage failed: %v", err)
	}
	t.Cleanup(storage.ReleaseSequence)
	return storage
}

func TestChecklistStorage_Upsert(t *testing.T) {
	storage := newChecklistStorage(t)
	ctx := context.Background()

	t.Run("Cosmetic variants resolve to one row", func(t *testing.T) {
		first, err := storage.Upsert(ctx, &models.ChecklistItem{
			DocumentID:   "doc_1",
			UserID:       "user_1",
			CriteriaText: "Minimum Turnover ",
			Status:       models.ChecklistPending,
		})
		if err != nil {
			t.Fatalf("First upsert failed: %v", err)
		}

		second, err := storage.Upsert(ctx, &models.ChecklistItem{
			DocumentID:   "doc_1",
			UserID:       "user_1",
			CriteriaText: "minimum turnover",
			Status:       models.ChecklistMet,
			Notes:        "FY24 audited statement attached",
		})
		if err != nil {
			t.Fatalf("Second upsert failed: %v", err)
		}

		if second.Seq != first.Seq {
			t.Error("Expected update to keep the original sequence number")
		}

		items, err := storage.List(ctx, "doc_1", "user_1")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(items))
		}
		if items[0].Status != models.ChecklistMet {
			t.Errorf("Expected status from second call, got %q", items[0].Status)
		}
		if items[0].Notes != "FY24 audited statement attached" {
			t.Errorf("Expected notes from second call, got %q", items[0].Notes)
		}
	})

	t.Run("Display text keeps abbreviations", func(t *testing.T) {
		item, err := storage.Upsert(ctx, &models.ChecklistItem{
			DocumentID:   "doc_1",
			UserID:       "user_1",
			CriteriaText: "valid GST registration certificate",
		})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if item.DisplayText != "Valid GST Registration Certificate" {
			t.Errorf("Unexpected display text: %q", item.DisplayText)
		}
		if item.Status != models.ChecklistPending {
			t.Errorf("Expected default pending status, got %q", item.Status)
		}
	})

	t.Run("Missing keys are rejected", func(t *testing.T) {
		if _, err := storage.Upsert(ctx, &models.ChecklistItem{UserID: "user_1", CriteriaText: "x"}); err == nil {
			t.Error("Expected error for missing document ID")
		}
		if _, err := storage.Upsert(ctx, &models.ChecklistItem{DocumentID: "doc_1", UserID: "user_1", CriteriaText: "   "}); err == nil {
			t.Error("Expected error for blank criteria")
		}
	})
}

func TestChecklistStorage_ListOrder(t *testing.T) {
	storage := newChecklistStorage(t)
	ctx := context.Background()

	criteria := []string{"EMD payment proof", "PAN card", "ISO 9001 certificate", "Authorized dealer letter"}
	for _, c := range criteria {
		if _, err := storage.Upsert(ctx, &models.ChecklistItem{
			DocumentID:   "doc_1",
			UserID:       "user_1",
			CriteriaText: c,
		}); err != nil {
			t.Fatalf("Upsert %q failed: %v", c, err)
		}
	}

	// Updating an early item must not move it.
	if _, err := storage.Upsert(ctx, &models.ChecklistItem{
		DocumentID:   "doc_1",
		UserID:       "user_1",
		CriteriaText: "PAN card",
		Status:       models.ChecklistMet,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	items, err := storage.List(ctx, "doc_1", "user_1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != len(criteria) {
		t.Fatalf("Expected %d items, got %d", len(criteria), len(items))
	}
	for i, c := range criteria {
		if items[i].CriteriaText != models.NormalizeCriteria(c) {
			t.Errorf("Position %d: expected %q, got %q", i, models.NormalizeCriteria(c), items[i].CriteriaText)
		}
	}
}

func TestChecklistStorage_Cascades(t *testing.T) {
	storage := newChecklistStorage(t)
	ctx := context.Background()

	for doc := 1; doc <= 2; doc++ {
		for user := 1; user <= 2; user++ {
			if _, err := storage.Upsert(ctx, &models.ChecklistItem{
				DocumentID:   fmt.Sprintf("doc_%d", doc),
				UserID:       fmt.Sprintf("user_%d", user),
				CriteriaText: "EMD payment proof",
			}); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := storage.DeleteByDocument(ctx, "doc_1"); err != nil {
		t.Fatalf("DeleteByDocument failed: %v", err)
	}
	items, _ := storage.List(ctx, "doc_1", "user_1")
	if len(items) != 0 {
		t.Errorf("Expected doc_1 items gone, got %d", len(items))
	}

	if err := storage.DeleteByUser(ctx, "user_2"); err != nil {
		t.Fatalf("DeleteByUser failed: %v", err)
	}
	items, _ = storage.List(ctx, "doc_2", "user_2")
	if len(items) != 0 {
		t.Errorf("Expected user_2 items gone, got %d", len(items))
	}
	items, _ = storage.List(ctx, "doc_2", "user_1")
	if len(items) != 1 {
		t.Errorf("Expected doc_2/user_1 item to survive, got %d", len(items))
	}
}
