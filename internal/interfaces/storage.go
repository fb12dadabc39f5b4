package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/aestimo/internal/models"
)

// FingerprintStorage caches extraction results keyed by
// (content fingerprint, processing version).
type FingerprintStorage interface {
	// Lookup returns the entry for the pair, or ErrFingerprintNotFound on a
	// miss. A hit touches LastAccessedAt. Transient store failures surface
	// as ErrCacheUnavailable.
	Lookup(ctx context.Context, fingerprint, version string) (*models.FingerprintEntry, error)

	// Put inserts or refreshes the entry. Writing the same key with an
	// equal payload is a no-op; a different payload overwrites and bumps
	// UpdatedAt. CreatedAt is preserved across overwrites.
	Put(ctx context.Context, entry *models.FingerprintEntry) error

	// Sweep deletes entries whose processing version differs from
	// keepVersion or whose last access is older than accessedBefore.
	// Returns the number of entries removed.
	Sweep(ctx context.Context, keepVersion string, accessedBefore time.Time) (int, error)
}

// AnalysisStorage persists versioned analysis records.
type AnalysisStorage interface {
	Get(ctx context.Context, documentID, version string) (*models.AnalysisRecord, error)
	Save(ctx context.Context, record *models.AnalysisRecord) error

	// DeleteByDocument removes every version of the document's record.
	DeleteByDocument(ctx context.Context, documentID string) error
}

// ChecklistStorage persists per-(document, user) eligibility checklist items.
type ChecklistStorage interface {
	// Upsert inserts or updates the item keyed by its normalized criteria
	// text. Insertion order (Seq) and CreatedAt are preserved on update.
	Upsert(ctx context.Context, item *models.ChecklistItem) (*models.ChecklistItem, error)

	// List returns the items for a (document, user) pair in stable
	// insertion order.
	List(ctx context.Context, documentID, userID string) ([]models.ChecklistItem, error)

	// DeleteByDocument cascades document deletion to its checklist items.
	DeleteByDocument(ctx context.Context, documentID string) error

	// DeleteByUser cascades user deletion to their checklist items.
	DeleteByUser(ctx context.Context, userID string) error
}

// StorageManager wires the per-collection storages over one database.
type StorageManager interface {
	FingerprintStorage() FingerprintStorage
	AnalysisStorage() AnalysisStorage
	ChecklistStorage() ChecklistStorage
	Close() error
}
