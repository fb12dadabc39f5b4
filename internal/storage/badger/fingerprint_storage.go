package badger

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// FingerprintStorage implements the FingerprintStorage interface for Badger
type FingerprintStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFingerprintStorage creates a new FingerprintStorage instance
func NewFingerprintStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FingerprintStorage {
	return &FingerprintStorage{
		db:     db,
		logger: logger,
	}
}

// Lookup returns the cached extraction result for a
// (fingerprint, processing version) pair. A hit touches LastAccessedAt so
// the sweeper can age out cold entries. Store I/O failures surface as
// ErrCacheUnavailable; callers treat that the same as a miss.
func (s *FingerprintStorage) Lookup(ctx context.Context, fingerprint, version string) (*models.FingerprintEntry, error) {
	key := models.FingerprintKey(fingerprint, version)

	var entry models.FingerprintEntry
	err := s.db.Store().Get(key, &entry)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrFingerprintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrCacheUnavailable, err)
	}

	// Access-time touch is bookkeeping only; a failed touch never fails
	// the lookup.
	entry.LastAccessedAt = time.Now()
	if err := s.db.Store().Upsert(key, &entry); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", shortFingerprint(fingerprint)).Msg("Failed to touch cache entry access time")
	}

	return &entry, nil
}

// Put inserts or refreshes a cache entry. A second Put with an equal payload
// is a no-op; a changed payload overwrites and bumps UpdatedAt. CreatedAt
// survives overwrites.
func (s *FingerprintStorage) Put(ctx context.Context, entry *models.FingerprintEntry) error {
	if entry.Fingerprint == "" || entry.ProcessingVersion == "" {
		return fmt.Errorf("fingerprint and processing version are required")
	}

	key := entry.Key()
	now := time.Now()

	var existing models.FingerprintEntry
	err := s.db.Store().Get(key, &existing)
	switch {
	case err == nil:
		if reflect.DeepEqual(existing.Result, entry.Result) {
			s.logger.Debug().
				Str("fingerprint", shortFingerprint(entry.Fingerprint)).
				Str("version", entry.ProcessingVersion).
				Msg("Cache entry unchanged, skipping write")
			return nil
		}
		entry.CreatedAt = existing.CreatedAt
		entry.UpdatedAt = now
	case err == badgerhold.ErrNotFound:
		entry.CreatedAt = now
		entry.UpdatedAt = now
	default:
		return fmt.Errorf("%w: %v", interfaces.ErrCacheUnavailable, err)
	}

	if entry.LastAccessedAt.IsZero() {
		entry.LastAccessedAt = now
	}

	if err := s.db.Store().Upsert(key, entry); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrCacheUnavailable, err)
	}

	s.logger.Info().
		Str("fingerprint", shortFingerprint(entry.Fingerprint)).
		Str("version", entry.ProcessingVersion).
		Msg("Cached extraction result")

	return nil
}

// Sweep removes entries for superseded processing versions and entries not
// accessed since accessedBefore. Returns the number of entries removed.
func (s *FingerprintStorage) Sweep(ctx context.Context, keepVersion string, accessedBefore time.Time) (int, error) {
	var entries []models.FingerprintEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}

	removed := 0
	for i := range entries {
		entry := &entries[i]
		stale := entry.ProcessingVersion != keepVersion || entry.LastAccessedAt.Before(accessedBefore)
		if !stale {
			continue
		}
		if err := s.db.Store().Delete(entry.Key(), &models.FingerprintEntry{}); err != nil && err != badgerhold.ErrNotFound {
			return removed, fmt.Errorf("failed to delete cache entry: %w", err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info().
			Int("removed", removed).
			Str("keep_version", keepVersion).
			Msg("Swept fingerprint cache")
	}

	return removed, nil
}

// shortFingerprint truncates a hash for log lines.
func shortFingerprint(fingerprint string) string {
	if len(fingerprint) > 8 {
		return fingerprint[:8]
	}
	return fingerprint
}
