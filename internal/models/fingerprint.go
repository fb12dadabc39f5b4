package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// FingerprintEntry caches the extraction result for one document content
// fingerprint under one processing version. Entries are immutable once
// written except for access-time bookkeeping; a processing version bump
// creates a new entry rather than mutating the old one.
type FingerprintEntry struct {
	Fingerprint       string           `json:"fingerprint"`
	ProcessingVersion string           `json:"processing_version"`
	Result            ExtractionResult `json:"result"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	LastAccessedAt    time.Time        `json:"last_accessed_at"`
}

// Key returns the storage key for the entry.
func (e *FingerprintEntry) Key() string {
	return FingerprintKey(e.Fingerprint, e.ProcessingVersion)
}

// FingerprintKey builds the composite storage key for a
// (fingerprint, processing version) pair.
func FingerprintKey(fingerprint, version string) string {
	return fingerprint + ":" + version
}

// Fingerprint hashes raw document bytes into the cache lookup key.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
