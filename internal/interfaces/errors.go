package interfaces

import "errors"

// Storage errors.
var (
	// ErrFingerprintNotFound indicates a cache miss for a
	// (fingerprint, processing version) pair.
	ErrFingerprintNotFound = errors.New("fingerprint entry not found")

	// ErrCacheUnavailable indicates a transient fingerprint store failure.
	// Callers treat it as a miss and re-extract; it never fails a pipeline run.
	ErrCacheUnavailable = errors.New("fingerprint store unavailable")

	// ErrRecordNotFound indicates no analysis record exists for a
	// (document, processing version) pair.
	ErrRecordNotFound = errors.New("analysis record not found")

	// ErrChecklistItemNotFound indicates no checklist item exists for the key.
	ErrChecklistItemNotFound = errors.New("checklist item not found")

	// ErrUnknownDepartment indicates a summary write used a department
	// outside the fixed set.
	ErrUnknownDepartment = errors.New("unknown department")
)

// Extraction gateway errors.
var (
	// ErrRateLimited indicates the extraction provider rejected the call
	// with a rate-limit response. Retryable with backoff.
	ErrRateLimited = errors.New("extraction provider rate limited")

	// ErrTimeout indicates a single extraction call exceeded its deadline.
	// Counts as one failed attempt.
	ErrTimeout = errors.New("extraction call timed out")

	// ErrInvalidResponse indicates the provider returned a payload that
	// failed schema validation.
	ErrInvalidResponse = errors.New("invalid extraction response")

	// ErrExtractionFailed indicates retries are exhausted. Fatal for the
	// document's run.
	ErrExtractionFailed = errors.New("extraction failed after retries")
)
