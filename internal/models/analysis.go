package models

import (
	"encoding/gob"
	"fmt"
	"time"
)

func init() {
	// Register types for gob encoding (required for BadgerHold storage of
	// interface{} summary field values)
	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
	gob.Register(SummaryFields{})
}

// Department identifies a departmental summary section in an analysis record.
type Department string

const (
	DepartmentCommercial    Department = "commercial"
	DepartmentFinance       Department = "finance"
	DepartmentLegal         Department = "legal"
	DepartmentSCM           Department = "scm"
	DepartmentBidManagement Department = "bidManagement"
)

// KnownDepartments lists every department accepted in an analysis record.
// Summary writes for any other key are rejected.
func KnownDepartments() []Department {
	return []Department{
		DepartmentCommercial,
		DepartmentFinance,
		DepartmentLegal,
		DepartmentSCM,
		DepartmentBidManagement,
	}
}

// IsValid reports whether the department is part of the fixed set.
func (d Department) IsValid() bool {
	switch d {
	case DepartmentCommercial, DepartmentFinance, DepartmentLegal, DepartmentSCM, DepartmentBidManagement:
		return true
	}
	return false
}

// ItemSource records where an item's vendor resolution came from.
type ItemSource string

const (
	// SourceDocument means the tender document itself named the vendor.
	SourceDocument ItemSource = "document"
	// SourceInferred means a missing vendor was filled from an enrichment recommendation.
	SourceInferred ItemSource = "inferred"
)

// ExtractedItem is a single line item extracted from a tender document.
// Items are only ever mutated by the record merger.
type ExtractedItem struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	Specifications  string           `json:"specifications"`
	Quantity        string           `json:"quantity"`
	Vendor          string           `json:"vendor,omitempty"`
	Model           string           `json:"model,omitempty"`
	Source          ItemSource       `json:"source"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// NeedsEnrichment reports whether the item should be sent for vendor/model
// recommendation. Items that already carry both a vendor and a model are
// complete and skip the enrichment call entirely.
func (i *ExtractedItem) NeedsEnrichment() bool {
	return i.Vendor == "" || i.Model == ""
}

// SummaryFields holds the extracted field values for one department.
// Values are JSON-shaped: strings, numbers, arrays or nested objects.
type SummaryFields map[string]interface{}

// ExtractionResult is the structured output of a base extraction call.
type ExtractionResult struct {
	Summaries map[Department]SummaryFields `json:"summaries"`
	Items     []ExtractedItem              `json:"items"`
}

// Validate rejects results whose summaries use a department outside the
// fixed set.
func (r *ExtractionResult) Validate() error {
	for dept := range r.Summaries {
		if !dept.IsValid() {
			return fmt.Errorf("unknown department %q in extraction result", dept)
		}
	}
	return nil
}

// EnrichmentStats summarizes one enrichment pass over a record's items.
type EnrichmentStats struct {
	Attempted       int `json:"attempted"`
	Enriched        int `json:"enriched"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
	Recommendations int `json:"recommendations"`
	LocalOrigin     int `json:"local_origin"`
}

// AnalysisRecord is the versioned analysis of one tender document.
// One live record exists per (document, processing version) pair.
type AnalysisRecord struct {
	DocumentID        string                       `json:"document_id"`
	ProcessingVersion string                       `json:"processing_version"`
	Summaries         map[Department]SummaryFields `json:"summaries"`
	Items             []ExtractedItem              `json:"items"`
	Enrichment        EnrichmentStats              `json:"enrichment"`
	CreatedAt         time.Time                    `json:"created_at"`
	UpdatedAt         time.Time                    `json:"updated_at"`
}

// Key returns the storage key for the record.
func (r *AnalysisRecord) Key() string {
	return AnalysisKey(r.DocumentID, r.ProcessingVersion)
}

// AnalysisKey builds the composite storage key for a (document, version) pair.
func AnalysisKey(documentID, version string) string {
	return documentID + ":" + version
}
