package models

import (
	"regexp"
	"strings"
	"time"
)

// ChecklistStatus is the review state of one eligibility criterion.
type ChecklistStatus string

const (
	ChecklistPending ChecklistStatus = "pending"
	ChecklistMet     ChecklistStatus = "met"
	ChecklistNotMet  ChecklistStatus = "notMet"
)

// ChecklistItem tracks one eligibility criterion for a (document, user)
// pair. The normalized criteria text is part of the uniqueness key, so
// cosmetic variants of the same criterion resolve to a single item.
type ChecklistItem struct {
	DocumentID   string          `json:"document_id"`
	UserID       string          `json:"user_id"`
	CriteriaText string          `json:"criteria_text"`
	DisplayText  string          `json:"display_text"`
	Status       ChecklistStatus `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	Seq          uint64          `json:"seq"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Key returns the storage key for the item.
func (c *ChecklistItem) Key() string {
	return ChecklistKey(c.DocumentID, c.UserID, c.CriteriaText)
}

// ChecklistKey builds the composite storage key for a
// (document, user, normalized criteria) triple.
func ChecklistKey(documentID, userID, normalizedCriteria string) string {
	return documentID + ":" + userID + ":" + normalizedCriteria
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeCriteria folds a criterion to its uniqueness key: trimmed,
// inner whitespace collapsed, case-folded.
func NormalizeCriteria(text string) string {
	text = strings.TrimSpace(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.ToLower(text)
}

// Abbreviations that stay uppercase when criterion display text is
// title-cased.
var criteriaAbbreviations = []string{
	"ISO", "GST", "PAN", "EMD", "MII", "BIS", "ROHS", "MSME",
	"PF", "ESI", "IT", "TDS", "NSIC", "UAM",
}

// NormalizeDisplayText produces the human-readable form of a criterion:
// title case with common statutory abbreviations kept uppercase.
func NormalizeDisplayText(text string) string {
	text = whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	if text == "" {
		return text
	}
	display := strings.Title(strings.ToLower(text)) //nolint:staticcheck // ASCII criteria text
	for _, abbr := range criteriaAbbreviations {
		pattern := regexp.MustCompile(`(?i)\b` + abbr + `\b`)
		display = pattern.ReplaceAllString(display, abbr)
	}
	return display
}
