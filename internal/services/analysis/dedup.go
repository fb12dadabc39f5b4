package analysis

import (
	"strings"

	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// DefaultDedupThreshold is the name-similarity ratio above which two
// extracted items are treated as the same line item.
const DefaultDedupThreshold = 0.85

// DedupItems collapses near-duplicate line items that extraction sometimes
// produces for the same product mentioned in multiple document sections.
// The first occurrence wins its position; a duplicate only contributes
// fields the survivor is missing.
func DedupItems(items []models.ExtractedItem, threshold float64, logger arbor.ILogger) []models.ExtractedItem {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDedupThreshold
	}

	kept := make([]models.ExtractedItem, 0, len(items))
	for _, item := range items {
		matched := false
		for i := range kept {
			if nameSimilarity(kept[i].Name, item.Name) >= threshold {
				absorbItem(&kept[i], item)
				matched = true
				logger.Debug().
					Str("kept", kept[i].Name).
					Str("dropped", item.Name).
					Msg("Collapsed duplicate extracted item")
				break
			}
		}
		if !matched {
			kept = append(kept, item)
		}
	}
	return kept
}

// absorbItem copies fields from the duplicate into the survivor where the
// survivor has none.
func absorbItem(survivor *models.ExtractedItem, dup models.ExtractedItem) {
	if survivor.Vendor == "" && dup.Vendor != "" {
		survivor.Vendor = dup.Vendor
	}
	if survivor.Model == "" && dup.Model != "" {
		survivor.Model = dup.Model
	}
	if survivor.Quantity == "" && dup.Quantity != "" {
		survivor.Quantity = dup.Quantity
	}
	if survivor.Category == "" && dup.Category != "" {
		survivor.Category = dup.Category
	}
	if survivor.Specifications == "" && dup.Specifications != "" {
		survivor.Specifications = dup.Specifications
	} else if dup.Specifications != "" && !strings.Contains(survivor.Specifications, dup.Specifications) {
		survivor.Specifications = survivor.Specifications + "; " + dup.Specifications
	}
}

// nameSimilarity returns a 0..1 ratio based on edit distance between the
// case-folded names.
func nameSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	dist := levenshtein(a, b)
	longer := len([]rune(a))
	if l := len([]rune(b)); l > longer {
		longer = l
	}
	return 1 - float64(dist)/float64(longer)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
