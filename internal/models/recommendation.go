package models

import "sort"

// PriceTier buckets a recommendation by indicative price.
type PriceTier string

const (
	PriceTierBudget  PriceTier = "budget"
	PriceTierMid     PriceTier = "mid"
	PriceTierPremium PriceTier = "premium"
)

// Availability describes how readily a recommended model can be procured.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityOnOrder   Availability = "onOrder"
	AvailabilityLimited   Availability = "limited"
)

// MaxRecommendationsPerItem caps the ranked list attached to an item.
const MaxRecommendationsPerItem = 3

// Recommendation is one ranked vendor/model candidate for an extracted item.
// The list attached to an item is immutable: a retry replaces the whole list.
type Recommendation struct {
	Vendor       string       `json:"vendor" validate:"required"`
	Model        string       `json:"model"`
	LocalOrigin  bool         `json:"local_origin"`
	MatchScore   int          `json:"match_score" validate:"gte=0,lte=100"`
	PriceTier    PriceTier    `json:"price_tier" validate:"omitempty,oneof=budget mid premium"`
	Availability Availability `json:"availability" validate:"omitempty,oneof=available onOrder limited"`
	Rationale    string       `json:"rationale"`
}

// RankRecommendations orders candidates by descending match score, keeping
// input order for ties so identical inputs always rank identically, and
// truncates to MaxRecommendationsPerItem.
func RankRecommendations(recs []Recommendation) []Recommendation {
	ranked := make([]Recommendation, len(recs))
	copy(ranked, recs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchScore > ranked[j].MatchScore
	})
	if len(ranked) > MaxRecommendationsPerItem {
		ranked = ranked[:MaxRecommendationsPerItem]
	}
	return ranked
}
