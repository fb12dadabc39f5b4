package extraction

import (
	"fmt"
	"strings"

	"github.com/ternarybob/aestimo/internal/models"
)

const extractionSystemPrompt = `You are an expert tender/RFP analyst. Extract critical bidding intelligence from tender documents and return it as structured JSON for departmental review.

Focus on unique, specific information needed to win the bid. Exclude generic boilerplate requirements.`

// buildExtractionPrompt asks for departmental summaries plus the line-item
// list, in exactly the JSON shape the parser expects. The no-inference
// field callouts come from the rule table so the table stays the single
// source of truth for extraction policy.
func buildExtractionPrompt(rules *RuleTable, documentText string) string {
	return fmt.Sprintf(`Analyze the tender document below and return a single JSON object (no markdown fences, no commentary) with this shape:

{
  "summaries": {
    "commercial": {
      "estimatedValue": "string (only if explicitly stated)",
      "paymentTerms": "string",
      "warranties": "string",
      "pricingBid": "string"
    },
    "finance": {
      "bidValue": "string (only if explicitly stated)",
      "emd": "string (earnest money deposit, only if explicitly stated)",
      "netWorth": "string",
      "turnoverRequirement": "string"
    },
    "legal": {
      "contractType": "string",
      "disputeResolution": "string",
      "liabilityCap": "string",
      "requiredDocuments": ["array of document names the bidder must submit"]
    },
    "scm": {
      "deliveryTimeline": "string",
      "deliveryLocations": "string",
      "packagingRequirements": "string"
    },
    "bidManagement": {
      "projectOverview": "string (3-4 sentences)",
      "keyDeadlines": ["array"],
      "successFactors": ["array"],
      "riskAreas": ["array"]
    }
  },
  "items": [
    {
      "name": "string",
      "category": "string",
      "specifications": "string",
      "quantity": "string",
      "vendor": "string (only if the document names a manufacturer, else omit)",
      "model": "string (only if the document names a model, else omit)"
    }
  ]
}

CRITICAL RULES:
1. These fields are STRICT: %s. Include each ONLY when the document states the value explicitly. Never calculate or derive one (e.g. never derive EMD as "2%% of bid value").
2. Omit any field the document does not cover. An omitted field is acceptable; a guessed one is not.
3. Only use the five department keys shown above.
4. Keep every extracted value traceable to document text.

DOCUMENT:
%s`, strings.Join(rules.NoInferenceFields(), ", "), documentText)
}

const recommendSystemPrompt = `You are an expert procurement consultant with deep knowledge of commercial product manufacturers, their model ranges, market availability and pricing tiers. You recommend real manufacturers and real models matched to stated specifications.`

// buildRecommendPrompt asks for ranked vendor/model candidates for one
// extracted item, in the parser's JSON shape.
func buildRecommendPrompt(item models.ExtractedItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRODUCT:\n- Name: %s\n- Category: %s\n- Specifications: %s\n- Quantity: %s\n",
		orUnknown(item.Name), orUnknown(item.Category), orDefault(item.Specifications, "Standard specifications"), orDefault(item.Quantity, "1"))
	if item.Vendor != "" {
		fmt.Fprintf(&b, "- Pre-approved vendor (include as first option): %s\n", item.Vendor)
	}

	b.WriteString(`
Recommend 2-3 suitable manufacturers with SPECIFIC real models matching these specifications. Prefer locally manufactured options where they genuinely compete.

Return a single JSON object (no markdown fences, no commentary):

{
  "recommendations": [
    {
      "vendor": "Manufacturer Name",
      "model": "Specific Model Name or Series",
      "local_origin": true or false,
      "match_score": 0-100,
      "price_tier": "budget" or "mid" or "premium",
      "availability": "available" or "onOrder" or "limited",
      "rationale": "one-sentence explanation of the match"
    }
  ]
}

Rank by best match first. Only real manufacturers and real model names.`)

	return b.String()
}

func orUnknown(s string) string {
	return orDefault(s, "Unknown")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
