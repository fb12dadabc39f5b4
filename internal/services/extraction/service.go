// Package extraction adapts the external AI provider into the extraction
// gateway contract: departmental summaries and line items out of tender
// text, and ranked vendor/model candidates per item.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/services/llm"
	"github.com/ternarybob/arbor"
)

// Service implements interfaces.ExtractionService on top of an llm.Provider.
type Service struct {
	provider          llm.Provider
	rules             *RuleTable
	retry             *llm.RetryPolicy
	validate          *validator.Validate
	logger            arbor.ILogger
	extractionTimeout time.Duration
	enrichmentTimeout time.Duration
}

// NewService creates a new extraction gateway over the given provider.
func NewService(provider llm.Provider, config *common.PipelineConfig, logger arbor.ILogger) (*Service, error) {
	rules, err := LoadRules()
	if err != nil {
		return nil, err
	}

	retry := llm.NewDefaultRetryPolicy()
	retry.MaxRetries = config.MaxRetries
	retry.Retryable = func(err error) bool {
		// Invalid payloads are re-asked alongside rate limits and
		// timeouts; a fresh completion usually parses.
		return llm.IsRetryableError(err) || errors.Is(err, interfaces.ErrInvalidResponse)
	}

	return &Service{
		provider:          provider,
		rules:             rules,
		retry:             retry,
		validate:          validator.New(),
		logger:            logger,
		extractionTimeout: config.ExtractionTimeout,
		enrichmentTimeout: config.EnrichmentTimeout,
	}, nil
}

// extractionPayload is the wire shape of the provider's extraction response.
type extractionPayload struct {
	Summaries map[string]models.SummaryFields `json:"summaries"`
	Items     []itemPayload                   `json:"items"`
}

type itemPayload struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	Specifications string `json:"specifications"`
	Quantity       string `json:"quantity"`
	Vendor         string `json:"vendor"`
	Model          string `json:"model"`
}

// Extract derives departmental summaries and line items from document text.
// Rate limits, timeouts and unparseable payloads are retried with backoff;
// exhaustion surfaces as ErrExtractionFailed.
func (s *Service) Extract(ctx context.Context, documentText string) (*models.ExtractionResult, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, fmt.Errorf("document text is empty")
	}

	start := time.Now()
	var result *models.ExtractionResult

	err := s.retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.extractionTimeout)
		defer cancel()

		resp, err := s.provider.GenerateContent(callCtx, &llm.ContentRequest{
			System: extractionSystemPrompt,
			Prompt: buildExtractionPrompt(s.rules, documentText),
		})
		if err != nil {
			return s.classifyProviderError(err)
		}

		parsed, err := s.parseExtractionResponse(resp.Text)
		if err != nil {
			return err
		}

		result = parsed
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Base extraction failed")
		return nil, fmt.Errorf("%w: %v", interfaces.ErrExtractionFailed, err)
	}

	s.rules.Apply(result.Summaries, s.logger)

	s.logger.Info().
		Int("departments", len(result.Summaries)).
		Int("items", len(result.Items)).
		Dur("duration", time.Since(start)).
		Msg("Base extraction completed")

	return result, nil
}

// recommendationPayload is the wire shape of the provider's enrichment
// response.
type recommendationPayload struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

// Recommend returns vendor/model candidates for one extracted item.
// Candidates that fail validation are dropped individually; an entirely
// unusable payload is an ErrInvalidResponse.
func (s *Service) Recommend(ctx context.Context, item models.ExtractedItem) ([]models.Recommendation, error) {
	err := s.validateItemForRecommendation(item)
	if err != nil {
		return nil, err
	}

	var recs []models.Recommendation

	err = s.retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.enrichmentTimeout)
		defer cancel()

		resp, err := s.provider.GenerateContent(callCtx, &llm.ContentRequest{
			System: recommendSystemPrompt,
			Prompt: buildRecommendPrompt(item),
		})
		if err != nil {
			return s.classifyProviderError(err)
		}

		var payload recommendationPayload
		if err := json.Unmarshal([]byte(llm.CleanMarkdownFences(resp.Text)), &payload); err != nil {
			return fmt.Errorf("%w: %v", interfaces.ErrInvalidResponse, err)
		}

		valid := make([]models.Recommendation, 0, len(payload.Recommendations))
		for _, rec := range payload.Recommendations {
			if err := s.validate.Struct(rec); err != nil {
				s.logger.Debug().Err(err).Str("item", item.Name).Msg("Dropping invalid recommendation")
				continue
			}
			valid = append(valid, rec)
		}
		if len(valid) == 0 {
			return fmt.Errorf("%w: no usable recommendations", interfaces.ErrInvalidResponse)
		}

		recs = valid
		return nil
	})
	if err != nil {
		return nil, err
	}

	return recs, nil
}

func (s *Service) validateItemForRecommendation(item models.ExtractedItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("item name is required for recommendation")
	}
	return nil
}

// parseExtractionResponse turns raw completion text into an
// ExtractionResult. Unknown departments are dropped with a warning; the
// fixed set is enforced again at write time.
func (s *Service) parseExtractionResponse(text string) (*models.ExtractionResult, error) {
	var payload extractionPayload
	if err := json.Unmarshal([]byte(llm.CleanMarkdownFences(text)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidResponse, err)
	}

	result := &models.ExtractionResult{
		Summaries: make(map[models.Department]models.SummaryFields, len(payload.Summaries)),
	}

	for name, fields := range payload.Summaries {
		dept := models.Department(name)
		if !dept.IsValid() {
			s.logger.Warn().Str("department", name).Msg("Dropping unknown department from extraction response")
			continue
		}
		result.Summaries[dept] = fields
	}

	for _, raw := range payload.Items {
		if strings.TrimSpace(raw.Name) == "" {
			continue
		}
		result.Items = append(result.Items, models.ExtractedItem{
			ID:             common.NewItemID(),
			Name:           strings.TrimSpace(raw.Name),
			Category:       strings.TrimSpace(raw.Category),
			Specifications: strings.TrimSpace(raw.Specifications),
			Quantity:       strings.TrimSpace(raw.Quantity),
			Vendor:         cleanVendorName(raw.Vendor),
			Model:          strings.TrimSpace(raw.Model),
			Source:         models.SourceDocument,
		})
	}

	if len(result.Summaries) == 0 && len(result.Items) == 0 {
		return nil, fmt.Errorf("%w: response carried no summaries or items", interfaces.ErrInvalidResponse)
	}

	return result, nil
}

// classifyProviderError maps raw provider failures onto the gateway error
// taxonomy.
func (s *Service) classifyProviderError(err error) error {
	switch {
	case llm.IsRateLimitError(err):
		return fmt.Errorf("%w: %v", interfaces.ErrRateLimited, err)
	case llm.IsTimeoutError(err):
		return fmt.Errorf("%w: %v", interfaces.ErrTimeout, err)
	default:
		return err
	}
}

// cleanVendorName strips "or equivalent" hedges tender documents attach to
// vendor names, and placeholder values.
func cleanVendorName(vendor string) string {
	vendor = strings.TrimSpace(vendor)
	vendor = strings.ReplaceAll(vendor, " or equivalent", "")
	vendor = strings.ReplaceAll(vendor, "equivalent to ", "")
	vendor = strings.TrimSpace(vendor)

	switch strings.ToLower(vendor) {
	case "unspecified", "n/a", "none", "unknown":
		return ""
	}
	return vendor
}
