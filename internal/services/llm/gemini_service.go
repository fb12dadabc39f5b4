package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface using the Google Gemini
// API.
type GeminiProvider struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
}

// NewGeminiProvider creates a new Gemini provider instance.
func NewGeminiProvider(ctx context.Context, geminiConfig *common.GeminiConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY, AESTIMO_GEMINI_API_KEY, or gemini.api_key in config)")
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-2.0-flash"
	}

	requestsPerSecond := geminiConfig.RateLimit
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	provider := &GeminiProvider{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Float64("rate_limit", requestsPerSecond).
		Msg("Gemini provider initialized")

	return provider, nil
}

// GenerateContent generates a completion for the request prompt.
func (p *GeminiProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	if request.Prompt == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = p.config.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.System != "" {
		config.SystemInstruction = genai.NewContentFromText(request.System, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(request.Prompt, genai.RoleUser),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderGemini,
		Model:    p.config.Model,
	}, nil
}

// GetProviderType returns the provider type.
func (p *GeminiProvider) GetProviderType() ProviderType {
	return ProviderGemini
}

// Close releases resources. The genai client requires no explicit Close.
func (p *GeminiProvider) Close() error {
	p.logger.Debug().Msg("Closing Gemini provider")
	p.client = nil
	return nil
}
