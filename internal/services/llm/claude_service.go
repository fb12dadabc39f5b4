package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// ClaudeProvider implements the Provider interface using the Anthropic
// Claude API.
type ClaudeProvider struct {
	config  *common.ClaudeConfig
	logger  arbor.ILogger
	client  anthropic.Client
	limiter *rate.Limiter
}

// NewClaudeProvider creates a new Claude provider instance.
func NewClaudeProvider(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY, AESTIMO_CLAUDE_API_KEY, or claude.api_key in config)")
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-sonnet-4-20250514"
	}

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	claudeConfig.MaxTokens = maxTokens

	requestsPerSecond := claudeConfig.RateLimit
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	provider := &ClaudeProvider{
		config:  claudeConfig,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Int("max_tokens", maxTokens).
		Float64("rate_limit", requestsPerSecond).
		Msg("Claude provider initialized")

	return provider, nil
}

// GenerateContent generates a completion for the request prompt.
func (p *ClaudeProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	if request.Prompt == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	// Local pacing against the provider quota; provider-side 429s are
	// still surfaced to the retry policy.
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = p.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if request.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.System},
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    p.config.Model,
	}, nil
}

// GetProviderType returns the provider type.
func (p *ClaudeProvider) GetProviderType() ProviderType {
	return ProviderClaude
}

// Close releases resources. The Claude client requires no explicit cleanup.
func (p *ClaudeProvider) Close() error {
	p.logger.Debug().Msg("Closing Claude provider")
	return nil
}
