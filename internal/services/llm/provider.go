// Package llm provides provider-agnostic access to the AI models backing
// the extraction gateway. Claude is the primary provider; Gemini is the
// alternative.
package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/arbor"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Provider defines the interface for AI content generation
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	GetProviderType() ProviderType
	Close() error
}

// NewProvider creates the provider named in llm.default_provider.
func NewProvider(ctx context.Context, config *common.Config, logger arbor.ILogger) (Provider, error) {
	switch config.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return NewClaudeProvider(&config.Claude, logger)
	case common.LLMProviderGemini:
		return NewGeminiProvider(ctx, &config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.LLM.DefaultProvider)
	}
}
