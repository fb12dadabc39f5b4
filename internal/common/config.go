package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Claude      ClaudeConfig   `toml:"claude"`
	Gemini      GeminiConfig   `toml:"gemini"`
	LLM         LLMConfig      `toml:"llm"`
	Cache       CacheConfig    `toml:"cache"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// PipelineConfig controls the analysis pipeline. It is passed into the
// pipeline explicitly so multiple pipelines with different settings can run
// in one process.
type PipelineConfig struct {
	// ProcessingVersion tags cache entries; bumping it invalidates every
	// previously cached extraction.
	ProcessingVersion string `toml:"processing_version" validate:"required"`

	// EnrichmentConcurrency caps simultaneous outbound enrichment calls
	// per document.
	EnrichmentConcurrency int `toml:"enrichment_concurrency" validate:"gt=0"`

	// MaxRetries bounds retry attempts against the extraction provider.
	MaxRetries int `toml:"max_retries" validate:"gte=0"`

	ExtractionTimeout time.Duration `toml:"extraction_timeout" validate:"gt=0"`
	EnrichmentTimeout time.Duration `toml:"enrichment_timeout" validate:"gt=0"`

	// DedupThreshold is the name-similarity threshold above which two
	// extracted items are considered duplicates.
	DedupThreshold float64 `toml:"dedup_threshold" validate:"gt=0,lte=1"`
}

// ClaudeConfig contains Anthropic Claude provider configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	RateLimit   float64 `toml:"rate_limit"` // requests per second to the provider
}

// GeminiConfig contains Google Gemini provider configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	RateLimit   float64 `toml:"rate_limit"`
}

// LLM provider names accepted in llm.default_provider.
const (
	LLMProviderClaude = "claude"
	LLMProviderGemini = "gemini"
)

type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"oneof=claude gemini"`
}

// CacheConfig controls the fingerprint store sweeper.
type CacheConfig struct {
	// SweepSchedule is a cron expression for the GC run.
	SweepSchedule string `toml:"sweep_schedule"`

	// EntryTTL evicts entries not looked up within this window, even for
	// the current processing version.
	EntryTTL time.Duration `toml:"entry_ttl"`
}

// NewDefaultConfig returns configuration defaults. File values, environment
// variables and CLI flags override in that order.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/aestimo",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Pipeline: PipelineConfig{
			ProcessingVersion:     "v1",
			EnrichmentConcurrency: 5,
			MaxRetries:            3,
			ExtractionTimeout:     2 * time.Minute,
			EnrichmentTimeout:     30 * time.Second,
			DedupThreshold:        0.85,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Temperature: 0.3,
			RateLimit:   2,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			MaxTokens:   8192,
			Temperature: 0.3,
			RateLimit:   2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Cache: CacheConfig{
			SweepSchedule: "0 3 * * *",
			EntryTTL:      30 * 24 * time.Hour,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the resolved configuration against struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AESTIMO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("AESTIMO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("AESTIMO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("AESTIMO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("AESTIMO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if version := os.Getenv("AESTIMO_PROCESSING_VERSION"); version != "" {
		config.Pipeline.ProcessingVersion = version
	}
	if concurrency := os.Getenv("AESTIMO_ENRICHMENT_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil {
			config.Pipeline.EnrichmentConcurrency = n
		}
	}
	if retries := os.Getenv("AESTIMO_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			config.Pipeline.MaxRetries = n
		}
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("AESTIMO_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("AESTIMO_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if provider := os.Getenv("AESTIMO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}
}

// IsProduction returns true when running with the production environment tag.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
