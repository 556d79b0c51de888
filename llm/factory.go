// LLM Provider Factory - Ergonomic builder-first API for creating LLM providers.
//
// Quick Start:
//
//	// Simplest: use defaults with an explicit API key
//	gemini, err := llm.ProviderGemini.APIKey(key)  // Uses gemini-2.5-flash
//	claude, err := llm.ProviderAnthropic.APIKey(key)  // Uses claude-sonnet-4-5
//
//	// Full configuration
//	custom, err := llm.ProviderAnthropic.
//	    Model(llm.ModelAnthropicClaudeHaiku45).
//	    MaxTokens(8192).
//	    Temperature(0.3).
//	    Logger(logger).
//	    APIKey(key)
//
//	// Local models need no key
//	local, err := llm.ProviderOllama.Model(llm.ModelOllamaQwen3).BaseURL("http://gpu:11434").Build()

package llm

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderOllama is a local Ollama server.
	ProviderOllama
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderGemini:
		return "gemini"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderOllama:
		return "ollama"
	default:
		return "unknown"
	}
}

// NeedsAPIKey reports whether the provider authenticates with an API key.
func (p ProviderType) NeedsAPIKey() bool {
	return p == ProviderGemini || p == ProviderAnthropic
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderGemini:
		return ModelGeminiFlash25
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet45
	case ProviderOllama:
		return ModelOllamaLlama32
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "ollama", "local":
		return ProviderOllama, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey creates a provider with an explicit API key (uses defaults for everything else).
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// NewProvider builds a provider of type p from an explicit configuration.
// Zero-valued fields take the provider's defaults.
func NewProvider(p ProviderType, cfg Config) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel()
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	switch p {
	case ProviderGemini:
		return NewGeminiProvider(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg), nil
	case ProviderOllama:
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", p)
	}
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	providerType ProviderType
	cfg          Config
	temperature  *float32
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		providerType: providerType,
	}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.cfg.Model = model
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.cfg.MaxTokens = tokens
	return b
}

// Temperature sets temperature (0.0 = deterministic, 1.0 = creative).
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// BaseURL overrides the API endpoint.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.cfg.BaseURL = url
	return b
}

// HTTPClient overrides the HTTP client.
func (b *ProviderBuilder) HTTPClient(c *http.Client) *ProviderBuilder {
	b.cfg.HTTPClient = c
	return b
}

// Logger sets the diagnostics logger.
func (b *ProviderBuilder) Logger(logger *slog.Logger) *ProviderBuilder {
	b.cfg.Logger = logger
	return b
}

// OnEvent registers a tap for raw streaming events.
func (b *ProviderBuilder) OnEvent(fn func(raw []byte)) *ProviderBuilder {
	b.cfg.OnEvent = fn
	return b
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

// Build builds the provider without an API key.
func (b *ProviderBuilder) Build() (Provider, error) {
	return b.build("")
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	if apiKey == "" && b.providerType.NeedsAPIKey() {
		return nil, fmt.Errorf("%s: API key is required", b.providerType)
	}
	cfg := b.cfg
	cfg.APIKey = apiKey

	cfg.Temperature = 0.7 // default
	if b.temperature != nil {
		cfg.Temperature = *b.temperature
	}

	return NewProvider(b.providerType, cfg)
}
