// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
//
// This is the only package that reads the environment. Everything below it
// receives explicit llm.Config and agent.Config values.

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/richinex/lingo/llm"
)

// DefaultProvider is used when neither the caller nor LLM_PROVIDER names one.
const DefaultProvider = "gemini"

// DefaultRecordingsPath is the SQLite file used when LINGO_DB is unset.
const DefaultRecordingsPath = ".lingo/recordings.db"

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig
	Agent   AgentConfig
	Storage StorageConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    llm.ProviderType
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   uint32
	Temperature float64
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxTurns        int
	Concurrency     int
	ToolTimeoutSecs uint64
}

// StorageConfig holds the recording database location.
type StorageConfig struct {
	Path string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv   string
	apiKeyEnv  string
	baseURLEnv string
}

// Supported providers and their configuration.
var providers = map[llm.ProviderType]providerInfo{
	llm.ProviderGemini:    {"GEMINI_MODEL", "GEMINI_API_KEY", "GEMINI_BASE_URL"},
	llm.ProviderAnthropic: {"ANTHROPIC_MODEL", "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL"},
	llm.ProviderOllama:    {"OLLAMA_MODEL", "", "OLLAMA_HOST"},
}

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to LLM_PROVIDER, then DefaultProvider.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = DefaultProvider
	}

	p, err := llm.ParseProviderType(provider)
	if err != nil {
		return Settings{}, err
	}
	info := providers[p]

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxTurns, err := getEnvInt("AGENT_MAX_TURNS", 10)
	if err != nil {
		return Settings{}, err
	}

	concurrency, err := getEnvInt("AGENT_CONCURRENCY", 4)
	if err != nil {
		return Settings{}, err
	}

	toolTimeout, err := getEnvUint64("TOOL_TIMEOUT_SECS", 30)
	if err != nil {
		return Settings{}, err
	}

	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = os.Getenv(info.modelEnv)
	}
	if model == "" {
		model = p.DefaultModel()
	}

	var apiKey string
	if info.apiKeyEnv != "" {
		apiKey = os.Getenv(info.apiKeyEnv)
	}

	dbPath := os.Getenv("LINGO_DB")
	if dbPath == "" {
		dbPath = DefaultRecordingsPath
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    p,
			Model:       model,
			APIKey:      apiKey,
			BaseURL:     os.Getenv(info.baseURLEnv),
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Agent: AgentConfig{
			MaxTurns:        maxTurns,
			Concurrency:     concurrency,
			ToolTimeoutSecs: toolTimeout,
		},
		Storage: StorageConfig{
			Path: dbPath,
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Validate reports settings that would fail at request time.
func (s Settings) Validate() error {
	if s.LLM.Provider.NeedsAPIKey() && s.LLM.APIKey == "" {
		return fmt.Errorf("%s environment variable not set", providers[s.LLM.Provider].apiKeyEnv)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", s.LLM.Temperature)
	}
	if s.Agent.MaxTurns <= 0 {
		return fmt.Errorf("max turns must be positive, got %d", s.Agent.MaxTurns)
	}
	return nil
}

// ProviderConfig converts the LLM settings into a provider configuration.
// Logger and event taps are left for the caller to set.
func (s Settings) ProviderConfig() llm.Config {
	return llm.Config{
		APIKey:      s.LLM.APIKey,
		Model:       s.LLM.Model,
		BaseURL:     s.LLM.BaseURL,
		MaxTokens:   s.LLM.MaxTokens,
		Temperature: float32(s.LLM.Temperature),
	}
}

// APIKeyFor returns the API key for a provider from environment variables.
// Providers without authentication return an empty key.
func APIKeyFor(provider string) (string, error) {
	p, err := llm.ParseProviderType(provider)
	if err != nil {
		return "", err
	}
	info := providers[p]
	if info.apiKeyEnv == "" {
		return "", nil
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	p, err := llm.ParseProviderType(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(providers[p].modelEnv); val != "" {
		return val, nil
	}
	return p.DefaultModel(), nil
}

// SupportedProviders returns the sorted list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for p := range providers {
		result = append(result, p.String())
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvUint64(key string, defaultVal uint64) (uint64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
