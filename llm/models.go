// Package llm provides shared configuration and helpers for LLM providers.
package llm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	ijson "github.com/richinex/lingo/internal/json"
	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/tools"
)

// Model identifier constants for all supported providers.

// Gemini model identifiers
const (
	// ModelGeminiFlash25 is Gemini 2.5 Flash: fast with thinking support.
	ModelGeminiFlash25 = "gemini-2.5-flash"
	// ModelGeminiPro25 is Gemini 2.5 Pro: advanced reasoning.
	ModelGeminiPro25 = "gemini-2.5-pro"
	// ModelGeminiFlash2 is Gemini 2.0 Flash: Legacy model.
	ModelGeminiFlash2 = "gemini-2.0-flash"
)

// Anthropic model identifiers
const (
	// ModelAnthropicClaudeSonnet45 is Claude Sonnet 4.5: balanced default.
	ModelAnthropicClaudeSonnet45 = "claude-sonnet-4-5"
	// ModelAnthropicClaudeOpus45 is Claude Opus 4.5: flagship for coding/agents.
	ModelAnthropicClaudeOpus45 = "claude-opus-4-5-20251101"
	// ModelAnthropicClaudeHaiku45 is Claude Haiku 4.5: Fast and efficient.
	ModelAnthropicClaudeHaiku45 = "claude-haiku-4-5"
)

// Ollama model identifiers (tags as pulled locally)
const (
	ModelOllamaLlama32 = "llama3.2"
	ModelOllamaQwen3   = "qwen3"
)

var (
	// ErrUnsupportedContent marks a content block an adapter cannot
	// represent for its role. It indicates a defect in the caller.
	ErrUnsupportedContent = errors.New("unsupported content")

	// ErrUnsupportedRole marks a message with a role outside the model.
	ErrUnsupportedRole = errors.New("unsupported role")
)

// Config is the explicit configuration passed to a provider constructor.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   uint32
	Temperature float32

	// HTTPClient overrides the transport used by the vendor client.
	HTTPClient *http.Client

	// Logger receives diagnostics such as dropped tool calls.
	Logger *slog.Logger

	// OnEvent, when set, receives every raw streaming event as JSON.
	OnEvent func(raw []byte)

	// NewID generates tool-call identifiers the vendor did not supply.
	NewID func() string
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger()
	}
	return c.Logger
}

func (c Config) idFunc() func() string {
	if c.NewID == nil {
		return uuid.NewString
	}
	return c.NewID
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// AdapterOption configures an adapter.
type AdapterOption func(*adapterBase)

// WithAdapterLogger sets the logger used for recoverable diagnostics.
func WithAdapterLogger(logger *slog.Logger) AdapterOption {
	return func(b *adapterBase) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithIDFunc sets the generator for missing tool-call identifiers.
func WithIDFunc(fn func() string) AdapterOption {
	return func(b *adapterBase) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// adapterBase holds what every adapter shares.
type adapterBase struct {
	provider string
	logger   *slog.Logger
	newID    func() string
}

func newAdapterBase(provider string, opts []AdapterOption) adapterBase {
	b := adapterBase{
		provider: provider,
		logger:   discardLogger(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// callID returns id, or a fresh identifier when the vendor supplied none.
func (b adapterBase) callID(id string) string {
	if id != "" {
		return id
	}
	return b.newID()
}

// dropNameless logs and reports whether a tool call without a name must be
// dropped.
func (b adapterBase) dropNameless(name, id string) bool {
	if name != "" {
		return false
	}
	b.logger.Warn("dropping tool call without name", "provider", b.provider, "id", id)
	return true
}

func unsupported(provider string, role model.Role, c model.Content) error {
	return fmt.Errorf("%s: %w %T in %s message", provider, ErrUnsupportedContent, c, role)
}

// resultText renders a tool result for vendors that need string content.
// The error is preferred over the output.
func resultText(r model.Result) string {
	if r.Error != nil {
		return ijson.Render(r.Error)
	}
	return ijson.Render(r.Output)
}

// flattenText concatenates the text blocks of contents. Any other content is
// unsupported.
func flattenText(provider string, msg model.Message) (string, error) {
	var b strings.Builder
	for _, c := range msg.Contents {
		t, ok := c.(model.TextContent)
		if !ok {
			return "", unsupported(provider, msg.Role, c)
		}
		b.WriteString(t.Text)
	}
	return b.String(), nil
}

// schemaDoc returns the JSON Schema document of def, or an empty object
// schema when the tool takes no declared input.
func schemaDoc(def tools.Definition) map[string]any {
	if def.Input == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return def.Input.JSONSchema()
}
