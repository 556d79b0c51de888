// Package llm provides provider adapters and clients.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization
// - Request/response format conversion (the Adapter)
// - Streaming delta framing (the fold)
// - Provider-specific error wrapping

package llm

import (
	"context"
	"iter"

	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/tools"
)

// Adapter maps canonical messages and tools to one vendor's wire shapes and
// maps a complete vendor response back. M, T and R are the vendor's message
// list, tool list and response types.
type Adapter[M, T, R any] interface {
	// ToWireMessages converts a conversation. It fails only for content the
	// vendor cannot represent.
	ToWireMessages(messages []model.Message) (M, error)

	// ToWireTools converts tool declarations, keeping names and
	// descriptions verbatim and passing schemas through.
	ToWireTools(defs []tools.Definition) T

	// FromWireResponse converts the first candidate of resp into a single
	// model message. It returns an empty slice when there is no candidate.
	FromWireResponse(resp R) []model.Message
}

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for batch and streamed generation.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Generate sends a batch request and returns the normalized response.
	Generate(ctx context.Context, messages []model.Message, defs []tools.Definition) ([]model.Message, error)

	// Stream sends a streaming request and yields one cumulative snapshot per
	// vendor event. A transport error is yielded once and ends the sequence.
	Stream(ctx context.Context, messages []model.Message, defs []tools.Definition) iter.Seq2[model.Message, error]
}
