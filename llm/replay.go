package llm

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"

	"github.com/richinex/lingo/model"
)

// Replay folds previously recorded raw stream events of provider p as if they
// had just arrived. Events are decoded lazily; a malformed event ends the
// sequence with an error.
func Replay(p ProviderType, raws [][]byte, logger *slog.Logger) iter.Seq2[model.Message, error] {
	opts := []AdapterOption{WithAdapterLogger(logger)}

	switch p {
	case ProviderGemini:
		return NewGeminiAdapter(opts...).FoldGemini(decodeAll[genai.GenerateContentResponse](raws))
	case ProviderAnthropic:
		events := func(yield func(anthropic.MessageStreamEventUnion, error) bool) {
			for raw, err := range decodeAll[anthropic.MessageStreamEventUnion](raws) {
				if err != nil {
					yield(anthropic.MessageStreamEventUnion{}, err)
					return
				}
				if !yield(*raw, nil) {
					return
				}
			}
		}
		return NewAnthropicAdapter(opts...).FoldAnthropic(events)
	case ProviderOllama:
		return NewOllamaAdapter(opts...).FoldOllama(decodeAll[OllamaChatResponse](raws))
	default:
		return failed(fmt.Errorf("replay: unknown provider type: %v", p))
	}
}

// decodeAll decodes each raw event into a fresh *T.
func decodeAll[T any](raws [][]byte) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for i, raw := range raws {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				yield(nil, fmt.Errorf("replay: event %d: %w", i, err))
				return
			}
			if !yield(&v, nil) {
				return
			}
		}
	}
}
