// LLMClient - Simple wrapper around providers.

package llm

import (
	"context"

	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/stream"
	"github.com/richinex/lingo/tools"
)

// Client wraps a Provider with a simple interface.
type Client struct {
	provider Provider
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Chat sends a chat completion request and returns just the text.
func (c *Client) Chat(ctx context.Context, messages []model.Message) (string, error) {
	reply, err := c.Reply(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	return reply.Text(), nil
}

// Reply sends a request and returns the single model message of the
// response. An empty response yields a model message with no contents.
func (c *Client) Reply(ctx context.Context, messages []model.Message, defs []tools.Definition) (model.Message, error) {
	out, err := c.provider.Generate(ctx, messages, defs)
	if err != nil {
		return model.Message{}, err
	}
	if len(out) == 0 {
		return model.NewModel(), nil
	}
	return out[0], nil
}

// StreamReply streams a completion, calling onSnapshot with every cumulative
// snapshot, and returns the final one.
func (c *Client) StreamReply(ctx context.Context, messages []model.Message, defs []tools.Definition, onSnapshot func(model.Message)) (model.Message, error) {
	seq := c.provider.Stream(ctx, messages, defs)
	if onSnapshot != nil {
		inner := seq
		seq = func(yield func(model.Message, error) bool) {
			for msg, err := range inner {
				if err == nil {
					onSnapshot(msg)
				}
				if !yield(msg, err) {
					return
				}
			}
		}
	}
	return stream.Last(seq)
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
