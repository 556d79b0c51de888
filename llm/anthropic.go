// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - Streaming via official SDK

package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	ijson "github.com/richinex/lingo/internal/json"
	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/stream"
	"github.com/richinex/lingo/tools"
)

// AnthropicMessages is the wire form of a conversation. System turns are
// carried outside the message list.
type AnthropicMessages struct {
	System   []anthropic.TextBlockParam
	Messages []anthropic.MessageParam
}

// AnthropicAdapter converts between canonical messages and the Messages API.
type AnthropicAdapter struct {
	adapterBase
}

// NewAnthropicAdapter creates an adapter.
func NewAnthropicAdapter(opts ...AdapterOption) *AnthropicAdapter {
	return &AnthropicAdapter{adapterBase: newAdapterBase("anthropic", opts)}
}

// ToWireMessages maps system turns to the system block list, user and tool
// turns to user messages and model turns to assistant messages.
func (a *AnthropicAdapter) ToWireMessages(messages []model.Message) (AnthropicMessages, error) {
	var out AnthropicMessages

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			for _, c := range msg.Contents {
				t, ok := c.(model.TextContent)
				if !ok {
					return AnthropicMessages{}, unsupported(a.provider, msg.Role, c)
				}
				out.System = append(out.System, anthropic.TextBlockParam{Text: t.Text})
			}
		case model.RoleUser, model.RoleModel, model.RoleTool:
			blocks, err := a.blocks(msg)
			if err != nil {
				return AnthropicMessages{}, err
			}
			if len(blocks) == 0 {
				a.logger.Debug("skipping empty turn", "provider", a.provider, "role", msg.Role)
				continue
			}
			if msg.Role == model.RoleModel {
				out.Messages = append(out.Messages, anthropic.NewAssistantMessage(blocks...))
			} else {
				out.Messages = append(out.Messages, anthropic.NewUserMessage(blocks...))
			}
		default:
			return AnthropicMessages{}, fmt.Errorf("%s: %w %q", a.provider, ErrUnsupportedRole, msg.Role)
		}
	}

	return out, nil
}

func (a *AnthropicAdapter) blocks(msg model.Message) ([]anthropic.ContentBlockParamUnion, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Contents))
	for _, c := range msg.Contents {
		switch v := c.(type) {
		case model.TextContent:
			if v.Text == "" {
				continue
			}
			blocks = append(blocks, anthropic.NewTextBlock(v.Text))
		case model.ToolCallContent:
			if msg.Role == model.RoleTool {
				// Transitional calls stay on our side of the wire.
				continue
			}
			if msg.Role != model.RoleModel {
				return nil, unsupported(a.provider, msg.Role, c)
			}
			props := v.ToolCall.Props
			if props == nil {
				props = map[string]any{}
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    v.ToolCall.ID,
					Name:  v.ToolCall.Name,
					Input: props,
				},
			})
		case model.ToolResultContent:
			if msg.Role != model.RoleTool {
				return nil, unsupported(a.provider, msg.Role, c)
			}
			r := v.ToolResult
			blocks = append(blocks, anthropic.NewToolResultBlock(r.ID, resultText(r.Result), r.Result.Failed()))
		default:
			return nil, unsupported(a.provider, msg.Role, c)
		}
	}
	return blocks, nil
}

// ToWireTools converts tool definitions to Anthropic format.
func (a *AnthropicAdapter) ToWireTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	result := make([]anthropic.ToolUnionParam, len(defs))
	for i, d := range defs {
		doc := schemaDoc(d)

		extra := make(map[string]any)
		for k, v := range doc {
			switch k {
			case "type", "properties", "required":
			default:
				extra[k] = v
			}
		}

		toolParam := anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: doc["properties"],
				Required:   requiredList(doc["required"]),
			},
		}
		if len(extra) > 0 {
			toolParam.InputSchema.ExtraFields = extra
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

func requiredList(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FromWireResponse converts a complete Messages API response.
func (a *AnthropicAdapter) FromWireResponse(resp *anthropic.Message) []model.Message {
	if resp == nil {
		return []model.Message{}
	}

	msg := model.Message{Role: model.RoleModel}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Contents = append(msg.Contents, model.Text(variant.Text))
		case anthropic.ToolUseBlock:
			if a.dropNameless(variant.Name, variant.ID) {
				continue
			}
			props, err := ijson.ToObject(variant.Input)
			if err != nil {
				a.logger.Warn("tool call input is not an object", "provider", a.provider, "name", variant.Name, "error", err)
				props = map[string]any{}
			}
			msg.Contents = append(msg.Contents, model.Call(a.callID(variant.ID), variant.Name, props))
		default:
			a.logger.Debug("ignoring content block", "provider", a.provider, "type", block.Type)
		}
	}
	return []model.Message{msg}
}

// FoldAnthropic folds Messages API stream events into cumulative snapshots.
// Blocks are keyed by the event's content block index.
func (a *AnthropicAdapter) FoldAnthropic(events iter.Seq2[anthropic.MessageStreamEventUnion, error]) iter.Seq2[model.Message, error] {
	acc := stream.NewAccumulator(a.logger)
	return stream.Fold(acc, events, a.step)
}

func (a *AnthropicAdapter) step(acc *stream.Accumulator, event anthropic.MessageStreamEventUnion) {
	switch ev := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		i := int(ev.Index)
		switch ev.ContentBlock.Type {
		case "text":
			acc.StartText(i)
			if ev.ContentBlock.Text != "" {
				acc.AppendText(i, ev.ContentBlock.Text)
			}
		case "tool_use":
			if a.dropNameless(ev.ContentBlock.Name, ev.ContentBlock.ID) {
				return
			}
			acc.StartToolCall(i, a.callID(ev.ContentBlock.ID), ev.ContentBlock.Name, nil)
		default:
			a.logger.Debug("ignoring content block", "provider", a.provider, "type", ev.ContentBlock.Type, "index", i)
		}
	case anthropic.ContentBlockDeltaEvent:
		i := int(ev.Index)
		switch delta := ev.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			acc.AppendText(i, delta.Text)
		case anthropic.InputJSONDelta:
			acc.AppendArgs(i, delta.PartialJSON)
		}
	}
}

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	adapter     *AnthropicAdapter
	model       string
	maxTokens   int64
	temperature float64
	onEvent     func(raw []byte)
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg Config) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &AnthropicProvider{
		client:      anthropic.NewClient(opts...),
		adapter:     NewAnthropicAdapter(WithAdapterLogger(cfg.logger()), WithIDFunc(cfg.idFunc())),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: float64(cfg.Temperature),
		onEvent:     cfg.OnEvent,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Adapter returns the wire adapter used by the provider.
func (p *AnthropicProvider) Adapter() *AnthropicAdapter {
	return p.adapter
}

func (p *AnthropicProvider) params(messages []model.Message, defs []tools.Definition) (anthropic.MessageNewParams, error) {
	wire, err := p.adapter.ToWireMessages(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    wire.Messages,
		Temperature: anthropic.Float(p.temperature),
		Tools:       p.adapter.ToWireTools(defs),
	}
	if len(wire.System) > 0 {
		params.System = wire.System
	}
	return params, nil
}

// Generate sends a chat completion request with tool definitions.
func (p *AnthropicProvider) Generate(ctx context.Context, messages []model.Message, defs []tools.Definition) ([]model.Message, error) {
	params, err := p.params(messages, defs)
	if err != nil {
		return nil, err
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	return p.adapter.FromWireResponse(message), nil
}

// Stream streams a chat completion as cumulative snapshots.
func (p *AnthropicProvider) Stream(ctx context.Context, messages []model.Message, defs []tools.Definition) iter.Seq2[model.Message, error] {
	params, err := p.params(messages, defs)
	if err != nil {
		return failed(err)
	}

	events := func(yield func(anthropic.MessageStreamEventUnion, error) bool) {
		s := p.client.Messages.NewStreaming(ctx, params)
		defer s.Close()

		for s.Next() {
			event := s.Current()
			if p.onEvent != nil {
				p.onEvent([]byte(event.RawJSON()))
			}
			if !yield(event, nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(anthropic.MessageStreamEventUnion{}, fmt.Errorf("stream error: %w", err))
		}
	}
	return p.adapter.FoldAnthropic(events)
}

// failed returns a sequence that yields err once.
func failed(err error) iter.Seq2[model.Message, error] {
	return func(yield func(model.Message, error) bool) {
		yield(model.Message{}, err)
	}
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)

var _ Adapter[AnthropicMessages, []anthropic.ToolUnionParam, *anthropic.Message] = (*AnthropicAdapter)(nil)
