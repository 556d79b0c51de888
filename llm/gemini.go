// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Streaming via official SDK iterator

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/stream"
	"github.com/richinex/lingo/tools"
)

// geminiRoleSystem tags system turns in the wire list. The provider lifts
// them into the request's system instruction.
const geminiRoleSystem = "system"

// GeminiAdapter converts between canonical messages and the Gemini API.
type GeminiAdapter struct {
	adapterBase
}

// NewGeminiAdapter creates an adapter.
func NewGeminiAdapter(opts ...AdapterOption) *GeminiAdapter {
	return &GeminiAdapter{adapterBase: newAdapterBase("gemini", opts)}
}

// ToWireMessages maps each message to one content entry. Tool turns are sent
// as user turns of function responses.
func (a *GeminiAdapter) ToWireMessages(messages []model.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case model.RoleSystem:
			role = geminiRoleSystem
		case model.RoleUser, model.RoleTool:
			role = genai.RoleUser
		case model.RoleModel:
			role = genai.RoleModel
		default:
			return nil, fmt.Errorf("%s: %w %q", a.provider, ErrUnsupportedRole, msg.Role)
		}

		content := &genai.Content{Role: role}
		for _, c := range msg.Contents {
			part, err := a.part(msg.Role, c)
			if err != nil {
				return nil, err
			}
			if part != nil {
				content.Parts = append(content.Parts, part)
			}
		}
		if len(content.Parts) == 0 {
			a.logger.Debug("skipping empty turn", "provider", a.provider, "role", msg.Role)
			continue
		}
		contents = append(contents, content)
	}

	return contents, nil
}

func (a *GeminiAdapter) part(role model.Role, c model.Content) (*genai.Part, error) {
	switch v := c.(type) {
	case model.TextContent:
		if role == model.RoleTool {
			return nil, unsupported(a.provider, role, c)
		}
		if v.Text == "" {
			return nil, nil
		}
		return &genai.Part{Text: v.Text}, nil
	case model.ToolCallContent:
		switch role {
		case model.RoleTool:
			return nil, nil
		case model.RoleModel:
			return &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   v.ToolCall.ID,
					Name: v.ToolCall.Name,
					Args: v.ToolCall.Props,
				},
				ThoughtSignature: v.Reasoning,
			}, nil
		}
	case model.ToolResultContent:
		if role != model.RoleTool {
			break
		}
		r := v.ToolResult
		response := map[string]any{"output": r.Result.Output}
		if r.Result.Failed() {
			response = map[string]any{"error": r.Result.Error}
		}
		return &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       r.ID,
				Name:     r.Name,
				Response: response,
			},
		}, nil
	}
	return nil, unsupported(a.provider, role, c)
}

// ToWireTools converts tool definitions to a single Gemini tool of function
// declarations. Schemas are passed through as JSON Schema.
func (a *GeminiAdapter) ToWireTools(defs []tools.Definition) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:                 d.Name,
			Description:          d.Description,
			ParametersJsonSchema: schemaDoc(d),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// FromWireResponse converts the first candidate of a response.
func (a *GeminiAdapter) FromWireResponse(resp *genai.GenerateContentResponse) []model.Message {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return []model.Message{}
	}

	msg := model.Message{Role: model.RoleModel}
	if content := resp.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			if c, ok := a.content(part); ok {
				msg.Contents = append(msg.Contents, c)
			}
		}
	}
	return []model.Message{msg}
}

// content maps a response part. Thought summaries and empty parts carry no
// content.
func (a *GeminiAdapter) content(part *genai.Part) (model.Content, bool) {
	switch {
	case part == nil || part.Thought:
		return nil, false
	case part.FunctionCall != nil:
		fc := part.FunctionCall
		if a.dropNameless(fc.Name, fc.ID) {
			return nil, false
		}
		return model.ToolCallContent{
			ToolCall:  model.Call(a.callID(fc.ID), fc.Name, fc.Args).ToolCall,
			Reasoning: part.ThoughtSignature,
		}, true
	case part.Text != "":
		return model.Text(part.Text), true
	}
	return nil, false
}

// FoldGemini folds streamed Gemini responses into cumulative snapshots.
// Text parts extend the trailing text block; each function call opens a new
// block with its complete arguments.
func (a *GeminiAdapter) FoldGemini(events iter.Seq2[*genai.GenerateContentResponse, error]) iter.Seq2[model.Message, error] {
	acc := stream.NewAccumulator(a.logger)
	return stream.Fold(acc, events, a.step)
}

func (a *GeminiAdapter) step(acc *stream.Accumulator, resp *genai.GenerateContentResponse) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		c, ok := a.content(part)
		if !ok {
			continue
		}
		switch v := c.(type) {
		case model.TextContent:
			appendText(acc, v.Text)
		case model.ToolCallContent:
			i := acc.Next()
			acc.StartToolCall(i, v.ToolCall.ID, v.ToolCall.Name, v.Reasoning)
			acc.SetProps(i, v.ToolCall.Props)
		}
	}
}

// appendText extends the trailing text block or opens a new one.
func appendText(acc *stream.Accumulator, text string) {
	i, ok := acc.LastText()
	if !ok {
		i = acc.Next()
		acc.StartText(i)
	}
	acc.AppendText(i, text)
}

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	adapter     *GeminiAdapter
	model       string
	maxTokens   int32
	temperature float32
	onEvent     func(raw []byte)
	initErr     error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(cfg Config) *GeminiProvider {
	p := &GeminiProvider{
		adapter:     NewGeminiAdapter(WithAdapterLogger(cfg.logger()), WithIDFunc(cfg.idFunc())),
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
		onEvent:     cfg.OnEvent,
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		// Store initialization error to return on first use - preserves constructor signature
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
		return p
	}
	p.client = client
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Adapter returns the wire adapter used by the provider.
func (p *GeminiProvider) Adapter() *GeminiAdapter {
	return p.adapter
}

func (p *GeminiProvider) request(messages []model.Message, defs []tools.Definition) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if p.initErr != nil {
		return nil, nil, p.initErr
	}
	if p.client == nil {
		return nil, nil, fmt.Errorf("gemini client not initialized")
	}

	wire, err := p.adapter.ToWireMessages(messages)
	if err != nil {
		return nil, nil, err
	}
	contents, system := liftSystem(wire)

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(p.temperature),
		MaxOutputTokens:   p.maxTokens,
		Tools:             p.adapter.ToWireTools(defs),
		SystemInstruction: system,
	}
	return contents, config, nil
}

// liftSystem moves system turns out of the content list and merges their
// parts into one system instruction.
func liftSystem(wire []*genai.Content) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(wire))
	for _, c := range wire {
		if c.Role != geminiRoleSystem {
			contents = append(contents, c)
			continue
		}
		if system == nil {
			system = &genai.Content{Role: genai.RoleUser}
		}
		system.Parts = append(system.Parts, c.Parts...)
	}
	return contents, system
}

// Generate sends a chat completion request with tool definitions.
func (p *GeminiProvider) Generate(ctx context.Context, messages []model.Message, defs []tools.Definition) ([]model.Message, error) {
	contents, config, err := p.request(messages, defs)
	if err != nil {
		return nil, err
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	return p.adapter.FromWireResponse(response), nil
}

// Stream streams a chat completion as cumulative snapshots.
func (p *GeminiProvider) Stream(ctx context.Context, messages []model.Message, defs []tools.Definition) iter.Seq2[model.Message, error] {
	contents, config, err := p.request(messages, defs)
	if err != nil {
		return failed(err)
	}

	events := func(yield func(*genai.GenerateContentResponse, error) bool) {
		// GenerateContentStream returns iter.Seq2[*GenerateContentResponse, error]
		for response, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
			if err != nil {
				yield(nil, fmt.Errorf("stream error: %w", err))
				return
			}
			if p.onEvent != nil {
				if raw, err := json.Marshal(response); err == nil {
					p.onEvent(raw)
				}
			}
			if !yield(response, nil) {
				return
			}
		}
	}
	return p.adapter.FoldGemini(events)
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)

var _ Adapter[[]*genai.Content, []*genai.Tool, *genai.GenerateContentResponse] = (*GeminiAdapter)(nil)
