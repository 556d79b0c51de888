// Ollama wire format and adapter.
//
// Information Hiding:
// - /api/chat request and response shapes
// - Tool results carried as one tool turn per result
// - Streaming chunk framing

package llm

import (
	"fmt"
	"iter"
	"strings"

	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/stream"
	"github.com/richinex/lingo/tools"
)

// Ollama chat roles.
const (
	OllamaRoleSystem    = "system"
	OllamaRoleUser      = "user"
	OllamaRoleAssistant = "assistant"
	OllamaRoleTool      = "tool"
)

// OllamaMessage is one message of an /api/chat exchange.
type OllamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Thinking  string           `json:"thinking,omitempty"`
	ToolCalls []OllamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

// OllamaToolCall is a function call requested by the model.
type OllamaToolCall struct {
	ID       string             `json:"id,omitempty"`
	Function OllamaFunctionCall `json:"function"`
}

// OllamaFunctionCall carries the call's name and complete arguments.
type OllamaFunctionCall struct {
	Index     int            `json:"index,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// OllamaTool declares a function tool.
type OllamaTool struct {
	Type     string         `json:"type"`
	Function OllamaFunction `json:"function"`
}

// OllamaFunction is a tool declaration with its JSON Schema parameters.
type OllamaFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// OllamaChatRequest is the body of POST /api/chat.
type OllamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Tools    []OllamaTool    `json:"tools,omitempty"`
	Stream   *bool           `json:"stream,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

// OllamaChatResponse is a complete response or one streamed chunk.
type OllamaChatResponse struct {
	Model           string        `json:"model"`
	CreatedAt       string        `json:"created_at,omitempty"`
	Message         OllamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// OllamaAdapter converts between canonical messages and /api/chat.
type OllamaAdapter struct {
	adapterBase
}

// NewOllamaAdapter creates an adapter.
func NewOllamaAdapter(opts ...AdapterOption) *OllamaAdapter {
	return &OllamaAdapter{adapterBase: newAdapterBase("ollama", opts)}
}

// ToWireMessages flattens text into message content. A tool message becomes
// one tool turn per result, tagged with the tool name.
func (a *OllamaAdapter) ToWireMessages(messages []model.Message) ([]OllamaMessage, error) {
	out := make([]OllamaMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem, model.RoleUser:
			text, err := flattenText(a.provider, msg)
			if err != nil {
				return nil, err
			}
			role := OllamaRoleUser
			if msg.Role == model.RoleSystem {
				role = OllamaRoleSystem
			}
			out = append(out, OllamaMessage{Role: role, Content: text})
		case model.RoleModel:
			wire, err := a.assistant(msg)
			if err != nil {
				return nil, err
			}
			out = append(out, wire)
		case model.RoleTool:
			for _, c := range msg.Contents {
				switch v := c.(type) {
				case model.ToolCallContent:
					continue
				case model.ToolResultContent:
					out = append(out, OllamaMessage{
						Role:     OllamaRoleTool,
						Content:  resultText(v.ToolResult.Result),
						ToolName: v.ToolResult.Name,
					})
				default:
					return nil, unsupported(a.provider, msg.Role, c)
				}
			}
		default:
			return nil, fmt.Errorf("%s: %w %q", a.provider, ErrUnsupportedRole, msg.Role)
		}
	}

	return out, nil
}

func (a *OllamaAdapter) assistant(msg model.Message) (OllamaMessage, error) {
	wire := OllamaMessage{Role: OllamaRoleAssistant}
	var text strings.Builder
	for _, c := range msg.Contents {
		switch v := c.(type) {
		case model.TextContent:
			text.WriteString(v.Text)
		case model.ToolCallContent:
			wire.ToolCalls = append(wire.ToolCalls, OllamaToolCall{
				ID: v.ToolCall.ID,
				Function: OllamaFunctionCall{
					Name:      v.ToolCall.Name,
					Arguments: v.ToolCall.Props,
				},
			})
		default:
			return OllamaMessage{}, unsupported(a.provider, msg.Role, c)
		}
	}
	wire.Content = text.String()
	return wire, nil
}

// ToWireTools converts tool definitions to function tools.
func (a *OllamaAdapter) ToWireTools(defs []tools.Definition) []OllamaTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]OllamaTool, len(defs))
	for i, d := range defs {
		out[i] = OllamaTool{
			Type: "function",
			Function: OllamaFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  schemaDoc(d),
			},
		}
	}
	return out
}

// FromWireResponse converts a complete /api/chat response.
func (a *OllamaAdapter) FromWireResponse(resp *OllamaChatResponse) []model.Message {
	if resp == nil {
		return []model.Message{}
	}

	msg := model.Message{Role: model.RoleModel}
	if resp.Message.Content != "" {
		msg.Contents = append(msg.Contents, model.Text(resp.Message.Content))
	}
	for _, tc := range resp.Message.ToolCalls {
		if call, ok := a.call(tc); ok {
			msg.Contents = append(msg.Contents, call)
		}
	}
	return []model.Message{msg}
}

func (a *OllamaAdapter) call(tc OllamaToolCall) (model.ToolCallContent, bool) {
	if a.dropNameless(tc.Function.Name, tc.ID) {
		return model.ToolCallContent{}, false
	}
	return model.Call(a.callID(tc.ID), tc.Function.Name, tc.Function.Arguments), true
}

// FoldOllama folds streamed /api/chat chunks into cumulative snapshots.
// Content deltas extend the trailing text block; tool calls arrive whole.
func (a *OllamaAdapter) FoldOllama(events iter.Seq2[*OllamaChatResponse, error]) iter.Seq2[model.Message, error] {
	acc := stream.NewAccumulator(a.logger)
	return stream.Fold(acc, events, a.step)
}

func (a *OllamaAdapter) step(acc *stream.Accumulator, chunk *OllamaChatResponse) {
	if chunk == nil {
		return
	}
	if chunk.Message.Content != "" {
		appendText(acc, chunk.Message.Content)
	}
	for _, tc := range chunk.Message.ToolCalls {
		call, ok := a.call(tc)
		if !ok {
			continue
		}
		i := acc.Next()
		acc.StartToolCall(i, call.ToolCall.ID, call.ToolCall.Name, nil)
		acc.SetProps(i, call.ToolCall.Props)
	}
}

var _ Adapter[[]OllamaMessage, []OllamaTool, *OllamaChatResponse] = (*OllamaAdapter)(nil)
