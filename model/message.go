package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMessage is returned by Validate for malformed messages.
var ErrInvalidMessage = errors.New("invalid message")

// Message is the vendor-neutral conversation unit.
// Messages are values; once returned they must not be modified.
type Message struct {
	Role     Role
	Contents []Content
}

// System creates a system message with a single text block.
func System(text string) Message {
	return Message{Role: RoleSystem, Contents: []Content{Text(text)}}
}

// User creates a user message with a single text block.
func User(text string) Message {
	return Message{Role: RoleUser, Contents: []Content{Text(text)}}
}

// NewModel creates a model message from text and tool-call contents.
func NewModel(contents ...Content) Message {
	return Message{Role: RoleModel, Contents: contents}
}

// NewTool creates a tool message from tool results.
func NewTool(results ...ToolResultContent) Message {
	contents := make([]Content, len(results))
	for i, r := range results {
		contents[i] = r
	}
	return Message{Role: RoleTool, Contents: contents}
}

// ToolCalls returns every tool call in Contents, in order.
// It is derived on each call so it can never diverge from Contents.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, c := range m.Contents {
		if tc, ok := c.(ToolCallContent); ok {
			calls = append(calls, tc.ToolCall)
		}
	}
	return calls
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m Message) HasToolCalls() bool {
	for _, c := range m.Contents {
		if _, ok := c.(ToolCallContent); ok {
			return true
		}
	}
	return false
}

// ToolResults returns every tool result in Contents, in order.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, c := range m.Contents {
		if tr, ok := c.(ToolResultContent); ok {
			results = append(results, tr.ToolResult)
		}
	}
	return results
}

// Clone returns a copy of m whose Contents, tool-call props and reasoning
// can be modified without affecting m. Tool result values are shared.
func (m Message) Clone() Message {
	if m.Contents == nil {
		return Message{Role: m.Role}
	}
	contents := make([]Content, len(m.Contents))
	for i, c := range m.Contents {
		if tc, ok := c.(ToolCallContent); ok {
			tc.ToolCall.Props = cloneMap(tc.ToolCall.Props)
			if tc.Reasoning != nil {
				tc.Reasoning = append([]byte(nil), tc.Reasoning...)
			}
			c = tc
		}
		contents[i] = c
	}
	return Message{Role: m.Role, Contents: contents}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Text concatenates all text blocks.
func (m Message) Text() string {
	var b strings.Builder
	for _, c := range m.Contents {
		if t, ok := c.(TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// Validate checks that the contents are allowed for the message role and
// that tool-call IDs are unique within the message.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, m.Role)
	}
	seen := make(map[string]bool)
	for i, c := range m.Contents {
		switch v := c.(type) {
		case TextContent:
			if m.Role == RoleTool {
				return fmt.Errorf("%w: tool message has text at %d", ErrInvalidMessage, i)
			}
		case ToolCallContent:
			if m.Role == RoleSystem || m.Role == RoleUser {
				return fmt.Errorf("%w: %s message has tool call at %d", ErrInvalidMessage, m.Role, i)
			}
			if m.Role == RoleModel {
				if seen[v.ToolCall.ID] {
					return fmt.Errorf("%w: duplicate tool call id %q", ErrInvalidMessage, v.ToolCall.ID)
				}
				seen[v.ToolCall.ID] = true
			}
		case ToolResultContent:
			if m.Role != RoleTool {
				return fmt.Errorf("%w: %s message has tool result at %d", ErrInvalidMessage, m.Role, i)
			}
		case nil:
			return fmt.Errorf("%w: nil content at %d", ErrInvalidMessage, i)
		}
	}
	return nil
}

// Answers reports whether tool message m answers every call in call exactly
// once, matched by ID. Order is not significant.
func (m Message) Answers(call Message) bool {
	calls := call.ToolCalls()
	results := m.ToolResults()
	if len(calls) != len(results) {
		return false
	}
	pending := make(map[string]int, len(calls))
	for _, c := range calls {
		pending[c.ID]++
	}
	for _, r := range results {
		if pending[r.ID] == 0 {
			return false
		}
		pending[r.ID]--
	}
	return true
}

// Conversation is an append-only sequence of messages.
type Conversation []Message

// Append returns a new conversation extended with msgs.
// The receiver's backing array is never written to.
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make(Conversation, 0, len(c)+len(msgs))
	out = append(out, c...)
	return append(out, msgs...)
}

// Last returns the final message, if any.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}
