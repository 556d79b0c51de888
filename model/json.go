package model

import (
	"encoding/json"
	"fmt"
)

type textJSON struct {
	Text string `json:"text"`
}

type toolCallJSON struct {
	ToolCall  ToolCall `json:"toolCall"`
	Reasoning []byte   `json:"reasoning,omitempty"`
}

type toolResultJSON struct {
	ToolResult ToolResult `json:"toolResult"`
}

type messageJSON struct {
	Role      Role              `json:"role"`
	Contents  []json.RawMessage `json:"contents"`
	ToolCalls []ToolCall        `json:"toolCalls,omitempty"`
}

// MarshalContent encodes a content block in its tagged JSON form.
func MarshalContent(c Content) ([]byte, error) {
	switch v := c.(type) {
	case TextContent:
		return json.Marshal(textJSON{Text: v.Text})
	case ToolCallContent:
		return json.Marshal(toolCallJSON{ToolCall: v.ToolCall, Reasoning: v.Reasoning})
	case ToolResultContent:
		return json.Marshal(toolResultJSON{ToolResult: v.ToolResult})
	default:
		return nil, fmt.Errorf("marshal content: unsupported type %T", c)
	}
}

// UnmarshalContent decodes a tagged content block. The variant is chosen by
// the key present in the object.
func UnmarshalContent(data []byte) (Content, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	switch {
	case keys["toolCall"] != nil:
		var v toolCallJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal tool call: %w", err)
		}
		if v.ToolCall.Props == nil {
			v.ToolCall.Props = map[string]any{}
		}
		return ToolCallContent{ToolCall: v.ToolCall, Reasoning: v.Reasoning}, nil
	case keys["toolResult"] != nil:
		var v toolResultJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal tool result: %w", err)
		}
		return ToolResultContent{ToolResult: v.ToolResult}, nil
	case keys["text"] != nil:
		var v textJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal text: %w", err)
		}
		return TextContent{Text: v.Text}, nil
	default:
		return nil, fmt.Errorf("unmarshal content: unrecognized shape %s", data)
	}
}

// MarshalJSON implements json.Marshaler. The derived toolCalls list is
// included for model messages.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{Role: m.Role, Contents: make([]json.RawMessage, 0, len(m.Contents))}
	for _, c := range m.Contents {
		raw, err := MarshalContent(c)
		if err != nil {
			return nil, err
		}
		out.Contents = append(out.Contents, raw)
	}
	if m.Role == RoleModel {
		out.ToolCalls = m.ToolCalls()
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. A plain string is accepted as
// contents for system and user messages. Any toolCalls field is ignored
// because it is derived from contents.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role     Role            `json:"role"`
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Contents = nil
	if len(raw.Contents) == 0 || string(raw.Contents) == "null" {
		return nil
	}

	var plain string
	if err := json.Unmarshal(raw.Contents, &plain); err == nil {
		m.Contents = []Content{TextContent{Text: plain}}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw.Contents, &items); err != nil {
		return fmt.Errorf("unmarshal contents: %w", err)
	}
	for _, item := range items {
		c, err := UnmarshalContent(item)
		if err != nil {
			return err
		}
		m.Contents = append(m.Contents, c)
	}
	return nil
}
