// Package model provides the canonical message types shared across packages.
//
// Every provider adapter reads and produces these types. The content variants
// are closed: TextContent, ToolCallContent and ToolResultContent are the only
// implementations of Content.
package model

// Role identifies the author of a message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleTool   Role = "tool"
)

// Valid reports whether r is one of the four canonical roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleModel, RoleTool:
		return true
	}
	return false
}

// Content is one unit of a message payload.
type Content interface {
	isContent()
}

// TextContent is a plain text block.
type TextContent struct {
	Text string
}

func (TextContent) isContent() {}

// ToolCall is a model-issued request to invoke a named tool.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Props map[string]any `json:"props"`
}

// ToolCallContent wraps a ToolCall. Reasoning is an opaque provider token
// (for example a Gemini thought signature) that must be sent back unmodified
// to the same provider on the next turn.
type ToolCallContent struct {
	ToolCall  ToolCall
	Reasoning []byte
}

func (ToolCallContent) isContent() {}

// Result holds the outcome of a tool call. Exactly one of Output and Error
// is meaningful; Error wins when both are set.
type Result struct {
	Output any `json:"output,omitempty"`
	Error  any `json:"error,omitempty"`
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool {
	return r.Error != nil
}

// ToolResult answers the ToolCall with the same ID.
type ToolResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Result Result `json:"result"`
}

// ToolResultContent wraps a ToolResult.
type ToolResultContent struct {
	ToolResult ToolResult
}

func (ToolResultContent) isContent() {}

// Text creates a text content block.
func Text(text string) TextContent {
	return TextContent{Text: text}
}

// Call creates a tool-call content block.
func Call(id, name string, props map[string]any) ToolCallContent {
	if props == nil {
		props = map[string]any{}
	}
	return ToolCallContent{ToolCall: ToolCall{ID: id, Name: name, Props: props}}
}

// Output creates a successful tool-result content block.
func Output(id, name string, output any) ToolResultContent {
	return ToolResultContent{ToolResult: ToolResult{ID: id, Name: name, Result: Result{Output: output}}}
}

// Failure creates a failed tool-result content block.
func Failure(id, name string, err any) ToolResultContent {
	return ToolResultContent{ToolResult: ToolResult{ID: id, Name: name, Result: Result{Error: err}}}
}
