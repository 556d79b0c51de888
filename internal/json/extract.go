// Package json provides JSON helpers for tool arguments and tool results.
//
// Tool-call arguments arrive from providers either as decoded objects or as
// fragments of JSON text; tool results must be rendered to strings for
// providers that only accept string content.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBuffer is returned by ParseObject for blank input.
var ErrEmptyBuffer = errors.New("empty argument buffer")

// ParseObject parses a complete JSON object.
// A buffer that is not yet syntactically complete returns an error and is
// expected while arguments are still streaming.
func ParseObject(buf string) (map[string]any, error) {
	if strings.TrimSpace(buf) == "" {
		return nil, ErrEmptyBuffer
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(buf), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("arguments are not an object: %q", preview(buf))
	}
	return obj, nil
}

// ToObject converts an arbitrary decoded value into a props object by
// round-tripping through JSON. Nil becomes an empty object.
func ToObject(v any) (map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return t, nil
	case json.RawMessage:
		if len(bytes.TrimSpace(t)) == 0 {
			return map[string]any{}, nil
		}
		return ParseObject(string(t))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	return ParseObject(string(data))
}

// Render returns v as-is when it is a string, otherwise its JSON encoding.
// Errors are rendered by their message.
func Render(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	case nil:
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func preview(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
