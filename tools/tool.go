// Package tools provides the tool system: declared capabilities, a registry
// and the invocation loop that answers model tool calls.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Input validation delegated to Schema
// - Registry implementation details hidden from consumers
// - Per-call failures converted to tool results, never returned
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Definition declares a capability to a model. Name is the tool's identity.
type Definition struct {
	Name        string
	Description string
	Input       Schema
}

// String returns a short description of the tool.
func (d Definition) String() string {
	return fmt.Sprintf("%s: %s", d.Name, d.Description)
}

// Tool is the interface that all tools must implement.
type Tool interface {
	// Definition returns the name, description and input schema.
	Definition() Definition

	// Call runs the tool with input that already passed Definition().Input.
	Call(ctx context.Context, input any) (any, error)
}

// Func adapts a typed Go function into a Tool. The input schema is inferred
// from In and validated input is decoded into In before fn runs.
type Func[In, Out any] struct {
	def Definition
	fn  func(ctx context.Context, in In) (Out, error)
}

// NewFunc creates a typed tool.
func NewFunc[In, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error)) (*Func[In, Out], error) {
	schema, err := SchemaFor[In]()
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}
	return &Func[In, Out]{
		def: Definition{Name: name, Description: description, Input: schema},
		fn:  fn,
	}, nil
}

// MustFunc is like NewFunc but panics on schema inference errors.
// Use it only for package-level tool declarations.
func MustFunc[In, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error)) *Func[In, Out] {
	t, err := NewFunc(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Definition returns the tool declaration.
func (f *Func[In, Out]) Definition() Definition {
	return f.def
}

// Call decodes input into In and runs the function.
func (f *Func[In, Out]) Call(ctx context.Context, input any) (any, error) {
	var in In
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	return f.fn(ctx, in)
}

// Dynamic is a Tool built from a definition and an untyped function.
type Dynamic struct {
	Def Definition
	Fn  func(ctx context.Context, input any) (any, error)
}

// Definition returns the tool declaration.
func (d Dynamic) Definition() Definition {
	return d.Def
}

// Call runs the function.
func (d Dynamic) Call(ctx context.Context, input any) (any, error) {
	return d.Fn(ctx, input)
}

// Definitions returns the declarations of ts, in order.
func Definitions(ts ...Tool) []Definition {
	defs := make([]Definition, len(ts))
	for i, t := range ts {
		defs[i] = t.Definition()
	}
	return defs
}
