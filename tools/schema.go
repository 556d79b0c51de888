package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Validation is the outcome of Schema.Validate. Value is the validated value
// and is only meaningful when Errors is empty.
type Validation struct {
	Errors []string
	Value  any
}

// OK reports whether validation succeeded.
func (v Validation) OK() bool {
	return len(v.Errors) == 0
}

// Schema validates tool input and projects itself to JSON Schema.
// Implementations must be pure.
type Schema interface {
	Validate(value any) Validation
	JSONSchema() map[string]any
}

// JSONSchema is a Schema backed by a resolved JSON Schema document.
type JSONSchema struct {
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
	doc      map[string]any
}

// NewJSONSchema resolves s for validation.
func NewJSONSchema(s *jsonschema.Schema) (*JSONSchema, error) {
	if s == nil {
		s = &jsonschema.Schema{Type: "object"}
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to project schema: %w", err)
	}
	return &JSONSchema{schema: s, resolved: resolved, doc: doc}, nil
}

// SchemaFromMap builds a JSONSchema from a decoded JSON Schema object, such
// as an MCP server's inputSchema.
func SchemaFromMap(doc map[string]any) (*JSONSchema, error) {
	if doc == nil {
		doc = map[string]any{"type": "object"}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return SchemaFromJSON(data)
}

// SchemaFromJSON builds a JSONSchema from raw JSON Schema text.
func SchemaFromJSON(data []byte) (*JSONSchema, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return NewJSONSchema(&s)
}

// SchemaFor infers a JSONSchema from the Go type T.
func SchemaFor[T any]() (*JSONSchema, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to infer schema: %w", err)
	}
	return NewJSONSchema(s)
}

// Validate checks value against the schema. Values are normalized through
// JSON first so Go structs and decoded maps validate alike.
func (s *JSONSchema) Validate(value any) Validation {
	normalized, err := normalize(value)
	if err != nil {
		return Validation{Errors: []string{err.Error()}}
	}
	if err := s.resolved.Validate(normalized); err != nil {
		return Validation{Errors: []string{err.Error()}}
	}
	return Validation{Value: normalized}
}

// JSONSchema returns the schema document.
func (s *JSONSchema) JSONSchema() map[string]any {
	return s.doc
}

func normalize(value any) (any, error) {
	switch value.(type) {
	case nil, map[string]any, []any, string, float64, bool:
		return value, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("input is not JSON encodable: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("input is not JSON encodable: %w", err)
	}
	return out, nil
}
