package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToolCallsProjectContents(t *testing.T) {
	msg := NewModel(
		Text("Let me check."),
		Call("a", "get_weather", map[string]any{"location": "Paris"}),
		Text("and"),
		Call("b", "get_time", nil),
	)

	calls := msg.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ID != "a" || calls[1].ID != "b" {
		t.Errorf("tool calls out of order: %+v", calls)
	}
	if !msg.HasToolCalls() {
		t.Error("expected HasToolCalls to be true")
	}
	if got := msg.Text(); got != "Let me check.and" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestCallDefaultsProps(t *testing.T) {
	c := Call("x", "noop", nil)
	if c.ToolCall.Props == nil {
		t.Fatal("expected non-nil props")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"user text", User("hi"), false},
		{"model calls", NewModel(Text("x"), Call("1", "a", nil)), false},
		{"duplicate ids", NewModel(Call("1", "a", nil), Call("1", "b", nil)), true},
		{"user with call", Message{Role: RoleUser, Contents: []Content{Call("1", "a", nil)}}, true},
		{"model with result", Message{Role: RoleModel, Contents: []Content{Output("1", "a", "x")}}, true},
		{"tool with text", Message{Role: RoleTool, Contents: []Content{Text("x")}}, true},
		{"tool transitional call", Message{Role: RoleTool, Contents: []Content{Call("1", "a", nil), Output("1", "a", "ok")}}, false},
		{"unknown role", Message{Role: "assistant"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("expected ErrInvalidMessage, got %v", err)
			}
		})
	}
}

func TestAnswers(t *testing.T) {
	call := NewModel(Call("1", "a", nil), Call("2", "b", nil))

	inOrder := NewTool(Output("1", "a", "x"), Failure("2", "b", "boom"))
	if !inOrder.Answers(call) {
		t.Error("expected in-order results to answer call")
	}

	reordered := NewTool(Output("2", "b", "x"), Output("1", "a", "y"))
	if !reordered.Answers(call) {
		t.Error("order must not matter")
	}

	missing := NewTool(Output("1", "a", "x"))
	if missing.Answers(call) {
		t.Error("missing result must not answer")
	}

	wrongID := NewTool(Output("1", "a", "x"), Output("3", "b", "y"))
	if wrongID.Answers(call) {
		t.Error("unmatched id must not answer")
	}
}

func TestConversationAppendDoesNotMutate(t *testing.T) {
	base := make(Conversation, 1, 4)
	base[0] = User("hi")

	a := base.Append(NewModel(Text("a")))
	b := base.Append(NewModel(Text("b")))

	if a[1].Text() != "a" || b[1].Text() != "b" {
		t.Fatalf("append shared backing array: a=%q b=%q", a[1].Text(), b[1].Text())
	}
	if len(base) != 1 {
		t.Errorf("base grew to %d", len(base))
	}
	last, ok := b.Last()
	if !ok || last.Text() != "b" {
		t.Errorf("unexpected last message %+v", last)
	}
}

func TestMessageJSON(t *testing.T) {
	msg := NewModel(
		Text("Let me check."),
		ToolCallContent{ToolCall: ToolCall{ID: "c1", Name: "get_weather", Props: map[string]any{"location": "Paris"}}, Reasoning: []byte("sig")},
	)

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal wire: %v", err)
	}
	calls, _ := wire["toolCalls"].([]any)
	if len(calls) != 1 {
		t.Fatalf("expected toolCalls in JSON, got %s", data)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(msg, decoded); diff != "" {
		t.Errorf("decoded message mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageJSONPlainString(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"role":"user","contents":"Hello"}`), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Role != RoleUser || msg.Text() != "Hello" || len(msg.Contents) != 1 {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestUnmarshalContentRejectsUnknownShape(t *testing.T) {
	if _, err := UnmarshalContent([]byte(`{"image":"x"}`)); err == nil {
		t.Error("expected error for unknown content shape")
	}
}

func TestCloneDetachesProps(t *testing.T) {
	props := map[string]any{"location": "Paris", "days": []any{"mon", map[string]any{"unit": "C"}}}
	orig := Message{Role: RoleModel, Contents: []Content{
		Text("Checking."),
		ToolCallContent{ToolCall: ToolCall{ID: "a", Name: "get_weather", Props: props}, Reasoning: []byte("sig")},
	}}
	want := Message{Role: RoleModel, Contents: []Content{
		Text("Checking."),
		ToolCallContent{
			ToolCall:  ToolCall{ID: "a", Name: "get_weather", Props: map[string]any{"location": "Paris", "days": []any{"mon", map[string]any{"unit": "C"}}}},
			Reasoning: []byte("sig"),
		},
	}}

	clone := orig.Clone()
	if diff := cmp.Diff(orig, clone); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	clone.Contents[0] = Text("changed")
	tc := clone.Contents[1].(ToolCallContent)
	tc.ToolCall.Props["location"] = "Rome"
	tc.ToolCall.Props["days"].([]any)[1].(map[string]any)["unit"] = "F"
	tc.Reasoning[0] = 'X'

	if diff := cmp.Diff(want, orig); diff != "" {
		t.Errorf("original modified through clone (-want +got):\n%s", diff)
	}
}

func TestCloneEmpty(t *testing.T) {
	clone := NewModel().Clone()
	if clone.Role != RoleModel || len(clone.Contents) != 0 {
		t.Errorf("unexpected clone %+v", clone)
	}
}
