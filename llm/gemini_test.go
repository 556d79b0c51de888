package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/stream"
	"github.com/richinex/lingo/tools"
)

type weatherArgs struct {
	Location string `json:"location"`
}

func weatherDefs(t *testing.T) []tools.Definition {
	t.Helper()
	s, err := tools.SchemaFor[weatherArgs]()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return []tools.Definition{{Name: "get_weather", Description: "Get the weather for a location", Input: s}}
}

func TestGeminiToWireMessagesRoles(t *testing.T) {
	a := NewGeminiAdapter()
	wire, err := a.ToWireMessages(weatherConversation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wire) != 4 {
		t.Fatalf("expected one content per message, got %d", len(wire))
	}

	wantRoles := []string{"system", genai.RoleUser, genai.RoleModel, genai.RoleUser}
	for i, want := range wantRoles {
		if wire[i].Role != want {
			t.Errorf("content %d: role %q, want %q", i, wire[i].Role, want)
		}
	}

	call := wire[2].Parts[1].FunctionCall
	if call == nil || call.ID != "call_1" || call.Name != "get_weather" || call.Args["location"] != "Paris" {
		t.Errorf("function call part mismatch: %+v", call)
	}

	resp := wire[3].Parts[0].FunctionResponse
	if resp == nil || resp.Name != "get_weather" || resp.ID != "call_1" {
		t.Fatalf("function response part mismatch: %+v", resp)
	}
	if diff := cmp.Diff(map[string]any{"output": "Sunny"}, resp.Response); diff != "" {
		t.Errorf("response payload mismatch (-want +got):\n%s", diff)
	}
}

func TestGeminiFailureUsesErrorKey(t *testing.T) {
	a := NewGeminiAdapter()
	wire, err := a.ToWireMessages([]model.Message{
		model.NewTool(model.Failure("c", "get_weather", "location unreachable")),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := wire[0].Parts[0].FunctionResponse.Response
	if diff := cmp.Diff(map[string]any{"error": "location unreachable"}, got); diff != "" {
		t.Errorf("error payload mismatch (-want +got):\n%s", diff)
	}
}

func TestGeminiSkipsTransitionalCalls(t *testing.T) {
	a := NewGeminiAdapter()
	msg := model.Message{Role: model.RoleTool, Contents: []model.Content{
		model.Call("c", "get_weather", nil),
		model.Output("c", "get_weather", "Sunny"),
	}}
	wire, err := a.ToWireMessages([]model.Message{msg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wire[0].Parts) != 1 || wire[0].Parts[0].FunctionResponse == nil {
		t.Errorf("expected only the function response, got %+v", wire[0].Parts)
	}
}

func TestGeminiSkipsEmptyTurns(t *testing.T) {
	a := NewGeminiAdapter()
	wire, err := a.ToWireMessages([]model.Message{
		model.User("Hi"),
		model.NewModel(),
		model.NewModel(model.Text("")),
		{Role: model.RoleTool, Contents: []model.Content{model.Call("c", "get_weather", nil)}},
		model.User("Anyone there?"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wire) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(wire))
	}
	for i, want := range []string{"Hi", "Anyone there?"} {
		if wire[i].Role != genai.RoleUser || len(wire[i].Parts) != 1 || wire[i].Parts[0].Text != want {
			t.Errorf("content %d mismatch: %+v", i, wire[i])
		}
	}
}

func TestGeminiReasoningRoundTrip(t *testing.T) {
	a := NewGeminiAdapter()
	sig := []byte("opaque-signature")
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				{Text: "thinking about weather", Thought: true},
				{FunctionCall: &genai.FunctionCall{ID: "fc1", Name: "get_weather", Args: map[string]any{"location": "Paris"}}, ThoughtSignature: sig},
			}},
		}},
	}

	out := a.FromWireResponse(resp)
	if len(out) != 1 || len(out[0].Contents) != 1 {
		t.Fatalf("thought part should be dropped, got %+v", out)
	}
	call, ok := out[0].Contents[0].(model.ToolCallContent)
	if !ok || string(call.Reasoning) != "opaque-signature" {
		t.Fatalf("reasoning not captured: %+v", out[0].Contents[0])
	}

	wire, err := a.ToWireMessages(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(wire[0].Parts[0].ThoughtSignature); got != "opaque-signature" {
		t.Errorf("signature not sent back: %q", got)
	}
}

func TestGeminiFromWireResponse(t *testing.T) {
	a := NewGeminiAdapter(WithIDFunc(sequentialIDs()))

	if got := a.FromWireResponse(&genai.GenerateContentResponse{}); len(got) != 0 {
		t.Errorf("no candidates should produce no messages, got %d", len(got))
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				{Text: "Let me check."},
				{FunctionCall: &genai.FunctionCall{Name: "get_weather", Args: map[string]any{"location": "Paris"}}},
				{FunctionCall: &genai.FunctionCall{ID: "nameless"}},
			}}},
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: "ignored"}}}},
		},
	}
	out := a.FromWireResponse(resp)
	want := []model.Message{model.NewModel(
		model.Text("Let me check."),
		model.Call("gen-1", "get_weather", map[string]any{"location": "Paris"}),
	)}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestGeminiToWireTools(t *testing.T) {
	a := NewGeminiAdapter()
	wire := a.ToWireTools(weatherDefs(t))
	if len(wire) != 1 || len(wire[0].FunctionDeclarations) != 1 {
		t.Fatalf("expected one tool with one declaration, got %+v", wire)
	}
	decl := wire[0].FunctionDeclarations[0]
	if decl.Name != "get_weather" || decl.Description != "Get the weather for a location" {
		t.Errorf("declaration not verbatim: %+v", decl)
	}
	schema, ok := decl.ParametersJsonSchema.(map[string]any)
	if !ok || schema["type"] != "object" {
		t.Errorf("schema not passed through: %#v", decl.ParametersJsonSchema)
	}
}

func textChunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
	}}}
}

func TestGeminiFold(t *testing.T) {
	a := NewGeminiAdapter(WithIDFunc(sequentialIDs()))
	events := stream.Events(
		textChunk("Hel"),
		textChunk("lo"),
		&genai.GenerateContentResponse{},
		&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: "get_weather", Args: map[string]any{"location": "Paris"}}},
			}},
		}}},
		textChunk("Done"),
	)

	var snapshots []model.Message
	for msg, err := range a.FoldGemini(events) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		snapshots = append(snapshots, msg)
	}
	if len(snapshots) != 5 {
		t.Fatalf("expected 5 snapshots, got %d", len(snapshots))
	}
	if snapshots[1].Text() != "Hello" {
		t.Errorf("text deltas not merged: %q", snapshots[1].Text())
	}
	if diff := cmp.Diff(snapshots[1], snapshots[2]); diff != "" {
		t.Errorf("empty chunk changed the snapshot:\n%s", diff)
	}

	want := model.NewModel(
		model.Text("Hello"),
		model.Call("gen-1", "get_weather", map[string]any{"location": "Paris"}),
		model.Text("Done"),
	)
	if diff := cmp.Diff(want, snapshots[4]); diff != "" {
		t.Errorf("final snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestLiftSystem(t *testing.T) {
	wire := []*genai.Content{
		{Role: "system", Parts: []*genai.Part{{Text: "a"}}},
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: "hi"}}},
		{Role: "system", Parts: []*genai.Part{{Text: "b"}}},
	}
	contents, system := liftSystem(wire)
	if len(contents) != 1 || contents[0].Role != genai.RoleUser {
		t.Errorf("system turns not removed: %+v", contents)
	}
	if system == nil || len(system.Parts) != 2 {
		t.Fatalf("system parts not merged: %+v", system)
	}

	if _, system := liftSystem(wire[1:2]); system != nil {
		t.Error("no system turns should give no instruction")
	}
}

func TestGeminiProviderGenerate(t *testing.T) {
	var request map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("x-goog-api-key")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &request)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[
			{"functionCall":{"name":"get_weather","args":{"location":"Paris"}}}
		]}}]}`)
	}))
	defer srv.Close()

	p := NewGeminiProvider(Config{
		APIKey:  "test-key",
		Model:   ModelGeminiFlash25,
		BaseURL: srv.URL,
		NewID:   sequentialIDs(),
	})
	out, err := p.Generate(context.Background(), weatherConversation()[:2], weatherDefs(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("API key not sent, got %q", gotKey)
	}

	calls := out[0].ToolCalls()
	if len(calls) != 1 || calls[0].ID != "gen-1" || calls[0].Props["location"] != "Paris" {
		t.Fatalf("unexpected calls: %+v", calls)
	}

	if request["systemInstruction"] == nil {
		t.Error("system turn not lifted into systemInstruction")
	}
	contents, _ := request["contents"].([]any)
	for _, c := range contents {
		if c.(map[string]any)["role"] == "system" {
			t.Error("system role leaked into contents")
		}
	}
}

func TestGeminiErrorNoAPIKeyLeak(t *testing.T) {
	testKey := "AIza-test-invalid-key-12345xyz"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	p := NewGeminiProvider(Config{APIKey: testKey, Model: ModelGeminiFlash25, BaseURL: srv.URL})
	_, err := p.Generate(context.Background(), []model.Message{model.User("test")}, nil)
	if err == nil {
		t.Fatal("expected error with invalid API key")
	}
	if strings.Contains(err.Error(), testKey) {
		t.Errorf("Gemini error message leaked API key: %v", err)
	}
}
