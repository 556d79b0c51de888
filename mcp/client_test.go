package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/tools"
)

func newTestServer() *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "weather", Version: "test"}, nil)
	server.AddTool(&mcpsdk.Tool{
		Name:        "get_weather",
		Description: "Get the weather for a location",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{"type": "string"},
			},
			"required": []any{"location"},
		},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args struct {
			Location string `json:"location"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
		if args.Location == "Atlantis" {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "location unreachable"}},
				IsError: true,
			}, nil
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "Sunny in " + args.Location}},
		}, nil
	})
	server.AddTool(&mcpsdk.Tool{
		Name:        "forecast",
		Description: "Multi-line forecast",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: "Mon: rain"},
				&mcpsdk.TextContent{Text: "Tue: sun"},
			},
		}, nil
	})
	return server
}

func connectInMemory(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := newTestServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client, err := connect(ctx, "weather", clientTransport)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestToolsDiscovery(t *testing.T) {
	client := connectInMemory(t)

	discovered, err := client.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}
	var names []string
	for _, tool := range discovered {
		names = append(names, tool.Definition().Name)
	}
	if diff := cmp.Diff([]string{"forecast", "get_weather"}, names); diff != "" {
		t.Errorf("tool names mismatch (-want +got):\n%s", diff)
	}

	def := discovered[1].Definition()
	if def.Description != "Get the weather for a location" {
		t.Errorf("unexpected description %q", def.Description)
	}
	if v := def.Input.Validate(map[string]any{}); v.OK() {
		t.Error("missing location should fail the server's schema")
	}
	if v := def.Input.Validate(map[string]any{"location": "Paris"}); !v.OK() {
		t.Errorf("valid input rejected: %v", v.Errors)
	}
}

func TestCallTool(t *testing.T) {
	client := connectInMemory(t)
	ctx := context.Background()

	out, err := client.Call(ctx, "get_weather", map[string]any{"location": "Paris"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if out != "Sunny in Paris" {
		t.Errorf("unexpected output %v", out)
	}

	out, err = client.Call(ctx, "forecast", map[string]any{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if out != "Mon: rain\nTue: sun" {
		t.Errorf("text blocks should be joined by newlines, got %q", out)
	}
}

func TestCallToolError(t *testing.T) {
	client := connectInMemory(t)

	_, err := client.Call(context.Background(), "get_weather", map[string]any{"location": "Atlantis"})
	if err == nil || err.Error() != "location unreachable" {
		t.Errorf("expected the server's error text, got %v", err)
	}
}

func TestToolsThroughInvoker(t *testing.T) {
	client := connectInMemory(t)
	discovered, err := client.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}

	registry := tools.NewRegistry(discovered...)
	invoker := tools.NewInvoker(registry)

	reply := model.NewModel(
		model.Call("c1", "get_weather", map[string]any{"location": "Paris"}),
		model.Call("c2", "get_weather", map[string]any{"location": "Atlantis"}),
		model.Call("c3", "get_weather", map[string]any{}),
	)
	results := invoker.Invoke(context.Background(), reply).ToolResults()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Result.Output != "Sunny in Paris" {
		t.Errorf("unexpected output %+v", results[0].Result)
	}
	if results[1].Result.Error != "location unreachable" {
		t.Errorf("server error should become a failed result, got %+v", results[1].Result)
	}
	if !results[2].Result.Failed() {
		t.Error("schema violation should fail before reaching the server")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	data := `{
	  "mcpServers": {
	    "files": {"command": "npx", "args": ["-y", "server-filesystem"], "env": {"ROOT": "/tmp"}},
	    "search": {"url": "http://localhost:8080/mcp"},
	    "legacy": {"type": "sse", "url": "http://localhost:8081/sse"}
	  }
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if diff := cmp.Diff([]string{"files", "legacy", "search"}, cfg.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.MCPServers["files"].Env["ROOT"]; got != "/tmp" {
		t.Errorf("env not loaded, got %q", got)
	}

	for name, want := range map[string]string{
		"files":  "*mcp.CommandTransport",
		"search": "*mcp.StreamableClientTransport",
		"legacy": "*mcp.SSEClientTransport",
	} {
		transport, err := cfg.MCPServers[name].transport(context.Background())
		if err != nil {
			t.Fatalf("%s: transport failed: %v", name, err)
		}
		if got := typeName(transport); got != want {
			t.Errorf("%s: transport %s, want %s", name, got, want)
		}
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty server":      `{"mcpServers": {"x": {}}}`,
		"unknown transport": `{"mcpServers": {"x": {"type": "ws", "url": "ws://host"}}}`,
		"bad json":          `{"mcpServers": `,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mcp.json")
			if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *mcpsdk.CommandTransport:
		return "*mcp.CommandTransport"
	case *mcpsdk.StreamableClientTransport:
		return "*mcp.StreamableClientTransport"
	case *mcpsdk.SSEClientTransport:
		return "*mcp.SSEClientTransport"
	}
	return "unknown"
}
