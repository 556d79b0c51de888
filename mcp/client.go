// Package mcp exposes tools served by Model Context Protocol servers as
// ordinary tools.Tool values.
//
// Information Hiding:
// - Session lifecycle hidden behind Client
// - Transport selection hidden behind ServerConfig
// - Protocol content blocks flattened into plain tool output
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/richinex/lingo/tools"
)

// ClientName and ClientVersion identify this client during the handshake.
const (
	ClientName    = "lingo"
	ClientVersion = "0.1.0"
)

// Client is a connected MCP session.
type Client struct {
	name    string
	session *mcpsdk.ClientSession
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for tool discovery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Connect starts the server described by cfg and completes the handshake.
// name labels the server in logs and errors.
func Connect(ctx context.Context, name string, cfg ServerConfig, opts ...Option) (*Client, error) {
	transport, err := cfg.transport(ctx)
	if err != nil {
		return nil, fmt.Errorf("server %q: %w", name, err)
	}
	return connect(ctx, name, transport, opts...)
}

// ConnectCommand spawns command with args and speaks MCP over its stdio.
func ConnectCommand(ctx context.Context, command string, args ...string) (*Client, error) {
	return Connect(ctx, command, ServerConfig{Command: command, Args: args})
}

func connect(ctx context.Context, name string, transport mcpsdk.Transport, opts ...Option) (*Client, error) {
	impl := mcpsdk.NewClient(&mcpsdk.Implementation{Name: ClientName, Version: ClientVersion}, nil)
	session, err := impl.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server %q: %w", name, err)
	}
	c := &Client{
		name:    name,
		session: session,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the server label.
func (c *Client) Name() string {
	return c.name
}

// Tools lists the server's tools. Tools whose input schema cannot be
// resolved are skipped with a warning.
func (c *Client) Tools(ctx context.Context) ([]tools.Tool, error) {
	var out []tools.Tool
	for info, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("failed to list tools of %q: %w", c.name, err)
		}
		schema, err := inputSchema(info.InputSchema)
		if err != nil {
			c.logger.Warn("skipping MCP tool", "server", c.name, "tool", info.Name, "error", err)
			continue
		}
		out = append(out, &Tool{
			client: c,
			def: tools.Definition{
				Name:        info.Name,
				Description: info.Description,
				Input:       schema,
			},
		})
	}
	return out, nil
}

// Call invokes the named tool with input. A result flagged as an error by
// the server is returned as a Go error carrying the result text.
func (c *Client) Call(ctx context.Context, name string, input any) (any, error) {
	res, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: input})
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	text := joinText(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return nil, errors.New(text)
	}
	if res.StructuredContent != nil {
		return res.StructuredContent, nil
	}
	return text, nil
}

// Close ends the session and stops the server process.
func (c *Client) Close() error {
	if c == nil || c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func inputSchema(raw any) (*tools.JSONSchema, error) {
	if raw == nil {
		return tools.SchemaFromMap(nil)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input schema: %w", err)
	}
	return tools.SchemaFromJSON(data)
}

func joinText(content []mcpsdk.Content) string {
	var text string
	for _, block := range content {
		tc, ok := block.(*mcpsdk.TextContent)
		if !ok {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += tc.Text
	}
	return text
}

func (s ServerConfig) transport(ctx context.Context) (mcpsdk.Transport, error) {
	switch {
	case s.URL != "" && s.Type == TransportSSE:
		return &mcpsdk.SSEClientTransport{Endpoint: s.URL}, nil
	case s.URL != "":
		return &mcpsdk.StreamableClientTransport{Endpoint: s.URL}, nil
	case s.Command != "":
		// #nosec G204 -- the command comes from the operator's server config
		cmd := exec.CommandContext(ctx, s.Command, s.Args...)
		if len(s.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range s.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	default:
		return nil, errors.New("server config needs a command or a url")
	}
}
