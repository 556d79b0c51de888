// MCP Tool Wrapper - Makes MCP tools usable in the tool registry.
//
// Information Hiding:
// - Session sharing hidden
// - Schema conversion hidden

package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/richinex/lingo/tools"
)

// Tool is a tool served by an MCP session. Input is validated locally
// against the server's schema before the call is sent.
type Tool struct {
	client *Client
	def    tools.Definition
}

var _ tools.Tool = (*Tool)(nil)

// Definition returns the declaration reported by the server.
func (t *Tool) Definition() tools.Definition {
	return t.def
}

// Call forwards input to the server.
func (t *Tool) Call(ctx context.Context, input any) (any, error) {
	return t.client.Call(ctx, t.def.Name, input)
}

// Toolset holds the sessions opened for a Config and the tools they serve.
// The caller must call Close when done.
type Toolset struct {
	clients []*Client
	tools   []tools.Tool
}

// Tools returns the discovered tools, ordered by server name.
func (s *Toolset) Tools() []tools.Tool {
	return s.tools
}

// Register adds every discovered tool to registry.
func (s *Toolset) Register(registry *tools.Registry) {
	for _, t := range s.tools {
		registry.Add(t)
	}
}

// Close closes every session.
func (s *Toolset) Close() error {
	var errs []error
	for _, c := range s.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Discover connects to every server in cfg and lists its tools. On failure
// the sessions opened so far are closed.
func Discover(ctx context.Context, cfg *Config, logger *slog.Logger) (*Toolset, error) {
	set := &Toolset{}
	for _, name := range cfg.Names() {
		client, err := Connect(ctx, name, cfg.MCPServers[name], WithLogger(logger))
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.clients = append(set.clients, client)

		discovered, err := client.Tools(ctx)
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.tools = append(set.tools, discovered...)
	}
	return set, nil
}

// Names returns the configured server names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
