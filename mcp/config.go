// MCP server configuration file support.
//
// Supports Anthropic-style MCP configuration format:
//
//	{
//	  "mcpServers": {
//	    "filesystem": {
//	      "command": "npx",
//	      "args": ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]
//	    },
//	    "search": {
//	      "url": "http://localhost:8080/mcp"
//	    },
//	    "legacy": {
//	      "type": "sse",
//	      "url": "http://localhost:8081/sse"
//	    }
//	  }
//	}
package mcp

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config represents the MCP configuration file format.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// Transport types. URL servers default to streamable HTTP.
const (
	TransportHTTP  = "http"
	TransportSSE   = "sse"
	TransportStdio = "stdio"
)

// ServerConfig represents a single MCP server configuration. Either Command
// or URL must be set.
type ServerConfig struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Type    string            `json:"type,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// LoadConfig loads MCP configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for name, server := range config.MCPServers {
		if server.Command == "" && server.URL == "" {
			return nil, fmt.Errorf("server %q: needs a command or a url", name)
		}
		if server.Type != "" && server.Type != TransportHTTP && server.Type != TransportSSE && server.Type != TransportStdio {
			return nil, fmt.Errorf("server %q: unknown transport %q", name, server.Type)
		}
	}

	return &config, nil
}
