// Pre-built agent configurations for CLI commands.
//
// Information Hiding:
// - Agent preset details hidden
// - Tool group selection hidden

package cli

import (
	"fmt"
	"sort"

	"github.com/richinex/lingo/agent"
	"github.com/richinex/lingo/tools"
	"github.com/richinex/lingo/tools/builtin"
)

// AgentType represents available agent presets.
type AgentType string

const (
	AgentGeneral AgentType = "general"
	AgentFile    AgentType = "file"
	AgentShell   AgentType = "shell"
	AgentWeb     AgentType = "web"
)

type preset struct {
	description string
	prompt      string
	groups      []string
}

var presets = map[AgentType]preset{
	AgentGeneral: {
		description: "General assistant - answer questions and provide help",
		prompt:      "You are a helpful assistant. Answer questions clearly and concisely.",
	},
	AgentFile: {
		description: "File operations - find, search, read and write files",
		prompt:      "You are a file operations specialist. Read files before describing them and never guess their content.",
		groups:      []string{"file", "search"},
	},
	AgentShell: {
		description: "Shell commands - execute terminal commands",
		prompt:      "You are a shell command specialist. Execute commands safely and report results.",
		groups:      []string{"shell"},
	},
	AgentWeb: {
		description: "HTTP requests - fetch data from web APIs",
		prompt:      "You are an HTTP client specialist. Make web requests and process responses.",
		groups:      []string{"web"},
	},
}

// AgentInfo describes an agent preset.
type AgentInfo struct {
	Name        string
	Description string
}

// ListAvailableAgents returns the names and descriptions of available agents.
func ListAvailableAgents() []AgentInfo {
	infos := make([]AgentInfo, 0, len(presets))
	for name, p := range presets {
		infos = append(infos, AgentInfo{Name: string(name), Description: p.description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// AgentSpec selects a preset and overrides parts of it.
type AgentSpec struct {
	Name         string
	SystemPrompt string

	// Groups replaces the preset's builtin tool groups when non-nil.
	Groups []string

	// Extra tools, such as MCP tools, added after the builtins.
	Extra []tools.Tool

	MaxTurns        int
	Concurrency     int
	ToolTimeoutSecs uint64
}

// CreateAgentConfig builds the agent configuration for spec.
func CreateAgentConfig(spec AgentSpec, opts builtin.Options) (agent.Config, error) {
	name := spec.Name
	if name == "" {
		name = string(AgentGeneral)
	}
	p, ok := presets[AgentType(name)]
	if !ok {
		return agent.Config{}, fmt.Errorf("unknown agent %q", name)
	}

	groups := p.groups
	if spec.Groups != nil {
		groups = spec.Groups
	}
	selected, err := builtin.Select(groups, opts)
	if err != nil {
		return agent.Config{}, err
	}

	prompt := spec.SystemPrompt
	if prompt == "" {
		prompt = p.prompt
	}

	return agent.NewBuilder(name).
		Description(p.description).
		SystemPrompt(prompt).
		Tools(selected).
		Tools(spec.Extra).
		MaxTurns(spec.MaxTurns).
		Concurrency(spec.Concurrency).
		ToolTimeout(spec.ToolTimeoutSecs).
		Build(), nil
}
