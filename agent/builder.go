// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"fmt"

	"github.com/richinex/lingo/tools"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder("name") - no stutter.
type Builder struct {
	name         string
	description  string
	systemPrompt string
	tools        []tools.Tool
	maxTurns     int
	concurrency  int
	toolTimeout  uint64
}

// NewBuilder creates a new agent builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:  name,
		tools: []tools.Tool{},
	}
}

// Description sets the agent's description.
func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

// SystemPrompt sets the agent's system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// Tool adds a tool to the agent.
func (b *Builder) Tool(tool tools.Tool) *Builder {
	b.tools = append(b.tools, tool)
	return b
}

// Tools adds multiple tools at once.
func (b *Builder) Tools(toolList []tools.Tool) *Builder {
	b.tools = append(b.tools, toolList...)
	return b
}

// MaxTurns limits the number of model calls per run.
func (b *Builder) MaxTurns(n int) *Builder {
	b.maxTurns = n
	return b
}

// Concurrency sets how many tool calls of one turn run in parallel.
func (b *Builder) Concurrency(n int) *Builder {
	b.concurrency = n
	return b
}

// ToolTimeout bounds each tool call.
func (b *Builder) ToolTimeout(secs uint64) *Builder {
	b.toolTimeout = secs
	return b
}

// Build creates the agent configuration.
func (b *Builder) Build() Config {
	description := b.description
	if description == "" {
		description = fmt.Sprintf("Agent: %s", b.name)
	}

	systemPrompt := b.systemPrompt
	if systemPrompt == "" {
		systemPrompt = fmt.Sprintf(
			"You are an agent named %s. Use available tools to complete tasks.",
			b.name,
		)
	}

	maxTurns := b.maxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return Config{
		Name:            b.name,
		Description:     description,
		SystemPrompt:    systemPrompt,
		Tools:           b.tools,
		MaxTurns:        maxTurns,
		Concurrency:     b.concurrency,
		ToolTimeoutSecs: b.toolTimeout,
	}
}

// Name returns the builder's agent name.
func (b *Builder) Name() string {
	return b.name
}

// ToolCount returns the number of tools registered.
func (b *Builder) ToolCount() int {
	return len(b.tools)
}
