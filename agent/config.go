// Agent configuration types.
//
// Information Hiding:
// - Configuration validation logic hidden
// - Default values hidden

package agent

import (
	"github.com/richinex/lingo/tools"
)

// DefaultMaxTurns bounds the generate/invoke loop when no limit is set.
const DefaultMaxTurns = 10

// Config holds agent configuration.
// Following Dave's naming advice: use agent.Config, not agent.AgentConfig.
type Config struct {
	// Name is a unique identifier for the agent.
	Name string

	// Description explains what this agent does.
	Description string

	// SystemPrompt guides the agent's behavior. Empty means no system turn.
	SystemPrompt string

	// Tools available to this agent.
	Tools []tools.Tool

	// MaxTurns is the maximum number of model calls per run.
	MaxTurns int

	// Concurrency is the number of tool calls run in parallel per turn.
	Concurrency int

	// ToolTimeoutSecs bounds a single tool call. Zero disables the timeout.
	ToolTimeoutSecs uint64
}

// DefaultConfig returns a basic agent configuration.
func DefaultConfig() Config {
	return Config{
		Name:         "agent",
		Description:  "A general-purpose agent",
		SystemPrompt: "You are a helpful assistant.",
		Tools:        []tools.Tool{},
		MaxTurns:     DefaultMaxTurns,
		Concurrency:  1,
	}
}

// HasTools returns true if the agent has tools configured.
func (c *Config) HasTools() bool {
	return len(c.Tools) > 0
}

func (c Config) maxTurns() int {
	if c.MaxTurns <= 0 {
		return DefaultMaxTurns
	}
	return c.MaxTurns
}
