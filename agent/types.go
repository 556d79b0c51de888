// Package agent drives a conversation between a provider and a tool registry.
//
// Contains the result types returned by a run.
package agent

import (
	"errors"
	"time"

	"github.com/richinex/lingo/model"
)

// ErrMaxTurns is returned when the model still requests tools after the
// configured number of turns.
var ErrMaxTurns = errors.New("max turns reached")

// Result describes a finished or interrupted run.
type Result struct {
	// Conversation is the full history including the input messages.
	Conversation model.Conversation

	// Turns is the number of model calls made.
	Turns int

	// ToolCalls lists every call the model requested, in order.
	ToolCalls []model.ToolCall

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Answer returns the text of the final model message.
func (r Result) Answer() string {
	for i := len(r.Conversation) - 1; i >= 0; i-- {
		if r.Conversation[i].Role == model.RoleModel {
			return r.Conversation[i].Text()
		}
	}
	return ""
}

// Final returns the last message of the conversation.
func (r Result) Final() (model.Message, bool) {
	return r.Conversation.Last()
}
