package tools

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/richinex/lingo/model"
)

// Invoker answers the tool calls of a model message.
type Invoker struct {
	registry    *Registry
	executor    *Executor
	concurrency int
	logger      *slog.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithExecutor sets the executor used for each call.
func WithExecutor(e *Executor) InvokerOption {
	return func(inv *Invoker) { inv.executor = e }
}

// WithConcurrency runs up to n calls of one message at once. Results keep
// the declaration order of the calls. Values below 2 run calls sequentially.
func WithConcurrency(n int) InvokerOption {
	return func(inv *Invoker) { inv.concurrency = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) InvokerOption {
	return func(inv *Invoker) { inv.logger = logger }
}

// NewInvoker creates an invoker over registry.
func NewInvoker(registry *Registry, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		registry:    registry,
		executor:    NewExecutor(ExecutorConfig{}),
		concurrency: 1,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke runs every tool call of msg and returns a single tool message with
// one result per call, in the order the calls were declared. Failures of
// individual calls are encoded as error results; Invoke itself never fails.
func (inv *Invoker) Invoke(ctx context.Context, msg model.Message) model.Message {
	calls := msg.ToolCalls()
	results := make([]model.ToolResultContent, len(calls))

	if inv.concurrency < 2 || len(calls) < 2 {
		for i, call := range calls {
			results[i] = inv.invokeOne(ctx, call)
		}
		return model.NewTool(results...)
	}

	sem := make(chan struct{}, inv.concurrency)
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, call model.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = inv.invokeOne(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return model.NewTool(results...)
}

// Extend appends the answer to the last message of conv when it is a model
// message with tool calls. It reports whether a tool message was appended.
func (inv *Invoker) Extend(ctx context.Context, conv model.Conversation) (model.Conversation, bool) {
	last, ok := conv.Last()
	if !ok || last.Role != model.RoleModel || !last.HasToolCalls() {
		return conv, false
	}
	return conv.Append(inv.Invoke(ctx, last)), true
}

func (inv *Invoker) invokeOne(ctx context.Context, call model.ToolCall) model.ToolResultContent {
	tool, err := inv.registry.Get(call.Name)
	if err != nil {
		inv.logger.Warn("tool lookup failed", "tool", call.Name, "id", call.ID)
		return model.Failure(call.ID, call.Name, err.Error())
	}

	result := inv.executor.Execute(ctx, tool, call)
	if result.Failed() {
		inv.logger.Info("tool call failed", "tool", call.Name, "id", call.ID, "error", result.Error)
	} else {
		inv.logger.Debug("tool call succeeded", "tool", call.Name, "id", call.ID)
	}
	return model.ToolResultContent{ToolResult: model.ToolResult{ID: call.ID, Name: call.Name, Result: result}}
}
