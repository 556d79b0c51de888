// Tool-calling loop implementation.
//
// All agent execution goes through this module: ask the provider for the
// next model message, answer its tool calls, and resubmit until the model
// stops calling tools.
//
// Information Hiding:
// - Loop internals hidden
// - LLM communication hidden
// - Tool execution coordination hidden

package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/richinex/lingo/llm"
	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/tools"
)

// Agent executes tasks by letting the model call tools.
type Agent struct {
	config   Config
	client   *llm.Client
	registry *tools.Registry
	invoker  *tools.Invoker
	logger   *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger for turn diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRegistry replaces the registry built from Config.Tools. Tools from the
// config are added to it.
func WithRegistry(registry *tools.Registry) Option {
	return func(a *Agent) {
		if registry != nil {
			a.registry = registry
		}
	}
}

// New creates a new agent with the given configuration and provider.
func New(config Config, provider llm.Provider, opts ...Option) *Agent {
	a := &Agent{
		config:   config,
		client:   llm.NewClient(provider),
		registry: tools.NewRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, tool := range config.Tools {
		a.registry.Add(tool)
	}

	a.invoker = tools.NewInvoker(a.registry,
		tools.WithExecutor(tools.NewExecutor(tools.ExecutorConfig{TimeoutSecs: config.ToolTimeoutSecs})),
		tools.WithConcurrency(config.Concurrency),
		tools.WithLogger(a.logger),
	)
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Description returns the agent's description.
func (a *Agent) Description() string {
	return a.config.Description
}

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tools.Registry {
	return a.registry
}

// Start returns a new conversation for task, opened by the system prompt
// when one is configured.
func (a *Agent) Start(task string) model.Conversation {
	var conv model.Conversation
	if a.config.SystemPrompt != "" {
		conv = append(conv, model.System(a.config.SystemPrompt))
	}
	return append(conv, model.User(task))
}

// Execute runs task from a fresh conversation.
func (a *Agent) Execute(ctx context.Context, task string) (Result, error) {
	return a.Run(ctx, a.Start(task))
}

// Run continues conv with batch requests.
func (a *Agent) Run(ctx context.Context, conv model.Conversation) (Result, error) {
	return a.loop(ctx, conv, func(ctx context.Context, conv model.Conversation) (model.Message, error) {
		return a.client.Reply(ctx, conv, a.registry.Definitions())
	})
}

// RunStream continues conv with streaming requests. onSnapshot receives every
// cumulative snapshot of every turn.
func (a *Agent) RunStream(ctx context.Context, conv model.Conversation, onSnapshot func(model.Message)) (Result, error) {
	return a.loop(ctx, conv, func(ctx context.Context, conv model.Conversation) (model.Message, error) {
		return a.client.StreamReply(ctx, conv, a.registry.Definitions(), onSnapshot)
	})
}

type nextFunc func(ctx context.Context, conv model.Conversation) (model.Message, error)

// loop alternates model turns and tool invocations. Tool failures are fed
// back to the model; provider errors end the run.
func (a *Agent) loop(ctx context.Context, conv model.Conversation, next nextFunc) (Result, error) {
	startTime := time.Now()
	res := Result{Conversation: conv}
	maxTurns := a.config.maxTurns()

	for turn := 1; turn <= maxTurns; turn++ {
		// Check context cancellation at top of loop
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(startTime)
			return res, fmt.Errorf("execution cancelled: %w", err)
		}

		reply, err := next(ctx, res.Conversation)
		if err != nil {
			res.Elapsed = time.Since(startTime)
			return res, fmt.Errorf("turn %d: %w", turn, err)
		}
		res.Turns = turn
		res.Conversation = res.Conversation.Append(reply)

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			a.logger.Debug("run complete", "agent", a.config.Name, "turns", turn)
			res.Elapsed = time.Since(startTime)
			return res, nil
		}

		a.logger.Debug("invoking tools", "agent", a.config.Name, "turn", turn, "calls", len(calls))
		res.ToolCalls = append(res.ToolCalls, calls...)
		res.Conversation = res.Conversation.Append(a.invoker.Invoke(ctx, reply))
	}

	res.Elapsed = time.Since(startTime)
	return res, fmt.Errorf("%w: %d", ErrMaxTurns, maxTurns)
}
