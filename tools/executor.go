// Tool Executor with timeout and failure capture.
//
// Information Hiding:
// - Timeout handling hidden
// - Panic recovery hidden
// - Error classification into tool results hidden

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/richinex/lingo/model"
)

// ExecutorConfig holds tool execution configuration.
// The zero value is safe: calls run without a timeout.
type ExecutorConfig struct {
	TimeoutSecs uint64
}

// Timeout returns the configured per-call timeout, or zero for none.
func (c ExecutorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Executor runs a single validated tool call and turns every failure into an
// error result.
type Executor struct {
	config ExecutorConfig
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ExecutorConfig) *Executor {
	return &Executor{config: config}
}

// Execute validates the call's props against the tool's schema and runs the
// tool. It never returns an error: lookup is the caller's concern, and
// validation, execution, panic and timeout failures become result errors.
func (e *Executor) Execute(ctx context.Context, tool Tool, call model.ToolCall) model.Result {
	def := tool.Definition()

	input := any(call.Props)
	if def.Input != nil {
		v := def.Input.Validate(call.Props)
		if !v.OK() {
			return model.Result{Error: validationError(def.Name, v.Errors)}
		}
		input = v.Value
	}

	if timeout := e.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return model.Result{Error: fmt.Sprintf("tool %q not run: %v", def.Name, err)}
	}

	done := make(chan outcome, 1)
	go func() {
		done <- run(ctx, tool, input)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return model.Result{Error: out.err.Error()}
		}
		return model.Result{Output: out.output}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.Result{Error: fmt.Sprintf("tool %q timed out", def.Name)}
		}
		return model.Result{Error: fmt.Sprintf("tool %q canceled: %v", def.Name, ctx.Err())}
	}
}

type outcome struct {
	output any
	err    error
}

// run calls the tool, converting a panic into an error.
func run(ctx context.Context, tool Tool, input any) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: panicError(r)}
		}
	}()
	output, err := tool.Call(ctx, input)
	return outcome{output: output, err: err}
}

func validationError(name string, errs []string) string {
	data, _ := json.Marshal(errs)
	return fmt.Sprintf("invalid input for tool %q: %s", name, data)
}

// panicError converts a recovered value to an error. Values that are not
// errors are JSON encoded.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	if s, ok := r.(string); ok {
		return errors.New(s)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%v", r)
	}
	return errors.New(string(data))
}
