package builtin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/richinex/lingo/tools"
)

// ShellOptions restricts the execute_shell tool.
type ShellOptions struct {
	// AllowedCommands lists permitted base commands (the first word).
	// Empty allows all.
	AllowedCommands []string
}

type shellInput struct {
	Command string `json:"command" jsonschema:"The shell command to execute"`
}

// Shell returns the execute_shell tool. Commands run via sh -c; the call is
// bounded by the invoker's timeout through ctx.
func Shell(opts ShellOptions) tools.Tool {
	return tools.MustFunc("execute_shell", "Execute a shell command and return its output",
		func(ctx context.Context, in shellInput) (string, error) {
			if strings.TrimSpace(in.Command) == "" {
				return "", errors.New("command cannot be empty")
			}
			if !commandAllowed(in.Command, opts.AllowedCommands) {
				return "", fmt.Errorf("command '%s' is not in the allowed list", in.Command)
			}

			cmd := exec.CommandContext(ctx, "sh", "-c", in.Command)
			output, err := cmd.CombinedOutput()
			if ctx.Err() != nil {
				return "", fmt.Errorf("command interrupted: %w", ctx.Err())
			}

			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return "", fmt.Errorf("command failed with exit code %d\noutput: %s", exitErr.ExitCode(), output)
			}
			if err != nil {
				return "", fmt.Errorf("failed to execute command: %w", err)
			}
			return string(output), nil
		})
}

// commandAllowed checks the first word of command against the allowlist.
func commandAllowed(command string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}

	for _, name := range allowed {
		if name == fields[0] {
			return true
		}
	}
	return false
}
