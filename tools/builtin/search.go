package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/richinex/lingo/tools"
)

const (
	// DefaultGlobMaxResults is the default number of paths a glob returns.
	DefaultGlobMaxResults = 100
	// AbsoluteGlobMaxResults caps max_results.
	AbsoluteGlobMaxResults = 1000

	// DefaultGrepMaxCount bounds matching lines per file.
	DefaultGrepMaxCount = 200
)

// SearchOptions configures the search tools.
type SearchOptions struct {
	// AllowedPaths lists directories the tools may search. Empty allows all.
	AllowedPaths []string

	// TimeoutSecs bounds one grep run. Zero uses 30 seconds.
	TimeoutSecs uint64
}

type globInput struct {
	Pattern    string `json:"pattern" jsonschema:"Glob pattern such as **/*.go or src/*.yaml"`
	Path       string `json:"path,omitempty" jsonschema:"Base directory to search from (default: current directory)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum files to return (default: 100)"`
}

type grepInput struct {
	Pattern       string   `json:"pattern" jsonschema:"Regular expression to search for"`
	Path          string   `json:"path,omitempty" jsonschema:"File or directory to search (default: current directory)"`
	Glob          []string `json:"glob,omitempty" jsonschema:"Glob patterns that filter searched files"`
	IgnoreCase    bool     `json:"ignore_case,omitempty" jsonschema:"Case insensitive search"`
	FixedStrings  bool     `json:"fixed_strings,omitempty" jsonschema:"Treat pattern as a literal string"`
	Context       int      `json:"context,omitempty" jsonschema:"Lines of context around matches"`
	MaxCount      int      `json:"max_count,omitempty" jsonschema:"Maximum matching lines per file (default: 200)"`
}

// Glob returns the glob tool. It lists file paths only; hidden directories
// are skipped.
func Glob(opts SearchOptions) tools.Tool {
	return tools.MustFunc("glob", "Find files matching a glob pattern. Returns file paths only (no content). Use read_file to load content.",
		func(ctx context.Context, in globInput) (string, error) {
			pattern := strings.TrimPrefix(strings.TrimSpace(in.Pattern), "./")
			if pattern == "" {
				return "", errors.New("pattern is required")
			}
			base := in.Path
			if base == "" {
				base = "."
			}
			if !pathAllowed(base, opts.AllowedPaths) {
				return "", fmt.Errorf("access to path '%s' is not allowed", base)
			}

			limit := DefaultGlobMaxResults
			if in.MaxResults > 0 {
				limit = min(in.MaxResults, AbsoluteGlobMaxResults)
			}

			matches, err := globFiles(ctx, base, pattern, limit)
			if err != nil {
				return "", err
			}
			if len(matches) == 0 {
				return fmt.Sprintf("No files found matching pattern '%s' in %s", pattern, base), nil
			}

			var out strings.Builder
			fmt.Fprintf(&out, "Found %d files matching '%s':\n", len(matches), pattern)
			for _, m := range matches {
				fmt.Fprintln(&out, m)
			}
			if len(matches) >= limit {
				fmt.Fprintf(&out, "\n(limited to %d results)", limit)
			}
			return out.String(), nil
		})
}

func globFiles(ctx context.Context, base, pattern string, limit int) ([]string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base path: %w", err)
	}
	info, err := os.Stat(absBase)
	if err != nil {
		return nil, fmt.Errorf("path not found: %s", base)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", base)
	}

	var matches []string
	err = filepath.WalkDir(absBase, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if path != absBase && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(absBase, path)
		if err != nil {
			return nil
		}
		if matchGlob(filepath.ToSlash(rel), filepath.ToSlash(pattern)) {
			matches = append(matches, rel)
			if len(matches) >= limit {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// matchGlob matches a slash-separated path against pattern, where a "**"
// segment matches any number of directories.
func matchGlob(path, pattern string) bool {
	return matchSegments(strings.Split(path, "/"), strings.Split(pattern, "/"))
}

func matchSegments(path, pattern []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(path); i++ {
				if matchSegments(path[i:], rest) {
					return true
				}
			}
			return false
		}
		if len(path) == 0 {
			return false
		}
		ok, err := filepath.Match(pattern[0], path[0])
		if err != nil || !ok {
			return false
		}
		path, pattern = path[1:], pattern[1:]
	}
	return len(path) == 0
}

// Grep returns the grep tool, backed by ripgrep (rg).
func Grep(opts SearchOptions) tools.Tool {
	return tools.MustFunc("grep", "Search file contents with ripgrep. Returns matching lines prefixed by file and line number.",
		func(ctx context.Context, in grepInput) (string, error) {
			if strings.TrimSpace(in.Pattern) == "" {
				return "", errors.New("pattern cannot be empty")
			}
			path := in.Path
			if path == "" {
				path = "."
			}
			if !pathAllowed(path, opts.AllowedPaths) {
				return "", fmt.Errorf("access to path '%s' is not allowed", path)
			}

			args := []string{"--no-messages", "--color=never", "--line-number", "--with-filename"}
			maxCount := DefaultGrepMaxCount
			if in.MaxCount > 0 {
				maxCount = in.MaxCount
			}
			args = append(args, "--max-count", strconv.Itoa(maxCount))
			if in.Context > 0 {
				args = append(args, "-C", strconv.Itoa(in.Context))
			}
			if in.IgnoreCase {
				args = append(args, "-i")
			}
			if in.FixedStrings {
				args = append(args, "-F")
			}
			for _, g := range in.Glob {
				if strings.TrimSpace(g) != "" {
					args = append(args, "-g", g)
				}
			}
			args = append(args, "--", in.Pattern, path)

			timeout := opts.TimeoutSecs
			if timeout == 0 {
				timeout = 30
			}
			ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
			defer cancel()

			output, err := exec.CommandContext(ctx, "rg", args...).CombinedOutput()
			if ctx.Err() == context.DeadlineExceeded {
				return "", fmt.Errorf("rg timed out after %d seconds", timeout)
			}
			var exitErr *exec.ExitError
			switch {
			case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
				return "No matches found", nil
			case errors.As(err, &exitErr):
				return "", fmt.Errorf("rg failed with exit code %d: %s", exitErr.ExitCode(), strings.TrimSpace(string(output)))
			case err != nil:
				return "", fmt.Errorf("failed to execute rg: %w", err)
			}
			return string(output), nil
		})
}
