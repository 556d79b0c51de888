// Package builtin provides ready-made tools for the command line: file
// access, file search, HTTP requests and shell commands.
//
// Information Hiding:
// - File I/O and path checks hidden
// - Search walking and ripgrep invocation hidden
// - HTTP client details hidden
// - Shell execution details hidden
package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/richinex/lingo/tools"
)

// DefaultMaxFileSize bounds file reads and writes.
const DefaultMaxFileSize = 1024 * 1024

// FileOptions restricts the file tools.
type FileOptions struct {
	// AllowedPaths lists path prefixes the tools may touch. Empty allows all.
	AllowedPaths []string

	// MaxSizeBytes bounds reads and writes. Zero uses DefaultMaxFileSize.
	MaxSizeBytes int64
}

func (o FileOptions) maxSize() int64 {
	if o.MaxSizeBytes <= 0 {
		return DefaultMaxFileSize
	}
	return o.MaxSizeBytes
}

type readFileInput struct {
	Path string `json:"path" jsonschema:"Path to the file to read"`
}

type writeFileInput struct {
	Path    string `json:"path" jsonschema:"Path to the file to write"`
	Content string `json:"content" jsonschema:"Content to write"`
	Append  bool   `json:"append,omitempty" jsonschema:"Append instead of overwriting"`
}

// ReadFile returns the read_file tool.
func ReadFile(opts FileOptions) tools.Tool {
	return tools.MustFunc("read_file", "Read the contents of a file from the filesystem",
		func(ctx context.Context, in readFileInput) (string, error) {
			if in.Path == "" {
				return "", errors.New("path cannot be empty")
			}
			if !pathAllowed(in.Path, opts.AllowedPaths) {
				return "", fmt.Errorf("access to path '%s' is not allowed", in.Path)
			}

			info, err := os.Stat(in.Path)
			if os.IsNotExist(err) {
				return "", fmt.Errorf("file does not exist: %s", in.Path)
			}
			if err != nil {
				return "", fmt.Errorf("failed to read file metadata: %w", err)
			}
			if info.IsDir() {
				return "", fmt.Errorf("%s is a directory", in.Path)
			}
			if info.Size() > opts.maxSize() {
				return "", fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), opts.maxSize())
			}

			content, err := os.ReadFile(in.Path)
			if err != nil {
				return "", fmt.Errorf("failed to read file: %w", err)
			}
			return string(content), nil
		})
}

// WriteFile returns the write_file tool.
func WriteFile(opts FileOptions) tools.Tool {
	return tools.MustFunc("write_file", "Write or append content to a file on the filesystem",
		func(ctx context.Context, in writeFileInput) (string, error) {
			if in.Path == "" {
				return "", errors.New("path cannot be empty")
			}
			if int64(len(in.Content)) > opts.maxSize() {
				return "", fmt.Errorf("content too large: %d bytes (max: %d bytes)", len(in.Content), opts.maxSize())
			}
			if !pathAllowed(filepath.Dir(in.Path), opts.AllowedPaths) {
				return "", fmt.Errorf("access to path '%s' is not allowed", in.Path)
			}

			if err := os.MkdirAll(filepath.Dir(in.Path), 0755); err != nil {
				return "", fmt.Errorf("failed to create directory: %w", err)
			}

			flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			verb := "wrote"
			if in.Append {
				flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
				verb = "appended"
			}
			f, err := os.OpenFile(in.Path, flags, 0644)
			if err != nil {
				return "", fmt.Errorf("failed to open file: %w", err)
			}
			if _, err := f.WriteString(in.Content); err != nil {
				f.Close()
				return "", fmt.Errorf("failed to write file: %w", err)
			}
			if err := f.Close(); err != nil {
				return "", fmt.Errorf("failed to write file: %w", err)
			}
			return fmt.Sprintf("Successfully %s %d bytes to %s", verb, len(in.Content), in.Path), nil
		})
}

// pathAllowed checks if a path is within the allowed paths.
// If allowedPaths is empty, all paths are allowed.
func pathAllowed(path string, allowedPaths []string) bool {
	if len(allowedPaths) == 0 {
		return true
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, allowed := range allowedPaths {
		allowedAbs, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		if absPath == allowedAbs || strings.HasPrefix(absPath, allowedAbs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
