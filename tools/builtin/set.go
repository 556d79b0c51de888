package builtin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/richinex/lingo/tools"
)

// Options configures every builtin tool.
type Options struct {
	Files  FileOptions
	Search SearchOptions
	HTTP   HTTPOptions
	Shell  ShellOptions
}

// groups maps a group name to the tools it enables.
var groups = map[string]func(Options) []tools.Tool{
	"file": func(o Options) []tools.Tool {
		return []tools.Tool{ReadFile(o.Files), WriteFile(o.Files)}
	},
	"search": func(o Options) []tools.Tool {
		return []tools.Tool{Glob(o.Search), Grep(o.Search)}
	},
	"web": func(o Options) []tools.Tool {
		return []tools.Tool{HTTPRequest(o.HTTP)}
	},
	"shell": func(o Options) []tools.Tool {
		return []tools.Tool{Shell(o.Shell)}
	},
}

// Groups returns the known group names in sorted order.
func Groups() []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the tools of the named groups. "all" selects every group.
func Select(names []string, opts Options) ([]tools.Tool, error) {
	var out []tools.Tool
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name == "all" {
			sel, _ := Select(Groups(), opts)
			return sel, nil
		}
		build, ok := groups[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool group %q (available: %s)", name, strings.Join(Groups(), ", "))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, build(opts)...)
	}
	return out, nil
}
