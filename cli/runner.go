// Command execution for CLI commands.
//
// Information Hiding:
// - Provider, tool and agent setup hidden
// - Stream printing and recording hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/richinex/lingo/agent"
	"github.com/richinex/lingo/config"
	"github.com/richinex/lingo/llm"
	"github.com/richinex/lingo/mcp"
	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/storage"
	"github.com/richinex/lingo/tools"
	"github.com/richinex/lingo/tools/builtin"
)

// Options holds CLI execution options.
type Options struct {
	Provider     string
	Model        string
	Agent        string
	SystemPrompt string

	// Tools lists builtin tool groups. Nil keeps the agent preset's groups.
	Tools []string

	// MaxTurns overrides AGENT_MAX_TURNS when positive.
	MaxTurns int

	MCPConfig  string
	MCPServers []string

	Stream bool

	// Record stores every streamed reply in the recordings database.
	Record bool
	DBPath string

	Verbose bool

	Stdout io.Writer
	Stderr io.Writer
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// NewLogger returns the CLI logger: text on stderr, debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// session holds everything one command needs and releases it on close.
type session struct {
	opts     Options
	settings config.Settings
	logger   *slog.Logger
	agent    *agent.Agent
	provider *turnProvider
	toolset  *mcp.Toolset
	store    *storage.SqliteStorage
}

func newSession(ctx context.Context, opts Options) (*session, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		settings.LLM.Model = opts.Model
	}
	if opts.MaxTurns > 0 {
		settings.Agent.MaxTurns = opts.MaxTurns
	}
	if opts.DBPath != "" {
		settings.Storage.Path = opts.DBPath
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s := &session{opts: opts, settings: settings, logger: NewLogger(opts.stderr(), opts.Verbose)}
	if err := s.open(ctx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) open(ctx context.Context) error {
	tap := &eventTap{}
	cfg := s.settings.ProviderConfig()
	cfg.Logger = s.logger
	cfg.OnEvent = tap.Record

	inner, err := llm.NewProvider(s.settings.LLM.Provider, cfg)
	if err != nil {
		return err
	}
	s.provider = &turnProvider{Provider: inner, tap: tap, logger: s.logger}

	if s.opts.Record {
		store, err := storage.OpenSqlite(s.settings.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		s.store = store
		s.provider.store = store
	}

	var extra []tools.Tool
	mcpCfg, err := loadMCPConfig(s.opts.MCPServers, s.opts.MCPConfig)
	if err != nil {
		return err
	}
	if len(mcpCfg.MCPServers) > 0 {
		toolset, err := mcp.Discover(ctx, mcpCfg, s.logger)
		if err != nil {
			return err
		}
		s.toolset = toolset
		extra = toolset.Tools()
		s.logger.Debug("MCP tools discovered", "servers", len(mcpCfg.MCPServers), "tools", len(extra))
	}

	agentCfg, err := CreateAgentConfig(AgentSpec{
		Name:            s.opts.Agent,
		SystemPrompt:    s.opts.SystemPrompt,
		Groups:          s.opts.Tools,
		Extra:           extra,
		MaxTurns:        s.settings.Agent.MaxTurns,
		Concurrency:     s.settings.Agent.Concurrency,
		ToolTimeoutSecs: s.settings.Agent.ToolTimeoutSecs,
	}, builtin.Options{
		Search: builtin.SearchOptions{TimeoutSecs: s.settings.Agent.ToolTimeoutSecs},
		HTTP:   builtin.HTTPOptions{TimeoutSecs: s.settings.Agent.ToolTimeoutSecs},
	})
	if err != nil {
		return err
	}
	s.agent = agent.New(agentCfg, s.provider, agent.WithLogger(s.logger))
	return nil
}

func (s *session) close() {
	if s.toolset != nil {
		if err := s.toolset.Close(); err != nil {
			s.logger.Warn("failed to close MCP servers", "error", err)
		}
	}
	if s.store != nil {
		s.store.Close()
	}
}

// turn runs conv to completion, printing the answer to out.
func (s *session) turn(ctx context.Context, conv model.Conversation, out io.Writer) (agent.Result, error) {
	if !s.opts.Stream && !s.opts.Record {
		res, err := s.agent.Run(ctx, conv)
		if answer := res.Answer(); answer != "" {
			fmt.Fprintln(out, answer)
		}
		return res, err
	}

	p := &printer{out: out}
	s.provider.onTurn = p.reset
	res, err := s.agent.RunStream(ctx, conv, p.snapshot)
	p.finish()
	return res, err
}

// Run executes a single task and prints the final answer.
func Run(ctx context.Context, task string, opts Options) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.turn(ctx, s.agent.Start(task), opts.stdout())
	s.report(res)
	if err != nil {
		return fmt.Errorf("task failed: %w", err)
	}
	return nil
}

// Chat starts an interactive session reading prompts from in. The
// conversation is kept for the length of the session.
func Chat(ctx context.Context, in io.Reader, opts Options) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	out := opts.stdout()
	fmt.Fprintf(out, "Chat with %s (%s/%s). Type 'exit' to quit.\n\n",
		s.agent.Name(), s.provider.Name(), s.provider.Model())

	var conv model.Conversation
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		next := s.agent.Start(input)
		if len(conv) > 0 {
			next = conv.Append(model.User(input))
		}
		res, err := s.turn(ctx, next, out)
		s.report(res)
		if err != nil {
			fmt.Fprintf(opts.stderr(), "\nError: %v\n\n", err)
			continue
		}
		conv = res.Conversation
		fmt.Fprintln(out)
	}
	return scanner.Err()
}

func (s *session) report(res agent.Result) {
	s.logger.Debug("run finished",
		"turns", res.Turns,
		"tool_calls", len(res.ToolCalls),
		"elapsed", res.Elapsed,
	)
	if s.provider.store != nil {
		for _, id := range s.provider.recordings() {
			fmt.Fprintf(s.opts.stderr(), "recorded %s\n", id)
		}
	}
}

// ListTools prints the builtin tools and, when configured, MCP tools.
func ListTools(ctx context.Context, opts Options, verbose bool) error {
	selected, err := builtin.Select([]string{"all"}, builtin.Options{})
	if err != nil {
		return err
	}
	registry := tools.NewRegistry(selected...)

	mcpCfg, err := loadMCPConfig(opts.MCPServers, opts.MCPConfig)
	if err != nil {
		return err
	}
	if len(mcpCfg.MCPServers) > 0 {
		toolset, err := mcp.Discover(ctx, mcpCfg, NewLogger(opts.stderr(), opts.Verbose))
		if err != nil {
			return err
		}
		defer toolset.Close()
		toolset.Register(registry)
	}

	out := opts.stdout()
	fmt.Fprintln(out, "Available tools:")
	fmt.Fprintln(out)
	for _, def := range registry.Definitions() {
		fmt.Fprintf(out, "  %s\n", def.Name)
		fmt.Fprintf(out, "    %s\n", def.Description)
		if verbose && def.Input != nil {
			printParameters(out, def.Input.JSONSchema())
		}
		fmt.Fprintln(out)
	}
	return nil
}

func printParameters(out io.Writer, schema map[string]any) {
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return
	}
	required := map[string]bool{}
	if list, ok := schema["required"].([]any); ok {
		for _, name := range list {
			if s, ok := name.(string); ok {
				required[s] = true
			}
		}
	}

	fmt.Fprintln(out, "    Parameters:")
	for _, name := range sortedKeys(props) {
		prop, _ := props[name].(map[string]any)
		typ, _ := prop["type"].(string)
		desc, _ := prop["description"].(string)
		req := ""
		if required[name] {
			req = "*"
		}
		fmt.Fprintf(out, "      %s%s: %s - %s\n", name, req, typ, desc)
	}
}

// Replay folds a stored recording and prints every snapshot's text, or
// only the final message unless verbose.
func Replay(ctx context.Context, id string, opts Options) error {
	store, err := openStore(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Recording(ctx, id)
	if err != nil {
		return err
	}
	p, err := llm.ParseProviderType(rec.Provider)
	if err != nil {
		return fmt.Errorf("recording %s: %w", id, err)
	}
	raws, err := store.Events(ctx, id)
	if err != nil {
		return err
	}

	out := opts.stdout()
	logger := NewLogger(opts.stderr(), opts.Verbose)
	var final model.Message
	var n int
	for msg, err := range llm.Replay(p, raws, logger) {
		if err != nil {
			return fmt.Errorf("replay failed after %d snapshots: %w", n, err)
		}
		n++
		final = msg
		if opts.Verbose {
			fmt.Fprintf(out, "[%d] %q\n", n, msg.Text())
		}
	}

	fmt.Fprintf(out, "%s/%s, %d events, %d snapshots\n", rec.Provider, rec.Model, rec.Events, n)
	if text := final.Text(); text != "" {
		fmt.Fprintln(out, text)
	}
	for _, call := range final.ToolCalls() {
		fmt.Fprintf(out, "-> %s(%s)\n", call.Name, formatProps(call.Props))
	}
	return nil
}

// Recordings lists stored recordings, newest first.
func Recordings(ctx context.Context, opts Options) error {
	store, err := openStore(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(ctx)
	if err != nil {
		return err
	}
	out := opts.stdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No recordings.")
		return nil
	}
	for _, rec := range list {
		fmt.Fprintf(out, "%s  %s  %-9s %-24s %d events\n",
			rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Provider, rec.Model, rec.Events)
	}
	return nil
}

func openStore(opts Options) (*storage.SqliteStorage, error) {
	path := opts.DBPath
	if path == "" {
		path = os.Getenv("LINGO_DB")
	}
	if path == "" {
		path = config.DefaultRecordingsPath
	}
	store, err := storage.OpenSqlite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// loadMCPConfig merges the config file with servers given as command lines.
func loadMCPConfig(servers []string, path string) (*mcp.Config, error) {
	cfg := &mcp.Config{MCPServers: map[string]mcp.ServerConfig{}}
	if path != "" {
		loaded, err := mcp.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		for name, server := range loaded.MCPServers {
			cfg.MCPServers[name] = server
		}
	}
	for i, line := range servers {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, errors.New("empty --mcp command")
		}
		cfg.MCPServers[fmt.Sprintf("mcp-%d", i+1)] = mcp.ServerConfig{Command: fields[0], Args: fields[1:]}
	}
	return cfg, nil
}

// turnProvider wraps the configured provider. Each streamed turn starts a
// new recording when a store is set and notifies onTurn.
type turnProvider struct {
	llm.Provider
	tap    *eventTap
	store  *storage.SqliteStorage
	logger *slog.Logger
	onTurn func()

	mu  sync.Mutex
	ids []string
}

func (p *turnProvider) Stream(ctx context.Context, messages []model.Message, defs []tools.Definition) iter.Seq2[model.Message, error] {
	return func(yield func(model.Message, error) bool) {
		if p.onTurn != nil {
			p.onTurn()
		}
		if p.store != nil {
			id, err := p.store.CreateRecording(ctx, p.Name(), p.Model())
			if err != nil {
				yield(model.Message{}, err)
				return
			}
			p.mu.Lock()
			p.ids = append(p.ids, id)
			p.mu.Unlock()
			p.tap.set(storage.NewRecorder(ctx, p.store, id, p.logger))
			defer p.tap.set(nil)
		}
		for msg, err := range p.Provider.Stream(ctx, messages, defs) {
			if !yield(msg, err) {
				return
			}
		}
	}
}

// recordings returns and forgets the IDs recorded so far.
func (p *turnProvider) recordings() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.ids
	p.ids = nil
	return ids
}

// eventTap forwards raw provider events to the current recorder.
type eventTap struct {
	mu  sync.Mutex
	rec *storage.Recorder
}

func (t *eventTap) set(rec *storage.Recorder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec = rec
}

func (t *eventTap) Record(raw []byte) {
	t.mu.Lock()
	rec := t.rec
	t.mu.Unlock()
	if rec != nil {
		rec.Record(raw)
	}
}

// printer writes the growing text of streamed snapshots as deltas and the
// tool calls of each turn once the turn is complete.
type printer struct {
	out     io.Writer
	printed string
	last    model.Message
}

func (p *printer) snapshot(msg model.Message) {
	text := msg.Text()
	if strings.HasPrefix(text, p.printed) {
		fmt.Fprint(p.out, text[len(p.printed):])
	} else {
		fmt.Fprint(p.out, "\n"+text)
	}
	p.printed = text
	p.last = msg
}

// reset ends the previous turn, if any.
func (p *printer) reset() {
	if p.printed != "" {
		fmt.Fprintln(p.out)
	}
	for _, call := range p.last.ToolCalls() {
		fmt.Fprintf(p.out, "-> %s(%s)\n", call.Name, formatProps(call.Props))
	}
	p.printed = ""
	p.last = model.Message{}
}

func (p *printer) finish() {
	p.reset()
}
