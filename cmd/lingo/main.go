// Package main provides the lingo CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/lingo/cli"
	"github.com/richinex/lingo/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider string
	modelID  string
	maxTurns int
	dbPath   string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "lingo",
		Short: "Tool-using agents over Gemini, Anthropic and Ollama",
		Long: `A CLI tool for running tool-using LLM agents.

Every provider speaks the same message model, so an agent, its tools and
its recorded streams work the same against Gemini, Anthropic or a local
Ollama server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (gemini, anthropic, ollama)")
	rootCmd.PersistentFlags().StringVar(&modelID, "model", "", "Model ID (defaults to the provider's default model)")
	rootCmd.PersistentFlags().IntVarP(&maxTurns, "max-turns", "m", 0, "Maximum model turns per task (default AGENT_MAX_TURNS or 10)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Recordings database path (default "+config.DefaultRecordingsPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(recordingsCmd())
	rootCmd.AddCommand(replayCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// agentFlags are shared by run and chat.
type agentFlags struct {
	agent      string
	system     string
	tools      []string
	mcpServers []string
	mcpConfig  string
	stream     bool
	record     bool
}

func (f *agentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.agent, "agent", "a", "general", "Agent preset (see 'lingo agents')")
	cmd.Flags().StringVar(&f.system, "system", "", "System prompt replacing the preset's")
	cmd.Flags().StringSliceVar(&f.tools, "tools", nil, "Builtin tool groups: file, web, shell, all (default: the preset's)")
	cmd.Flags().StringArrayVar(&f.mcpServers, "mcp", nil, "MCP server command (repeatable)")
	cmd.Flags().StringVar(&f.mcpConfig, "mcp-config", "", "Path to MCP config file")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "Print replies as they stream")
	cmd.Flags().BoolVar(&f.record, "record", false, "Record every streamed reply in the database")
}

func (f *agentFlags) options(cmd *cobra.Command) cli.Options {
	opts := cli.Options{
		Provider:     provider,
		Model:        modelID,
		Agent:        f.agent,
		SystemPrompt: f.system,
		MaxTurns:     maxTurns,
		MCPConfig:    f.mcpConfig,
		MCPServers:   f.mcpServers,
		Stream:       f.stream,
		Record:       f.record,
		DBPath:       dbPath,
		Verbose:      verbose,
	}
	if cmd.Flags().Changed("tools") {
		opts.Tools = f.tools
		if opts.Tools == nil {
			opts.Tools = []string{}
		}
	}
	return opts
}

func runCmd() *cobra.Command {
	var flags agentFlags

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Execute a single task with an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Run(cmd.Context(), args[0], flags.options(cmd))
		},
	}
	flags.register(cmd)

	return cmd
}

func chatCmd() *cobra.Command {
	var flags agentFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(cmd.Context(), os.Stdin, flags.options(cmd))
		},
	}
	flags.register(cmd)

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool
	var mcpServers []string
	var mcpConfig string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{MCPServers: mcpServers, MCPConfig: mcpConfig, Verbose: verbose}
			return cli.ListTools(cmd.Context(), opts, verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")
	cmd.Flags().StringArrayVar(&mcpServers, "mcp", nil, "MCP server command (repeatable)")
	cmd.Flags().StringVar(&mcpConfig, "mcp-config", "", "Path to MCP config file")

	return cmd
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List agent presets",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available agents:")
			fmt.Fprintln(out)
			for _, info := range cli.ListAvailableAgents() {
				fmt.Fprintf(out, "  %-8s %s\n", info.Name, info.Description)
			}
		},
	}
}

func recordingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recordings",
		Short: "List recorded streams, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Recordings(cmd.Context(), cli.Options{DBPath: dbPath})
		},
	}
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [id]",
		Short: "Fold a recorded stream again and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Replay(cmd.Context(), args[0], cli.Options{DBPath: dbPath, Verbose: verbose})
		},
	}
}
