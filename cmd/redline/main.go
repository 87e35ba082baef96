// Package main provides the redline CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/redline/cli"
)

var (
	// Global flags
	provider    string
	root        string
	maxIter     int
	autoApprove bool
	verbose     bool
	dbPath      string
	noDB        bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "redline",
		Short: "Reviewed file edits driven by an LLM",
		Long: `redline runs an LLM that issues tag-formatted commands against a working
directory. Every file edit is staged as a diff and applied only after review.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVarP(&root, "root", "C", "", "Working directory (default: current directory)")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 0, "Maximum model calls per task")
	rootCmd.PersistentFlags().BoolVarP(&autoApprove, "yes", "y", false, "Approve every edit and command without asking")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show full command results and debug logs")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "History and journal database (default: ~/.redline/redline.db)")
	rootCmd.PersistentFlags().BoolVar(&noDB, "no-db", false, "Keep history and the edit journal in memory only")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(commandsCmd())
	rootCmd.AddCommand(historyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func options() cli.Options {
	opts := cli.DefaultOptions()
	opts.Provider = provider
	opts.Root = root
	opts.MaxIter = maxIter
	opts.AutoApprove = autoApprove
	opts.Verbose = verbose
	opts.DBPath = dbPath
	opts.NoDB = noDB
	return opts
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [task]",
		Short: "Work on one task with interactive review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunTask(cmd.Context(), args[0], options())
		},
	}
}

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a multi-turn session with persisted history",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.SessionID = sessionID
			return cli.Chat(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "default", "Session ID for conversation persistence")

	return cmd
}

func replayCmd() *cobra.Command {
	var chunk int
	var sessionID string

	cmd := &cobra.Command{
		Use:   "replay [transcript]",
		Short: "Dispatch the commands of a saved model reply, without an LLM",
		Long: `Replay streams a saved model reply through the parser in chunks and
dispatches every complete command in order. Edits are reviewed as in a live
session. Use "-" to read the transcript from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.SessionID = sessionID
			return cli.Replay(cmd.Context(), args[0], chunk, opts)
		},
	}

	cmd.Flags().IntVar(&chunk, "chunk", 16, "Bytes per streamed chunk")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for journal records")

	return cmd
}

func parseCmd() *cobra.Command {
	var prefix int

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Print the segments decoded from a model reply as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Parse(args[0], prefix, options())
		},
	}

	cmd.Flags().IntVar(&prefix, "prefix", 0, "Parse only the first N bytes")

	return cmd
}

func commandsCmd() *cobra.Command {
	var prompt bool

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the command grammar",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListCommands(prompt, options())
		},
	}

	cmd.Flags().BoolVar(&prompt, "prompt", false, "Print the full system prompt")

	return cmd
}

func historyCmd() *cobra.Command {
	var sessionID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List sessions, or the edit journal of one session",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options()
			opts.SessionID = sessionID
			return cli.History(cmd.Context(), limit, opts)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Show the journal of this session")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum journal entries")

	return cmd
}
