// Command execution for CLI commands.
//
// Information Hiding:
// - Settings, logging, storage, and edit manager setup hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/richinex/redline/agent"
	"github.com/richinex/redline/config"
	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/internal/logging"
	"github.com/richinex/redline/llm"
	"github.com/richinex/redline/storage"
	"github.com/richinex/redline/surface"
	"github.com/richinex/redline/tools"
)

// Options holds CLI execution options. Zero values keep the settings
// loaded from the environment.
type Options struct {
	Provider    string
	Root        string
	MaxIter     int
	AutoApprove bool
	Verbose     bool
	DBPath      string
	NoDB        bool
	SessionID   string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultOptions returns options bound to the process streams.
func DefaultOptions() Options {
	return Options{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (o *Options) streams() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// workspace is everything a command needs to edit files under review.
type workspace struct {
	settings  config.Settings
	logger    *slog.Logger
	store     storage.Store
	files     *edit.Manager
	console   *Console
	sessionID string
	closers   []io.Closer
}

func (w *workspace) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil {
			w.logger.Warn("close failed", "error", err)
		}
	}
}

func loadSettings(opts Options) (config.Settings, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.Root != "" {
		settings.Workspace.Root = opts.Root
	}
	if opts.MaxIter > 0 {
		settings.Agent.MaxIterations = opts.MaxIter
	}
	if opts.AutoApprove {
		settings.Agent.AutoApprove = true
	}
	if opts.DBPath != "" {
		settings.Storage.Path = opts.DBPath
	}
	if opts.Verbose {
		settings.Log.Level = "debug"
	}
	return settings, settings.Validate()
}

// openWorkspace wires settings, logging, the journal, and the edit manager.
func openWorkspace(opts Options, persist bool) (*workspace, error) {
	opts.streams()
	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(settings.Log)
	if err != nil {
		return nil, err
	}
	w := &workspace{
		settings:  settings,
		logger:    logger,
		sessionID: opts.SessionID,
		closers:   []io.Closer{logCloser},
	}
	if w.sessionID == "" {
		w.sessionID = uuid.New().String()
	}

	var managerOpts []edit.Option
	if persist {
		if err := w.openStore(opts.NoDB); err != nil {
			w.Close()
			return nil, err
		}
		managerOpts = append(managerOpts, edit.WithJournal(w.store))
	}
	managerOpts = append(managerOpts,
		edit.WithLogger(logger.With("component", "edit")),
		edit.WithSessionID(w.sessionID))

	w.console = NewConsole(opts.Stdin, opts.Stdout, opts.Stderr, settings.Agent.AutoApprove)
	files := storage.NewFileStore()
	surfaces := surface.TerminalFactory(surface.TerminalOptions{
		Out:         opts.Stdout,
		Root:        settings.Workspace.Root,
		SettleDelay: settings.Workspace.SettleDelay,
		Editor:      settings.Workspace.Editor,
		LintCommand: settings.Workspace.LintCommand,
		Color:       isTerminal(opts.Stdout),
	}, w.console.Track)

	w.files, err = edit.NewManager(settings.Workspace.Root, files, surfaces, managerOpts...)
	if err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// openStore opens the history database, or an in-memory store when there
// is no database path or noDB is set.
func (w *workspace) openStore(noDB bool) error {
	path := w.settings.Storage.Path
	if noDB || path == "" {
		w.logger.Debug("session history kept in memory")
		w.store = storage.NewMemoryStore()
		return nil
	}
	store, err := storage.OpenSqlite(path, w.settings.Storage.Driver)
	if err != nil {
		return err
	}
	w.store = store
	w.closers = append(w.closers, store)
	return nil
}

func (w *workspace) toolDeps() tools.Deps {
	return tools.Deps{
		CommandTimeout:  uint64(w.settings.Agent.CommandTimeout / time.Second),
		MaxFileSize:     w.settings.Workspace.MaxFileSize,
		AllowedCommands: w.settings.Agent.AllowedCommands,
	}
}

func (w *workspace) session(provider llm.Provider, out io.Writer, verbose bool) (*agent.Session, error) {
	b := agent.NewBuilder(provider, w.files).
		ToolDeps(w.toolDeps()).
		Reviewer(w.console).
		Renderer(NewPrinter(out, verbose)).
		Logger(w.logger).
		SessionID(w.sessionID).
		MaxIterations(w.settings.Agent.MaxIterations).
		HistoryTokens(w.settings.Agent.HistoryTokens)
	if w.store != nil {
		b = b.Store(w.store)
	}
	return b.Build()
}

// RunTask executes a single task with interactive review.
func RunTask(ctx context.Context, task string, opts Options) error {
	opts.streams()
	w, err := openWorkspace(opts, true)
	if err != nil {
		return err
	}
	defer w.Close()

	provider, err := w.settings.NewProvider()
	if err != nil {
		return err
	}
	s, err := w.session(provider, opts.Stdout, opts.Verbose)
	if err != nil {
		return err
	}

	fmt.Fprintf(opts.Stdout, "Working in %s with %s (%s)\n\n", w.files.Root(), provider.Name(), provider.Model())
	resp := s.Run(ctx, task)
	fmt.Fprint(opts.Stdout, summary(resp))

	switch resp.Type {
	case agent.ResponseSuccess:
		return nil
	case agent.ResponseFailure:
		return fmt.Errorf("task failed: %s", resp.Error)
	case agent.ResponseTimeout:
		return errors.New("task timed out")
	default:
		return fmt.Errorf("unknown response type: %v", resp.Type)
	}
}

// Chat starts an interactive multi-turn session. History is kept in the
// store under the session ID, in memory when there is no database.
func Chat(ctx context.Context, opts Options) error {
	opts.streams()
	if opts.SessionID == "" {
		opts.SessionID = "default"
	}
	w, err := openWorkspace(opts, true)
	if err != nil {
		return err
	}
	defer w.Close()

	provider, err := w.settings.NewProvider()
	if err != nil {
		return err
	}
	s, err := w.session(provider, opts.Stdout, opts.Verbose)
	if err != nil {
		return err
	}

	if w.store != nil {
		if history, err := w.store.Load(ctx, s.ID()); err == nil && len(history) > 0 {
			fmt.Fprintf(opts.Stdout, "Resuming session '%s' (%d messages)\n", s.ID(), len(history))
		}
	}
	fmt.Fprintf(opts.Stdout, "Chat with %s (%s) in %s. Type 'exit' to quit.\n\n", provider.Name(), provider.Model(), w.files.Root())

	for {
		fmt.Fprint(opts.Stdout, "> ")
		input, err := w.console.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		resp := s.Run(ctx, input)
		fmt.Fprint(opts.Stdout, summary(resp))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readAll reads a transcript from path, or stdin for "-".
func readAll(path string, stdin io.Reader) (string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
