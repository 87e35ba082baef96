// Commands that need no model: replay, parse, commands, history.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/richinex/redline/agent"
	"github.com/richinex/redline/llm"
	"github.com/richinex/redline/model"
	"github.com/richinex/redline/parser"
	"github.com/richinex/redline/storage"
	"github.com/richinex/redline/tools"
)

// Replay streams a saved model reply through the parser in chunks of the
// given size and dispatches every complete command in order, with review.
// A transcript path of "-" reads stdin.
func Replay(ctx context.Context, path string, chunk int, opts Options) error {
	opts.streams()
	transcript, err := readAll(path, opts.Stdin)
	if err != nil {
		return err
	}

	w, err := openWorkspace(opts, true)
	if err != nil {
		return err
	}
	defer w.Close()
	defer func() {
		if err := w.files.DiscardAll(context.WithoutCancel(ctx)); err != nil {
			w.logger.Warn("failed to discard pending edits", "error", err)
		}
	}()

	deps := w.toolDeps()
	deps.Files, deps.Asker, deps.Approver = w.files, w.console, w.console
	registry, err := tools.WithDefaults(deps)
	if err != nil {
		return err
	}
	dispatcher, err := agent.NewDispatcher(registry, w.files, w.console)
	if err != nil {
		return err
	}
	dispatcher.WithLogger(w.logger)

	provider := llm.NewScripted(transcript)
	provider.ChunkSize = chunk
	printer := NewPrinter(opts.Stdout, opts.Verbose)
	printer.Start(0)

	n, err := replay(ctx, provider, dispatcher, printer)
	fmt.Fprintf(opts.Stdout, "\nReplayed %d command(s)\n", n)
	return err
}

func replay(ctx context.Context, provider llm.Provider, d *agent.Dispatcher, r agent.Renderer) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := make(chan string, 64)
	done := make(chan error, 1)
	go func() {
		defer close(chunks)
		_, err := provider.StreamChat(ctx, nil, chunks)
		done <- err
	}()

	var (
		dispatched int
		failed     error
		finished   bool
	)
	handle := func(u parser.Update) {
		r.Render(u)
		for _, seg := range u.Completed {
			if !seg.IsInvocation() {
				d.NoteStrayTags(seg)
				continue
			}
			if failed != nil || finished {
				continue
			}
			out, err := d.Dispatch(ctx, seg)
			if err != nil {
				failed = err
				cancel()
				return
			}
			dispatched++
			r.Result(out)
			finished = out.Final
		}
	}

	ps := parser.NewStream()
	for c := range chunks {
		handle(ps.Write(c))
	}
	streamErr := <-done

	final := ps.Close()
	handle(final)
	if failed != nil {
		return dispatched, failed
	}
	if streamErr != nil {
		return dispatched, streamErr
	}
	if final.Truncated != nil {
		return dispatched, fmt.Errorf("transcript ends inside an unclosed %s command", final.Truncated.Command)
	}
	return dispatched, nil
}

// Parse prints the segments decoded from a transcript as JSON. A positive
// prefix parses only that many bytes, showing partial segments.
func Parse(path string, prefix int, opts Options) error {
	opts.streams()
	text, err := readAll(path, opts.Stdin)
	if err != nil {
		return err
	}
	if prefix > 0 && prefix < len(text) {
		text = text[:prefix]
	}

	segments := parser.Parse(text)
	if segments == nil {
		segments = []model.Segment{}
	}
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}
	fmt.Fprintln(opts.Stdout, string(data))

	for _, seg := range segments {
		if seg.Kind != model.KindText {
			continue
		}
		if stray := parser.StrayTags(seg.Text); len(stray) > 0 {
			fmt.Fprintf(opts.Stderr, "note: tags left as text: %s\n", strings.Join(stray, ", "))
		}
	}
	return nil
}

// ListCommands prints the command grammar, or the full system prompt.
func ListCommands(prompt bool, opts Options) error {
	opts.streams()
	if prompt {
		w, err := openWorkspace(opts, false)
		if err != nil {
			return err
		}
		defer w.Close()

		deps := w.toolDeps()
		deps.Files = w.files
		registry, err := tools.WithDefaults(deps)
		if err != nil {
			return err
		}
		fmt.Fprintln(opts.Stdout, agent.SystemPrompt(w.files.Root(), registry))
		return nil
	}

	for _, spec := range tools.Specs() {
		fmt.Fprintf(opts.Stdout, "%s\n  %s\n", spec.Name, spec.Description)
		for _, p := range spec.Parameters {
			required := ""
			if p.Required {
				required = " (required)"
			}
			fmt.Fprintf(opts.Stdout, "    - %s%s: %s\n", p.Name, required, p.Description)
		}
		fmt.Fprintln(opts.Stdout)
	}
	return nil
}

// History prints the sessions in the database, or the edit journal of one
// session when opts.SessionID is set.
func History(ctx context.Context, limit int, opts Options) error {
	opts.streams()
	if opts.NoDB {
		return errors.New("history needs a database; drop --no-db")
	}
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	if _, err := os.Stat(settings.Storage.Path); err != nil {
		return fmt.Errorf("no history database at %s", settings.Storage.Path)
	}
	store, err := storage.OpenSqlite(settings.Storage.Path, settings.Storage.Driver)
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if opts.SessionID == "" {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return err
		}
		return writeSessions(tw, sessions)
	}

	records, err := store.Transactions(ctx, opts.SessionID, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "UPDATED\tSTATE\tCHANGE\tPATH\tERROR")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.UpdatedAt.Format("2006-01-02 15:04:05"), rec.State, rec.Change, rec.Path, firstLine(rec.Error))
	}
	return nil
}

func writeSessions(w io.Writer, sessions []storage.SessionInfo) error {
	fmt.Fprintln(w, "SESSION\tUPDATED\tMESSAGES\tEDITS")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", s.ID, s.UpdatedAt, s.Messages, s.Transactions)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
