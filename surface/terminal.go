package surface

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/richinex/redline/edit"
)

// TerminalOptions configures a Terminal surface.
type TerminalOptions struct {
	Out io.Writer
	// Root is used to print paths relative to the working directory.
	Root        string
	SettleDelay time.Duration
	// Editor is the command used for manual edits, e.g. "vim".
	Editor string
	// LintCommand is run on the final content at save time. "{file}" is
	// replaced with a temp file holding that content.
	LintCommand string
	LintTimeout time.Duration
	Color       bool
}

// Terminal renders a staged proposal as a unified diff on a writer and lets
// the reviewer adjust it in an external editor before saving.
type Terminal struct {
	Delay
	opts TerminalOptions

	path     string
	display  string
	original string
	proposed string
	edited   string
	hasEdit  bool
	editing  bool
}

// NewTerminal creates a terminal surface.
func NewTerminal(opts TerminalOptions) *Terminal {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.LintTimeout == 0 {
		opts.LintTimeout = 30 * time.Second
	}
	return &Terminal{Delay: Delay{Duration: opts.SettleDelay}, opts: opts}
}

// TerminalFactory returns a factory creating one Terminal per transaction.
// Created surfaces are passed to track when it is not nil.
func TerminalFactory(opts TerminalOptions, track func(path string, t *Terminal)) edit.SurfaceFactory {
	return func(path string) edit.Surface {
		t := NewTerminal(opts)
		if track != nil {
			track(path, t)
		}
		return t
	}
}

// Open implements edit.Surface.
func (t *Terminal) Open(ctx context.Context, snap edit.Snapshot) error {
	t.path = snap.Path
	t.display = t.relative(snap.Path)
	t.original = snap.Content
	t.proposed = snap.Content
	t.edited = ""
	t.hasEdit = false
	t.editing = true

	label := "editing"
	if !snap.Exists {
		label = "creating"
	}
	fmt.Fprintf(t.opts.Out, "\n=== %s %s ===\n", label, t.display)
	return nil
}

// Update implements edit.Surface. The diff is rendered on the final update.
func (t *Terminal) Update(ctx context.Context, content string, final bool) error {
	if !t.editing {
		return fmt.Errorf("update before open")
	}
	t.proposed = content
	if final {
		return t.render(t.proposed)
	}
	return nil
}

// ScrollToFirstDifference implements edit.Surface.
func (t *Terminal) ScrollToFirstDifference(ctx context.Context) error {
	if line := FirstDifference(t.original, t.current()); line > 0 {
		added, removed := DiffStats(t.original, t.current())
		fmt.Fprintf(t.opts.Out, "first change at line %d (+%d -%d)\n", line, added, removed)
	}
	return nil
}

// SaveChanges implements edit.Surface.
func (t *Terminal) SaveChanges(ctx context.Context) (edit.SaveResult, error) {
	if !t.editing {
		return edit.SaveResult{}, fmt.Errorf("no proposal open")
	}
	final := t.current()

	var manual string
	if t.hasEdit {
		d, err := edit.Diff(t.display, "proposed", "edited", t.proposed, final)
		if err != nil {
			return edit.SaveResult{}, err
		}
		manual = d
	}

	diagnostics := t.lint(ctx, final)
	t.editing = false
	fmt.Fprintf(t.opts.Out, "saved %s\n", t.display)
	return edit.SaveResult{Diagnostics: diagnostics, ManualEdits: manual, FinalContent: final}, nil
}

// RevertChanges implements edit.Surface.
func (t *Terminal) RevertChanges(ctx context.Context) error {
	if t.editing {
		fmt.Fprintf(t.opts.Out, "reverted %s\n", t.display)
	}
	t.editing = false
	t.proposed = t.original
	t.edited = ""
	t.hasEdit = false
	return nil
}

// IsEditing implements edit.Surface.
func (t *Terminal) IsEditing() bool {
	return t.editing
}

// EditProposal opens the current proposal in the configured editor and
// keeps the result as the reviewer's version.
func (t *Terminal) EditProposal(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	if !t.editing {
		return fmt.Errorf("no proposal open")
	}
	editor := t.opts.Editor
	if editor == "" {
		return fmt.Errorf("no editor configured (set EDITOR)")
	}

	tmp, err := writeTemp(t.path, t.current())
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	cmd := exec.CommandContext(ctx, "sh", "-c", editor+" "+shellQuote(tmp))
	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdin, stdout, stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor failed: %w", err)
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return fmt.Errorf("read edited proposal: %w", err)
	}
	t.edited = string(data)
	t.hasEdit = t.edited != t.proposed
	return t.render(t.current())
}

// Display returns the path being reviewed relative to the root.
func (t *Terminal) Display() string {
	return t.display
}

func (t *Terminal) current() string {
	if t.hasEdit {
		return t.edited
	}
	return t.proposed
}

func (t *Terminal) render(content string) error {
	diff, err := edit.UnifiedDiff(t.display, t.original, content)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(t.opts.Out, "(no changes)")
		return nil
	}
	w := bufio.NewWriter(t.opts.Out)
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		w.WriteString(t.colorize(line))
	}
	if !strings.HasSuffix(diff, "\n") {
		w.WriteString("\n")
	}
	return w.Flush()
}

const (
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

func (t *Terminal) colorize(line string) string {
	if !t.opts.Color {
		return line
	}
	body := strings.TrimSuffix(line, "\n")
	nl := line[len(body):]
	switch {
	case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
		return body + nl
	case strings.HasPrefix(body, "+"):
		return ansiGreen + body + ansiReset + nl
	case strings.HasPrefix(body, "-"):
		return ansiRed + body + ansiReset + nl
	case strings.HasPrefix(body, "@@"):
		return ansiCyan + body + ansiReset + nl
	}
	return line
}

// lint runs the configured lint command against content. Every non-empty
// output line is a diagnostic.
func (t *Terminal) lint(ctx context.Context, content string) []string {
	if t.opts.LintCommand == "" {
		return nil
	}
	tmp, err := writeTemp(t.path, content)
	if err != nil {
		return []string{fmt.Sprintf("lint skipped: %v", err)}
	}
	defer os.Remove(tmp)

	ctx, cancel := context.WithTimeout(ctx, t.opts.LintTimeout)
	defer cancel()

	command := strings.ReplaceAll(t.opts.LintCommand, "{file}", shellQuote(tmp))
	out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()

	var diagnostics []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, tmp, t.display))
		if line != "" {
			diagnostics = append(diagnostics, line)
		}
	}
	if err != nil && len(diagnostics) == 0 {
		diagnostics = append(diagnostics, fmt.Sprintf("lint command failed: %v", err))
	}
	return diagnostics
}

func (t *Terminal) relative(path string) string {
	if t.opts.Root == "" {
		return path
	}
	rel, err := filepath.Rel(t.opts.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// writeTemp writes content to a temp file keeping path's extension, so
// editors and linters detect the language.
func writeTemp(path, content string) (string, error) {
	f, err := os.CreateTemp("", "redline-*"+filepath.Ext(path))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
