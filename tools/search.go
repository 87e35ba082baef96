// Search Tool - regex search across files via ripgrep.
//
// Information Hiding:
// - Ripgrep command construction hidden
// - Output trimming abstracted
// - Error handling internalized

package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
)

// DefaultSearchMaxLines caps search_files output.
const DefaultSearchMaxLines = 300

// SearchFilesTool searches files with ripgrep.
type SearchFilesTool struct {
	files       *edit.Manager
	timeoutSecs uint64
	maxLines    int
	binary      string
}

// NewSearchFilesTool creates a search_files handler.
func NewSearchFilesTool(files *edit.Manager, timeoutSecs uint64) *SearchFilesTool {
	return &SearchFilesTool{
		files:       files,
		timeoutSecs: timeoutSecs,
		maxLines:    DefaultSearchMaxLines,
		binary:      "rg",
	}
}

// WithMaxLines sets the output cap.
func (t *SearchFilesTool) WithMaxLines(n int) *SearchFilesTool {
	if n > 0 {
		t.maxLines = n
	}
	return t
}

// Metadata returns the tool metadata.
func (t *SearchFilesTool) Metadata() ToolMetadata {
	return grammar[model.SearchFiles]
}

// Execute runs the search.
func (t *SearchFilesTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	abs, display, err := t.files.Resolve(cmd.String(model.ParamPath))
	if err != nil {
		return FailureResult(err), nil
	}

	timeout := time.Duration(t.timeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rel, err := filepath.Rel(t.files.Root(), abs)
	if err != nil {
		rel = abs
	}

	args := []string{"--line-number", "--no-heading", "--color", "never", "--context", "1"}
	if pattern := strings.TrimSpace(cmd.String(model.ParamFilePattern)); pattern != "" {
		args = append(args, "--glob", pattern)
	}
	args = append(args, "-e", cmd.String(model.ParamRegex), "--", rel)

	c := exec.CommandContext(ctx, t.binary, args...)
	c.Dir = t.files.Root()
	output, err := c.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return FailureResultf("search timed out after %s", timeout), nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return SuccessResult(fmt.Sprintf("Found 0 results in %s.", display)), nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return FailureResultf("ripgrep (rg) is not installed"), nil
		}
		return FailureResultf("search failed: %s", strings.TrimSpace(string(output))), nil
	}

	return SuccessResult(t.trim(string(output))), nil
}

func (t *SearchFilesTool) trim(output string) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) <= t.maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:t.maxLines], "\n") +
		fmt.Sprintf("\n\n(showing first %d of %d lines, narrow the search)", t.maxLines, len(lines))
}
