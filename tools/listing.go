// Directory listing for list_files.
//
// Returns paths only, never content. Hidden and dependency directories are
// skipped when listing recursively.

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
)

// DefaultListMaxResults caps list_files output.
const DefaultListMaxResults = 200

var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
}

// ListFilesTool lists directory entries under the working root.
type ListFilesTool struct {
	files      *edit.Manager
	maxResults int
}

// NewListFilesTool creates a list_files handler.
// If maxResults <= 0, DefaultListMaxResults is used.
func NewListFilesTool(files *edit.Manager, maxResults int) *ListFilesTool {
	if maxResults <= 0 {
		maxResults = DefaultListMaxResults
	}
	return &ListFilesTool{files: files, maxResults: maxResults}
}

// Metadata returns tool metadata.
func (t *ListFilesTool) Metadata() ToolMetadata {
	return grammar[model.ListFiles]
}

// Execute lists the directory.
func (t *ListFilesTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	abs, display, err := t.files.Resolve(cmd.String(model.ParamPath))
	if err != nil {
		return FailureResult(err), nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return FailureResultf("directory not found: %s", display), nil
	}
	if !info.IsDir() {
		return FailureResultf("path is not a directory: %s", display), nil
	}

	var entries []string
	if cmd.Bool(model.ParamRecursive) {
		entries, err = t.walk(ctx, abs)
	} else {
		entries, err = t.top(abs)
	}
	if err != nil {
		return FailureResultf("%v", err), nil
	}
	return t.formatResult(display, entries), nil
}

func (t *ListFilesTool) top(abs string) ([]string, error) {
	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var entries []string
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		entries = append(entries, name)
		if len(entries) >= t.maxResults {
			break
		}
	}
	sort.Strings(entries)
	return entries, nil
}

func (t *ListFilesTool) walk(ctx context.Context, abs string) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(abs, func(path string, entry os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == abs {
			return nil
		}

		name := entry.Name()
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if strings.HasPrefix(name, ".") || skippedDirs[name] {
				return filepath.SkipDir
			}
			rel += "/"
		}
		entries = append(entries, rel)
		if len(entries) >= t.maxResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return entries, err
	}
	sort.Strings(entries)
	return entries, nil
}

func (t *ListFilesTool) formatResult(display string, entries []string) ToolResult {
	if len(entries) == 0 {
		return SuccessResult(fmt.Sprintf("No files found in %s", display))
	}
	var result strings.Builder
	for _, e := range entries {
		fmt.Fprintln(&result, e)
	}
	if len(entries) >= t.maxResults {
		fmt.Fprintf(&result, "\n(limited to %d results)", t.maxResults)
	}
	return SuccessResult(strings.TrimRight(result.String(), "\n"))
}
