// Package storage provides file and conversation storage backends.
//
// Information Hiding:
// - Atomic temp-file-and-rename writes hidden behind Write
// - Permission preservation of existing files hidden
// - Map structures and locking of in-memory stores hidden
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore reads and writes files on the local disk. Paths are absolute;
// resolution against a working root happens before they reach the store.
type FileStore struct {
	// DefaultPerm applies to newly created files. Zero means 0644.
	DefaultPerm fs.FileMode
}

// NewFileStore creates a disk-backed store.
func NewFileStore() *FileStore {
	return &FileStore{DefaultPerm: 0o644}
}

// Read returns the content of path.
func (s *FileStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Exists reports whether path exists as a regular file.
func (s *FileStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return true, nil
}

// Write replaces path atomically. Either the whole new content is visible
// or the old content is untouched.
func (s *FileStore) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	perm := s.DefaultPerm
	if perm == 0 {
		perm = 0o644
	}
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return AtomicWriteFile(path, data, perm)
}

// AtomicWriteFile writes data to a temp file in the target directory and
// renames it over filename.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".redline-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var ok bool
	defer func() {
		if !ok {
			if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("failed to remove temp file", "path", tmp.Name(), "error", err)
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	ok = true
	return nil
}
