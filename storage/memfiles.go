package storage

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

// MemoryFiles is an in-memory file store for tests and dry runs.
type MemoryFiles struct {
	mu    sync.RWMutex
	files map[string][]byte

	// WriteErr, when set, fails every Write without changing content.
	WriteErr error
	writes   int
}

// NewMemoryFiles creates a store seeded with files (path to content).
func NewMemoryFiles(files map[string]string) *MemoryFiles {
	m := &MemoryFiles{files: make(map[string][]byte, len(files))}
	for path, content := range files {
		m.files[path] = []byte(content)
	}
	return m
}

// Read returns a copy of the content at path.
func (m *MemoryFiles) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of data at path.
func (m *MemoryFiles) Write(ctx context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return fmt.Errorf("write %s: %w", path, m.WriteErr)
	}
	m.files[path] = append([]byte(nil), data...)
	m.writes++
	return nil
}

// Exists reports whether path is stored.
func (m *MemoryFiles) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[path]
	return ok, nil
}

// Content returns the stored content of path as a string.
func (m *MemoryFiles) Content(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path]
	return string(data), ok
}

// Paths lists stored paths in sorted order.
func (m *MemoryFiles) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Writes returns how many writes succeeded.
func (m *MemoryFiles) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
