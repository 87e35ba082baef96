package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore()
	ctx := context.Background()
	path := filepath.Join(dir, "nested", "file.txt")

	exists, err := store.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write(ctx, path, []byte("hello\n")))

	exists, err = store.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStorePreservesMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	store := NewFileStore()
	require.NoError(t, store.Write(context.Background(), path, []byte("#!/bin/sh\necho hi\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestFileStoreExistsOnDirectory(t *testing.T) {
	_, err := NewFileStore().Exists(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestFileStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "x")

	err := NewFileStore().Write(ctx, path, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMemoryFiles(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFiles(map[string]string{"/a": "1"})

	data, err := m.Read(ctx, "/a")
	require.NoError(t, err)
	data[0] = 'x'
	got, _ := m.Content("/a")
	assert.Equal(t, "1", got, "Read must return a copy")

	_, err = m.Read(ctx, "/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, m.Write(ctx, "/b", []byte("2")))
	assert.Equal(t, []string{"/a", "/b"}, m.Paths())
	assert.Equal(t, 1, m.Writes())

	m.WriteErr = os.ErrPermission
	assert.ErrorIs(t, m.Write(ctx, "/a", []byte("3")), os.ErrPermission)
	got, _ = m.Content("/a")
	assert.Equal(t, "1", got)
}
