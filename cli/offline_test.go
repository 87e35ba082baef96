package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/storage"
)

const replaceTranscript = "Renaming line 3.\n" +
	"<search_and_replace>\n<path>test.txt</path>\n<search_block>Line 3</search_block>\n" +
	"<replace_block>Line three</replace_block>\n</search_and_replace>\n" +
	"<attempt_completion>\n<result>done</result>\n</attempt_completion>"

type testEnv struct {
	root string
	db   string
	opts Options
	out  *bytes.Buffer
}

func newTestEnv(t *testing.T, input string) *testEnv {
	t.Helper()
	t.Setenv("REDLINE_SETTLE_DELAY", "0")
	t.Setenv("REDLINE_AUTO_APPROVE", "")
	t.Setenv("REDLINE_LOG_FILE", filepath.Join(t.TempDir(), "redline.log"))

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "test.txt"), []byte("Line 1\nLine 2\nLine 3\n"), 0o644))

	out := &bytes.Buffer{}
	env := &testEnv{
		root: root,
		db:   filepath.Join(t.TempDir(), "redline.db"),
		out:  out,
	}
	env.opts = Options{
		Provider:  "anthropic",
		Root:      root,
		DBPath:    env.db,
		SessionID: "replay-test",
		Stdin:     strings.NewReader(input),
		Stdout:    out,
		Stderr:    &bytes.Buffer{},
	}
	return env
}

func (e *testEnv) transcript(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func (e *testEnv) journal(t *testing.T) []edit.Record {
	t.Helper()
	store, err := storage.OpenSqlite(e.db, storage.DriverPure)
	require.NoError(t, err)
	defer store.Close()
	records, err := store.Transactions(context.Background(), "replay-test", 0)
	require.NoError(t, err)
	return records
}

func TestReplayApproved(t *testing.T) {
	env := newTestEnv(t, "y\n")
	err := Replay(context.Background(), env.transcript(t, replaceTranscript), 7, env.opts)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.root, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Line 1\nLine 2\nLine three\n", string(data))
	assert.Contains(t, env.out.String(), "saved test.txt")
	assert.Contains(t, env.out.String(), "Replayed 2 command(s)")

	records := env.journal(t)
	require.Len(t, records, 1)
	assert.Equal(t, edit.StateCommitted, records[0].State)
	assert.Equal(t, "replay-test", records[0].SessionID)
}

func TestReplayRejected(t *testing.T) {
	env := newTestEnv(t, "n\nnot now\n")
	err := Replay(context.Background(), env.transcript(t, replaceTranscript), 0, env.opts)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.root, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Line 1\nLine 2\nLine 3\n", string(data))

	records := env.journal(t)
	require.Len(t, records, 1)
	assert.Equal(t, edit.StateDiscarded, records[0].State)
}

func TestReplayTruncated(t *testing.T) {
	env := newTestEnv(t, "")
	err := Replay(context.Background(), env.transcript(t, "<read_file>\n<path>test.txt"), 4, env.opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unclosed read_file")
}

func TestReplayWithoutDatabase(t *testing.T) {
	env := newTestEnv(t, "y\n")
	env.opts.NoDB = true

	w, err := openWorkspace(env.opts, true)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, w.store)
	w.Close()

	require.NoError(t, Replay(context.Background(), env.transcript(t, replaceTranscript), 0, env.opts))
	data, err := os.ReadFile(filepath.Join(env.root, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Line 1\nLine 2\nLine three\n", string(data))

	_, err = os.Stat(env.db)
	assert.True(t, os.IsNotExist(err), "no database file should be created")
	assert.Error(t, History(context.Background(), 10, env.opts))
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, "y\n")
	require.NoError(t, Replay(context.Background(), env.transcript(t, replaceTranscript), 0, env.opts))

	env.out.Reset()
	require.NoError(t, History(context.Background(), 10, env.opts))
	assert.Contains(t, env.out.String(), "committed")
	assert.Contains(t, env.out.String(), "search_replace")

	missing := env.opts
	missing.DBPath = filepath.Join(t.TempDir(), "none.db")
	assert.Error(t, History(context.Background(), 10, missing))
}

func TestParse(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.transcript(t, "Hi.\n<read_file>\n<path>a.go</path>\n</read_file>")

	require.NoError(t, Parse(path, 0, env.opts))
	assert.Contains(t, env.out.String(), `"command": "read_file"`)
	assert.Contains(t, env.out.String(), `"partial": false`)

	env.out.Reset()
	require.NoError(t, Parse(path, 20, env.opts))
	assert.Contains(t, env.out.String(), `"partial": true`)
}

func TestListCommands(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, ListCommands(false, env.opts))
	assert.Contains(t, env.out.String(), "search_and_replace\n")
	assert.Contains(t, env.out.String(), "- path (required)")

	env.out.Reset()
	require.NoError(t, ListCommands(true, env.opts))
	assert.Contains(t, env.out.String(), "## insert_code_block")
	assert.Contains(t, env.out.String(), env.root)
}
