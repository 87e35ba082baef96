package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
	"github.com/richinex/redline/tools"
)

func TestDispatchOutcomes(t *testing.T) {
	m, _ := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	registry, err := tools.WithDefaults(tools.Deps{Files: m})
	require.NoError(t, err)
	d, err := NewDispatcher(registry, m, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		seg     model.Segment
		kind    edit.Kind
		success bool
		message string
	}{
		{
			name:    "read",
			seg:     model.InvocationSegment(model.ReadFile, model.Params{{Name: model.ParamPath, Value: "test.txt"}}, false),
			success: true,
			message: "[read_file for 'test.txt'] Result:\n" + fiveLines,
		},
		{
			name:    "missing parameter",
			seg:     model.InvocationSegment(model.ReadFile, nil, false),
			kind:    edit.ErrMissingParameter,
			message: "[read_file] Result:\nError: missing value for required parameter 'path' in read_file",
		},
		{
			name: "unsupported",
			seg:  model.InvocationSegment(model.BrowserAction, model.Params{{Name: model.ParamAction, Value: "launch"}}, false),
			kind: edit.ErrUnsupportedCommand,
		},
		{
			name: "outside root",
			seg:  model.InvocationSegment(model.ReadFile, model.Params{{Name: model.ParamPath, Value: "../etc/passwd"}}, false),
			kind: edit.ErrPathOutsideRoot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := d.Dispatch(context.Background(), tt.seg)
			require.NoError(t, err)
			assert.Equal(t, tt.success, out.Result.Success())
			assert.Equal(t, tt.success, out.Call.Success)
			assert.Equal(t, string(tt.seg.Command), out.Call.Name)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, edit.KindOf(out.Result.Error))
			}
			if tt.message != "" {
				assert.Equal(t, tt.message, out.Message)
			}
		})
	}
}

func TestDispatchUnregisteredCommand(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	d, err := NewDispatcher(tools.NewRegistry(), m, nil)
	require.NoError(t, err)

	seg := model.InvocationSegment(model.AttemptCompletion, model.Params{{Name: model.ParamResult, Value: "done"}}, false)
	out, err := d.Dispatch(context.Background(), seg)
	require.NoError(t, err)
	assert.ErrorIs(t, out.Result.Error, edit.ErrUnsupportedCommand)
	assert.False(t, out.Final)
}

func TestNoteStrayTags(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	d, err := NewDispatcher(tools.NewRegistry(), m, nil)
	require.NoError(t, err)

	text := model.TextSegment("<thinking>plan</thinking> then <path>a.go</path>", false)
	assert.Equal(t, []string{"thinking", "path"}, d.NoteStrayTags(text))
	assert.Nil(t, d.NoteStrayTags(model.TextSegment("plain words", false)))

	seg := model.InvocationSegment(model.ReadFile, model.Params{{Name: model.ParamPath, Value: "<b>"}}, false)
	assert.Nil(t, d.NoteStrayTags(seg))
}

func TestDispatchCommitAndDiscard(t *testing.T) {
	m, _ := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	registry, err := tools.WithDefaults(tools.Deps{Files: m})
	require.NoError(t, err)
	reviewer := &scriptedReviewer{decisions: []Decision{{Approve: true}, {Approve: false}}}
	d, err := NewDispatcher(registry, m, reviewer)
	require.NoError(t, err)

	insert := model.InvocationSegment(model.InsertCodeBlock, model.Params{
		{Name: model.ParamPath, Value: "test.txt"},
		{Name: model.ParamStartLine, Value: "1"},
		{Name: model.ParamCodeBlock, Value: "Header"},
	}, false)

	out, err := d.Dispatch(context.Background(), insert)
	require.NoError(t, err)
	require.NotNil(t, out.Committed)
	assert.Equal(t, edit.StateCommitted, out.Committed.Transaction.State)
	assert.Contains(t, out.Message, "was saved")

	out, err = d.Dispatch(context.Background(), insert)
	require.NoError(t, err)
	require.NotNil(t, out.Discarded)
	assert.Equal(t, edit.StateDiscarded, out.Discarded.State)
	assert.False(t, out.Call.Success)

	content, err := m.ReadFile(context.Background(), "test.txt")
	require.NoError(t, err)
	assert.Equal(t, "Header\n"+fiveLines, content)
}
