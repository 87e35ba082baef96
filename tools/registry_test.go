package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/redline/model"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCompletionTool()))

	assert.True(t, r.Has(model.AttemptCompletion))
	tool, ok := r.Get(model.AttemptCompletion)
	require.True(t, ok)
	assert.Equal(t, model.AttemptCompletion, tool.Metadata().Name)

	err := r.Register(NewCompletionTool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	_, ok = r.Get(model.ReadFile)
	assert.False(t, ok)
}

type strayTool struct{}

func (strayTool) Metadata() ToolMetadata { return ToolMetadata{Name: "rm_rf"} }
func (strayTool) Execute(context.Context, Command) (ToolResult, error) {
	return SuccessResult(""), nil
}

func TestRegistryRejectsUnknownCommand(t *testing.T) {
	r := NewRegistry()
	err := r.Register(strayTool{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not part of the command vocabulary")
}

func TestWithDefaults(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	r, err := WithDefaults(Deps{Files: m})
	require.NoError(t, err)

	assert.Equal(t, model.CommandNames, r.Names())
	assert.Len(t, r.List(), len(model.CommandNames))

	_, err = WithDefaults(Deps{})
	assert.Error(t, err)
}

func TestRegistryDescription(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	r, err := WithDefaults(Deps{Files: m})
	require.NoError(t, err)

	desc := r.Description()
	assert.Contains(t, desc, "## read_file_range\n")
	assert.Contains(t, desc, "- start_line: (optional)")
	assert.Contains(t, desc, "<search_and_replace>\n<path>path here</path>\n")
	assert.NotContains(t, desc, "browser_action")

	readFile := strings.Index(desc, "## read_file\n")
	insert := strings.Index(desc, "## insert_code_block\n")
	require.NotEqual(t, -1, readFile)
	assert.Less(t, readFile, insert)
}
