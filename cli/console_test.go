package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/redline/edit"
)

func newConsole(input string, auto bool) (*Console, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewConsole(strings.NewReader(input), &out, &errOut, auto), &out, &errOut
}

func TestConsoleReviewEdit(t *testing.T) {
	ctx := context.Background()
	tx := edit.Transaction{Path: "/work/a.go", Display: "a.go"}

	c, out, _ := newConsole("y\n", false)
	d, err := c.ReviewEdit(ctx, tx)
	require.NoError(t, err)
	assert.True(t, d.Approve)
	assert.Contains(t, out.String(), "Apply changes to a.go?")

	c, _, _ = newConsole("maybe\nn\nuse a constant\n", false)
	d, err = c.ReviewEdit(ctx, tx)
	require.NoError(t, err)
	assert.False(t, d.Approve)
	assert.Equal(t, "use a constant", d.Feedback)

	c, _, errOut := newConsole("e\nyes\n", false)
	d, err = c.ReviewEdit(ctx, tx)
	require.NoError(t, err)
	assert.True(t, d.Approve)
	assert.Contains(t, errOut.String(), "cannot be edited")

	c, _, _ = newConsole("", false)
	_, err = c.ReviewEdit(ctx, tx)
	assert.Error(t, err)
}

func TestConsoleAutoApprove(t *testing.T) {
	c, out, _ := newConsole("", true)
	d, err := c.ReviewEdit(context.Background(), edit.Transaction{Display: "a.go"})
	require.NoError(t, err)
	assert.True(t, d.Approve)
	assert.Contains(t, out.String(), "Auto-approved changes to a.go")

	ok, err := c.ApproveCommand(context.Background(), "rm -rf build")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsoleApproveCommand(t *testing.T) {
	c, _, _ := newConsole("y\n\n", false)
	ok, err := c.ApproveCommand(context.Background(), "go test ./...")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ApproveCommand(context.Background(), "go test ./...")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsoleAsk(t *testing.T) {
	c, out, _ := newConsole("tabs", false)
	answer, err := c.Ask(context.Background(), "Tabs or spaces?")
	require.NoError(t, err)
	assert.Equal(t, "tabs", answer)
	assert.Contains(t, out.String(), "Tabs or spaces?")
}
