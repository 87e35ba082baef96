package agent

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/llm"
	"github.com/richinex/redline/model"
	"github.com/richinex/redline/parser"
	"github.com/richinex/redline/storage"
	"github.com/richinex/redline/surface"
)

const fiveLines = "Line 1\nLine 2\nLine 3\nLine 4\nLine 5"

const (
	readRangeReply = "I'll look at the middle of the file.\n" +
		"<read_file_range>\n<path>test.txt</path>\n<start_line>2</start_line>\n<end_line>4</end_line>\n</read_file_range>"
	replaceReply = "Now rename line 3.\n" +
		"<search_and_replace>\n<path>test.txt</path>\n<search_block>Line 3</search_block>\n" +
		"<replace_block>Line three</replace_block>\n</search_and_replace>"
	completionReply = "<attempt_completion>\n<result>Renamed line 3.</result>\n</attempt_completion>"
)

type scriptedReviewer struct {
	decisions []Decision
	err       error
	reviewed  []edit.Transaction
}

func (r *scriptedReviewer) ReviewEdit(ctx context.Context, tx edit.Transaction) (Decision, error) {
	r.reviewed = append(r.reviewed, tx)
	if r.err != nil {
		return Decision{}, r.err
	}
	if len(r.decisions) == 0 {
		return Decision{Approve: true}, nil
	}
	d := r.decisions[0]
	r.decisions = r.decisions[1:]
	return d, nil
}

func (r *scriptedReviewer) Ask(ctx context.Context, question string) (string, error) {
	return "use tabs", nil
}

func (r *scriptedReviewer) ApproveCommand(ctx context.Context, command string) (bool, error) {
	return true, nil
}

type recordingRenderer struct {
	starts   int
	updates  int
	partial  bool
	outcomes []Outcome
}

func (r *recordingRenderer) Start(iteration int) {
	r.starts++
}

func (r *recordingRenderer) Render(u parser.Update) {
	r.updates++
	for _, seg := range u.Segments {
		if seg.IsInvocation() && seg.Partial {
			r.partial = true
		}
	}
}

func (r *recordingRenderer) Result(o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

func newWorkspace(t *testing.T, files map[string]string) (*edit.Manager, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	m, err := edit.NewManager(root, storage.NewFileStore(), surface.NewRecorders().Factory())
	require.NoError(t, err)
	return m, root
}

func readFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, name))
	require.NoError(t, err)
	return string(data)
}

func lastMessage(t *testing.T, request []llm.ChatMessage) llm.ChatMessage {
	t.Helper()
	require.NotEmpty(t, request)
	return request[len(request)-1]
}

func newSession(t *testing.T, provider llm.Provider, files *edit.Manager, reviewer Reviewer) *Session {
	t.Helper()
	s, err := NewBuilder(provider, files).Reviewer(reviewer).Build()
	require.NoError(t, err)
	return s
}

func TestSessionReadEditComplete(t *testing.T) {
	m, root := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	provider := llm.NewScripted(readRangeReply, replaceReply, completionReply)
	reviewer := &scriptedReviewer{}
	renderer := &recordingRenderer{}

	s, err := NewBuilder(provider, m).Reviewer(reviewer).Renderer(renderer).Build()
	require.NoError(t, err)

	resp := s.Run(context.Background(), "Rename line 3")
	require.True(t, resp.IsSuccess(), resp.ResultText())
	assert.Equal(t, "Renamed line 3.", resp.Result)
	assert.Equal(t, 3, resp.Metadata.LLMCalls)
	require.Len(t, resp.Metadata.ToolCalls, 3)
	assert.Len(t, resp.Steps, 3)
	assert.Equal(t, "I'll look at the middle of the file.", resp.Steps[0].Thought)

	assert.Equal(t, "Line 1\nLine 2\nLine three\nLine 4\nLine 5", readFile(t, root, "test.txt"))
	require.Len(t, reviewer.reviewed, 1)
	assert.Equal(t, "test.txt", reviewer.reviewed[0].Display)
	assert.Empty(t, m.Pending())

	requests := provider.Requests()
	require.Len(t, requests, 3)
	assert.Equal(t, llm.RoleSystem, requests[0][0].Role)
	assert.Contains(t, lastMessage(t, requests[0]).Content, "Rename line 3")
	assert.Contains(t, lastMessage(t, requests[1]).Content,
		"Successfully read lines 2 to 4 from test.txt:\n\nLine 2\nLine 3\nLine 4")
	assert.Contains(t, lastMessage(t, requests[2]).Content,
		"The user approved the changes and test.txt was saved.")

	assert.Equal(t, 3, renderer.starts)
	assert.Positive(t, renderer.updates)
	assert.True(t, renderer.partial)
	assert.Len(t, renderer.outcomes, 3)
}

func TestSessionRejectedEdit(t *testing.T) {
	m, root := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	provider := llm.NewScripted(replaceReply, completionReply)
	reviewer := &scriptedReviewer{decisions: []Decision{{Approve: false, Feedback: "keep it numeric"}}}

	resp := newSession(t, provider, m, reviewer).Run(context.Background(), "Rename line 3")
	require.True(t, resp.IsSuccess())

	assert.Equal(t, fiveLines, readFile(t, root, "test.txt"))
	feedback := lastMessage(t, provider.Requests()[1]).Content
	assert.Contains(t, feedback, "The user denied the changes to test.txt")
	assert.Contains(t, feedback, "keep it numeric")
	assert.False(t, resp.Metadata.ToolCalls[0].Success)
}

func TestSessionNudgesWhenNoCommand(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	provider := llm.NewScripted("I think we're done here.", completionReply)

	resp := newSession(t, provider, m, nil).Run(context.Background(), "anything")
	require.True(t, resp.IsSuccess())
	assert.Equal(t, noCommandNudge, lastMessage(t, provider.Requests()[1]).Content)
	assert.Nil(t, resp.Steps[0].Action)
}

func TestSessionDispatchesFirstCommandOnly(t *testing.T) {
	m, root := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	provider := llm.NewScripted(readRangeReply+"\n"+replaceReply, completionReply)
	provider.ChunkSize = 1 << 20

	resp := newSession(t, provider, m, nil).Run(context.Background(), "Rename line 3")
	require.True(t, resp.IsSuccess())

	assert.Equal(t, fiveLines, readFile(t, root, "test.txt"))
	msg := lastMessage(t, provider.Requests()[1]).Content
	assert.Contains(t, msg, "Successfully read lines 2 to 4")
	assert.Contains(t, msg, "1 further command(s) in your reply were ignored")
}

func TestSessionTruncatedCommand(t *testing.T) {
	m, _ := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	provider := llm.NewScripted("Let me read.\n<read_file>\n<path>test.txt</path>", completionReply)

	resp := newSession(t, provider, m, nil).Run(context.Background(), "read it")
	require.True(t, resp.IsSuccess())
	msg := lastMessage(t, provider.Requests()[1]).Content
	assert.Contains(t, msg, "command 'read_file' is incomplete")
	assert.Contains(t, msg, "Send the complete command again")
}

func TestSessionCommandErrorIsFedBack(t *testing.T) {
	m, _ := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	bad := "<read_file_range>\n<path>test.txt</path>\n<start_line>4</start_line>\n<end_line>9</end_line>\n</read_file_range>"
	provider := llm.NewScripted(bad, completionReply)

	resp := newSession(t, provider, m, nil).Run(context.Background(), "read")
	require.True(t, resp.IsSuccess())
	msg := lastMessage(t, provider.Requests()[1]).Content
	assert.True(t, strings.HasPrefix(msg, "[read_file_range for 'test.txt'] Result:\nError: invalid line range 4-9"), msg)
}

func TestSessionTimeout(t *testing.T) {
	m, _ := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	provider := llm.NewScripted(readRangeReply, readRangeReply, completionReply)

	s, err := NewBuilder(provider, m).MaxIterations(2).Build()
	require.NoError(t, err)

	resp := s.Run(context.Background(), "loop")
	assert.Equal(t, ResponseTimeout, resp.Type)
	assert.Equal(t, "Max iterations (2) reached", resp.ResultText())
	assert.Equal(t, 2, resp.Metadata.LLMCalls)
	assert.Contains(t, lastMessage(t, provider.Requests()[1]).Content, "WARNING: Only 1 iterations remaining!")
	assert.Equal(t, 1, provider.Remaining())
}

func TestSessionProviderFailure(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	resp := newSession(t, llm.NewScripted(), m, nil).Run(context.Background(), "anything")
	assert.Equal(t, ResponseFailure, resp.Type)
	assert.Contains(t, resp.Error, llm.ErrScriptExhausted.Error())
}

func TestSessionReviewerFailureDiscards(t *testing.T) {
	m, root := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	provider := llm.NewScripted(replaceReply)
	reviewer := &scriptedReviewer{err: errors.New("terminal closed")}

	resp := newSession(t, provider, m, reviewer).Run(context.Background(), "Rename line 3")
	assert.Equal(t, ResponseFailure, resp.Type)
	assert.Contains(t, resp.Error, "terminal closed")
	assert.Empty(t, m.Pending())
	assert.Equal(t, fiveLines, readFile(t, root, "test.txt"))
}

func TestSessionCancelled(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := newSession(t, llm.NewScripted(completionReply), m, nil).Run(ctx, "anything")
	assert.Equal(t, ResponseFailure, resp.Type)
	assert.Contains(t, resp.Error, "cancelled")
}

func TestSessionFollowupQuestion(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	ask := "<ask_followup_question>\n<question>Tabs or spaces?</question>\n</ask_followup_question>"
	provider := llm.NewScripted(ask, completionReply)

	resp := newSession(t, provider, m, &scriptedReviewer{}).Run(context.Background(), "format")
	require.True(t, resp.IsSuccess())
	assert.Contains(t, lastMessage(t, provider.Requests()[1]).Content, "<answer>\nuse tabs\n</answer>")
}

func TestSessionHistoryPersisted(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	store := storage.NewMemoryStore()

	first, err := NewBuilder(llm.NewScripted(completionReply), m).Store(store).SessionID("s1").Build()
	require.NoError(t, err)
	require.True(t, first.Run(context.Background(), "first task").IsSuccess())

	provider := llm.NewScripted(completionReply)
	second, err := NewBuilder(provider, m).Store(store).SessionID("s1").Build()
	require.NoError(t, err)
	require.True(t, second.Run(context.Background(), "second task").IsSuccess())

	request := provider.Requests()[0]
	require.Len(t, request, 4)
	assert.Equal(t, llm.RoleSystem, request[0].Role)
	assert.Contains(t, request[1].Content, "first task")
	assert.Equal(t, llm.RoleAssistant, request[2].Role)
	assert.Contains(t, request[3].Content, "second task")

	saved, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, saved, 5)
}

func TestBuilderRequiresProviderAndFiles(t *testing.T) {
	m, _ := newWorkspace(t, nil)
	_, err := NewBuilder(nil, m).Build()
	assert.Error(t, err)
	_, err = NewBuilder(llm.NewScripted(), nil).Build()
	assert.Error(t, err)

	s, err := NewBuilder(llm.NewScripted(), m).Build()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
}

func TestTrimHistory(t *testing.T) {
	long := strings.Repeat("token ", 200)
	messages := []llm.ChatMessage{llm.SystemMessage("system"), llm.UserMessage("task")}
	for i := 0; i < 6; i++ {
		messages = append(messages, llm.AssistantMessage(long), llm.UserMessage(long))
	}

	trimmed, dropped := trimHistory(messages, 700)
	assert.Positive(t, dropped)
	assert.LessOrEqual(t, llm.EstimateMessageTokens(trimmed), 700)
	assert.Equal(t, "system", trimmed[0].Content)
	assert.Equal(t, "task", trimmed[1].Content)
	assert.Equal(t, llm.RoleAssistant, trimmed[2].Role)
	assert.Len(t, messages, 14)

	same, dropped := trimHistory(messages, 0)
	assert.Zero(t, dropped)
	assert.Len(t, same, 14)
}

func TestSystemPrompt(t *testing.T) {
	m, root := newWorkspace(t, nil)
	s, err := NewBuilder(llm.NewScripted(), m).Instructions("Always run go vet.").Build()
	require.NoError(t, err)

	prompt := s.systemPrompt
	assert.Contains(t, prompt, "## read_file_range")
	assert.NotContains(t, prompt, "## browser_action")
	assert.Contains(t, prompt, filepath.ToSlash(root))
	assert.True(t, strings.HasSuffix(prompt, "Always run go vet.\n"))
	assert.Contains(t, prompt, "<"+string(model.AttemptCompletion)+">")
}

func TestSessionLogsStrayTags(t *testing.T) {
	m, _ := newWorkspace(t, map[string]string{"test.txt": fiveLines})
	provider := llm.NewScripted("<thinking>Nothing to change.</thinking>\n" + completionReply)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := NewBuilder(provider, m).Logger(logger).Build()
	require.NoError(t, err)

	resp := s.Run(context.Background(), "Check the file")
	require.True(t, resp.IsSuccess(), resp.Error)
	assert.Contains(t, logs.String(), "tags left as narrative")
	assert.Contains(t, logs.String(), "kind=ParseAmbiguity")
	assert.Contains(t, logs.String(), "thinking")
}
