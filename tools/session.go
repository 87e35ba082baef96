package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
)

// Asker puts a question to the user.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// AskFollowupTool forwards ask_followup_question to the user.
type AskFollowupTool struct {
	asker Asker
}

// NewAskFollowupTool creates an ask_followup_question handler.
func NewAskFollowupTool(asker Asker) *AskFollowupTool {
	return &AskFollowupTool{asker: asker}
}

// Metadata returns the tool metadata.
func (t *AskFollowupTool) Metadata() ToolMetadata {
	return grammar[model.AskFollowupQuestion]
}

// Execute asks the question and returns the answer.
func (t *AskFollowupTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	if t.asker == nil {
		return FailureResultf("no user is available to answer questions; proceed with reasonable assumptions"), nil
	}
	answer, err := t.asker.Ask(ctx, cmd.String(model.ParamQuestion))
	if err != nil {
		return FailureResultf("question could not be asked: %v", err), nil
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return SuccessResult("The user gave no answer."), nil
	}
	return SuccessResult(fmt.Sprintf("<answer>\n%s\n</answer>", answer)), nil
}

// CompletionTool ends a session with attempt_completion.
type CompletionTool struct{}

// NewCompletionTool creates an attempt_completion handler.
func NewCompletionTool() *CompletionTool {
	return &CompletionTool{}
}

// Metadata returns the tool metadata.
func (t *CompletionTool) Metadata() ToolMetadata {
	return grammar[model.AttemptCompletion]
}

// Execute returns the final result.
func (t *CompletionTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	result := cmd.String(model.ParamResult)
	if demo := strings.TrimSpace(cmd.String(model.ParamCommand)); demo != "" {
		result += "\n\nTo see the result, run: " + demo
	}
	return ToolResult{Output: result, Final: true}, nil
}

// UnsupportedTool recognizes a command this host cannot run.
type UnsupportedTool struct {
	name model.CommandName
}

// NewUnsupportedTool creates a handler rejecting name.
func NewUnsupportedTool(name model.CommandName) *UnsupportedTool {
	return &UnsupportedTool{name: name}
}

// Metadata returns the tool metadata.
func (t *UnsupportedTool) Metadata() ToolMetadata {
	return grammar[t.name]
}

// Execute always fails.
func (t *UnsupportedTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	return FailureResult(&edit.Error{Kind: edit.ErrUnsupportedCommand, Command: string(t.name)}), nil
}

// Hidden keeps the command out of prompts.
func (t *UnsupportedTool) Hidden() bool { return true }
