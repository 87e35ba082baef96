package agent

import (
	"context"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/tools"
)

// Decision is a reviewer's verdict on a staged edit.
type Decision struct {
	Approve  bool
	Feedback string
}

// Reviewer is the human in the loop. It judges staged edits, answers
// follow-up questions, and confirms shell commands.
type Reviewer interface {
	tools.Asker
	tools.Approver
	ReviewEdit(ctx context.Context, tx edit.Transaction) (Decision, error)
}

// AutoReviewer approves every edit and command and answers no questions.
type AutoReviewer struct {
	// Answer is returned for every follow-up question.
	Answer string
}

// ReviewEdit implements Reviewer.
func (a AutoReviewer) ReviewEdit(ctx context.Context, tx edit.Transaction) (Decision, error) {
	return Decision{Approve: true}, nil
}

// Ask implements tools.Asker.
func (a AutoReviewer) Ask(ctx context.Context, question string) (string, error) {
	return a.Answer, nil
}

// ApproveCommand implements tools.Approver.
func (a AutoReviewer) ApproveCommand(ctx context.Context, command string) (bool, error) {
	return true, nil
}

var _ Reviewer = AutoReviewer{}
