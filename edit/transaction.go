package edit

import (
	"context"
	"time"
)

// State is the lifecycle state of a transaction.
type State string

const (
	StateIdle      State = "idle"
	StateStaged    State = "staged"
	StateCommitted State = "committed"
	StateDiscarded State = "discarded"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateDiscarded || s == StateFailed
}

// Transaction is one proposed mutation of one file. Values handed out by the
// Manager are copies.
type Transaction struct {
	ID string
	// Path is the absolute file path and the transaction's identity key.
	Path string
	// Display is Path relative to the working root.
	Display  string
	Change   string
	Original string
	Proposed string
	Diff     string
	// Created is set when the file did not exist before staging.
	Created    bool
	State      State
	CreatedAt  time.Time
	ResolvedAt time.Time

	surface Surface
}

// CommitResult describes a committed transaction.
type CommitResult struct {
	Transaction  Transaction
	Diagnostics  []string
	ManualEdits  string
	FinalContent string
}

// Record is a journal entry written on every transaction state change.
type Record struct {
	TransactionID string
	SessionID     string
	Path          string
	Change        string
	State         State
	Diff          string
	Diagnostics   []string
	ManualEdits   string
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Journal persists transaction records.
type Journal interface {
	Record(ctx context.Context, rec Record) error
}
