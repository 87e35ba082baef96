// Package storage keeps session history, the edit journal, and workspace files.
//
// Information Hiding:
// - Backend choice (SQLite file, in-process memory) hidden behind Store
// - Message ordering and journal upserts handled by each backend

package storage

import (
	"context"
	"io"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/llm"
)

// ConversationStorage holds the message history of sessions.
type ConversationStorage interface {
	// Save replaces the history of sessionID.
	Save(ctx context.Context, sessionID string, history []llm.ChatMessage) error

	// Load returns the history of sessionID, or an empty slice when the
	// session is unknown.
	Load(ctx context.Context, sessionID string) ([]llm.ChatMessage, error)

	// Delete removes a session with its history and journal.
	Delete(ctx context.Context, sessionID string) error

	ListSessions(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
}

// SessionInfo summarizes a stored session.
type SessionInfo struct {
	ID           string
	UpdatedAt    string
	Messages     int
	Transactions int
}

// Store is a full session backend: history, edit journal, and the listings
// behind the history command.
type Store interface {
	ConversationStorage
	edit.Journal
	io.Closer

	// Sessions lists sessions, most recently updated first.
	Sessions(ctx context.Context) ([]SessionInfo, error)

	// Transactions returns journal entries oldest first. An empty sessionID
	// selects every session; a positive limit keeps the most recent entries.
	Transactions(ctx context.Context, sessionID string, limit int) ([]edit.Record, error)
}

// timeLayout matches SQLite's datetime('now').
const timeLayout = "2006-01-02 15:04:05"
