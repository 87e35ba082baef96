// Package storage provides SQLite conversation and edit journal storage.
//
// Information Hiding:
// - SQLite connection management and driver choice hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/llm"
)

// Database drivers. DriverCgo is github.com/mattn/go-sqlite3, DriverPure is
// modernc.org/sqlite.
const (
	DriverCgo  = "sqlite3"
	DriverPure = "sqlite"
)

// SqliteStorage implements ConversationStorage and edit.Journal using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db     *sql.DB
	driver string
}

// OpenSqlite opens or creates a SQLite database at the given path with the
// named driver. Creates parent directories if they don't exist.
func OpenSqlite(path, driver string) (*SqliteStorage, error) {
	if driver == "" {
		driver = DriverPure
	}
	if driver != DriverCgo && driver != DriverPure {
		return nil, fmt.Errorf("unknown sqlite driver: %s", driver)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	storage := &SqliteStorage{db: db, driver: driver}
	if err := storage.init(true); err != nil {
		db.Close()
		return nil, err
	}
	return storage, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory(driver string) (*SqliteStorage, error) {
	if driver == "" {
		driver = DriverPure
	}
	db, err := sql.Open(driver, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	storage := &SqliteStorage{db: db, driver: driver}
	if err := storage.init(false); err != nil {
		db.Close()
		return nil, err
	}
	return storage, nil
}

// Driver returns the database driver name.
func (s *SqliteStorage) Driver() string {
	return s.driver
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) init(file bool) error {
	pragmas := []string{`PRAGMA foreign_keys=ON;`, `PRAGMA busy_timeout=5000;`}
	if file {
		pragmas = append(pragmas, `PRAGMA journal_mode=WAL;`)
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	if err := s.createSchema(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE,
			UNIQUE(session_id, message_index)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session
		ON messages(session_id, message_index);

		CREATE TABLE IF NOT EXISTS transactions (
			transaction_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL,
			change_kind TEXT NOT NULL,
			state TEXT NOT NULL,
			diff TEXT NOT NULL DEFAULT '',
			diagnostics TEXT NOT NULL DEFAULT '[]',
			manual_edits TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_session
		ON transactions(session_id, created_at);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SqliteStorage) ensureSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (session_id) VALUES (?)",
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

// Save saves conversation history for a session.
func (s *SqliteStorage) Save(ctx context.Context, sessionID string, history []llm.ChatMessage) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (session_id, message_index, role, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range history {
		_, err = stmt.ExecContext(ctx, sessionID, i, msg.Role, msg.Content)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = datetime('now') WHERE session_id = ?",
		sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Load loads conversation history for a session.
// Returns empty slice if session doesn't exist.
func (s *SqliteStorage) Load(ctx context.Context, sessionID string) ([]llm.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY message_index ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []llm.ChatMessage{}
	for rows.Next() {
		var msg llm.ChatMessage
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// Delete deletes conversation history and the edit journal of a session.
func (s *SqliteStorage) Delete(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		"DELETE FROM messages WHERE session_id = ?",
		"DELETE FROM transactions WHERE session_id = ?",
		"DELETE FROM sessions WHERE session_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return tx.Commit()
}

// ListSessions lists all session IDs, most recently updated first.
func (s *SqliteStorage) ListSessions(ctx context.Context) ([]string, error) {
	infos, err := s.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	sessions := make([]string, len(infos))
	for i, info := range infos {
		sessions[i] = info.ID
	}
	return sessions, nil
}

// Sessions lists sessions with message and transaction counts, most
// recently updated first.
func (s *SqliteStorage) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.session_id),
			(SELECT COUNT(*) FROM transactions t WHERE t.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.updated_at DESC, s.session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.UpdatedAt, &info.Messages, &info.Transactions); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Exists checks if a session exists.
func (s *SqliteStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE session_id = ?",
		sessionID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}

	return count > 0, nil
}

// Record upserts a transaction journal entry keyed by transaction ID.
func (s *SqliteStorage) Record(ctx context.Context, rec edit.Record) error {
	if rec.SessionID != "" {
		if err := s.ensureSession(ctx, rec.SessionID); err != nil {
			return err
		}
	}

	diagnostics, err := json.Marshal(nonNil(rec.Diagnostics))
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(transaction_id, session_id, path, change_kind, state, diff, diagnostics, manual_edits, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			state = excluded.state,
			diff = excluded.diff,
			diagnostics = excluded.diagnostics,
			manual_edits = excluded.manual_edits,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		rec.TransactionID, rec.SessionID, rec.Path, rec.Change, string(rec.State),
		rec.Diff, string(diagnostics), rec.ManualEdits, rec.Error,
		rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// Transactions returns the journal of a session in creation order. An
// empty sessionID returns entries of every session. A positive limit keeps
// only the most recent entries.
func (s *SqliteStorage) Transactions(ctx context.Context, sessionID string, limit int) ([]edit.Record, error) {
	query := `
		SELECT transaction_id, session_id, path, change_kind, state, diff, diagnostics, manual_edits, error, created_at, updated_at
		FROM transactions`
	var args []interface{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	records := []edit.Record{}
	for rows.Next() {
		var (
			rec                edit.Record
			state, diagnostics string
			created, updated   int64
		)
		if err := rows.Scan(&rec.TransactionID, &rec.SessionID, &rec.Path, &rec.Change, &state,
			&rec.Diff, &diagnostics, &rec.ManualEdits, &rec.Error, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		rec.State = edit.State(state)
		if err := json.Unmarshal([]byte(diagnostics), &rec.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics: %w", err)
		}
		if len(rec.Diagnostics) == 0 {
			rec.Diagnostics = nil
		}
		rec.CreatedAt = time.UnixMilli(created)
		rec.UpdatedAt = time.UnixMilli(updated)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	// Oldest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Verify SqliteStorage implements the storage contracts.
var _ Store = (*SqliteStorage)(nil)
