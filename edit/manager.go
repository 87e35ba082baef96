// Package edit stages, reviews, and commits file edits one transaction at a
// time per file.
//
// Information Hiding:
// - Path resolution against the working root hidden
// - Surface entry and exit actions hidden inside Stage, Commit, and Discard
// - Failure handling with best-effort revert hidden
// - Journal recording hidden
package edit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Manager owns every open transaction of one session. It is driven from a
// single flow and is not safe for concurrent use; one Staged transaction per
// path is the only exclusion it enforces.
type Manager struct {
	root      string
	store     Storage
	surfaces  SurfaceFactory
	journal   Journal
	logger    *slog.Logger
	sessionID string
	now       func() time.Time

	staged map[string]*Transaction
}

// Option configures a Manager.
type Option func(*Manager)

// WithJournal records every state change in j.
func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSessionID tags journal records with id.
func WithSessionID(id string) Option {
	return func(m *Manager) { m.sessionID = id }
}

// NewManager creates a manager for files under root.
func NewManager(root string, store Storage, surfaces SurfaceFactory, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("edit: storage is required")
	}
	if surfaces == nil {
		return nil, errors.New("edit: surface factory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve working root: %w", err)
	}

	m := &Manager{
		root:     filepath.Clean(abs),
		store:    store,
		surfaces: surfaces,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		staged:   make(map[string]*Transaction),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Root returns the absolute working root.
func (m *Manager) Root() string {
	return m.root
}

// Storage returns the underlying store.
func (m *Manager) Storage() Storage {
	return m.store
}

// Resolve turns path into an absolute path under the root and a display
// path relative to it.
func (m *Manager) Resolve(path string) (abs, display string, err error) {
	if strings.TrimSpace(path) == "" {
		return "", "", &Error{Kind: ErrMissingParameter, Param: "path"}
	}
	abs = path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(m.root, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", &Error{Kind: ErrPathOutsideRoot, Path: path}
	}
	return abs, filepath.ToSlash(rel), nil
}

// ReadFile returns the content of path. It does not open a transaction.
func (m *Manager) ReadFile(ctx context.Context, path string) (string, error) {
	abs, display, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	content, exists, err := m.load(ctx, abs, display)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", &Error{Kind: ErrFileNotFound, Path: display}
	}
	return content, nil
}

// ReadRange extracts lines start..end of path. Zero bounds are open. It
// does not open a transaction.
func (m *Manager) ReadRange(ctx context.Context, path string, start, end int) (Range, error) {
	content, err := m.ReadFile(ctx, path)
	if err != nil {
		return Range{}, err
	}
	_, display, _ := m.Resolve(path)
	return ExtractRange(display, content, start, end)
}

// Stage computes the proposed content of path under change and presents it
// on a new surface. Parameter and range errors return before any surface
// call and leave no transaction behind.
func (m *Manager) Stage(ctx context.Context, path string, change Change) (Transaction, error) {
	abs, display, err := m.Resolve(path)
	if err != nil {
		return Transaction{}, err
	}
	if open, ok := m.staged[abs]; ok {
		return Transaction{}, &Error{Kind: ErrConcurrentTransaction, Path: display, TxID: open.ID}
	}

	original, exists, err := m.load(ctx, abs, display)
	if err != nil {
		return Transaction{}, err
	}
	if !exists {
		if c, ok := change.(creator); !ok || !c.creates() {
			return Transaction{}, &Error{Kind: ErrFileNotFound, Path: display}
		}
	}

	proposed, err := change.Apply(display, original)
	if err != nil {
		return Transaction{}, err
	}
	if exists && proposed == original {
		return Transaction{}, &Error{Kind: ErrNoChange, Path: display}
	}
	diff, err := UnifiedDiff(display, original, proposed)
	if err != nil {
		return Transaction{}, fmt.Errorf("diff %s: %w", display, err)
	}

	tx := &Transaction{
		ID:        uuid.NewString(),
		Path:      abs,
		Display:   display,
		Change:    change.Kind(),
		Original:  original,
		Proposed:  proposed,
		Diff:      diff,
		Created:   !exists,
		State:     StateStaged,
		CreatedAt: m.now(),
		surface:   m.surfaces(abs),
	}

	if err := m.present(ctx, tx); err != nil {
		err = m.fail(ctx, tx, &Error{Kind: ErrHostSurfaceFailure, Path: display, TxID: tx.ID, Err: err})
		return *tx, err
	}

	m.staged[abs] = tx
	m.logger.Info("edit staged", "tx", tx.ID, "path", display, "change", tx.Change)
	m.record(ctx, tx, nil, nil)
	return *tx, nil
}

// present runs the entry actions of the Staged state.
func (m *Manager) present(ctx context.Context, tx *Transaction) error {
	s := tx.surface
	if s == nil {
		return errors.New("no surface")
	}
	if !s.IsEditing() {
		snap := Snapshot{Path: tx.Path, Content: tx.Original, Exists: !tx.Created}
		if err := s.Open(ctx, snap); err != nil {
			return fmt.Errorf("open: %w", err)
		}
	}
	if err := s.Update(ctx, tx.Proposed, true); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if err := s.Settle(ctx); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	if err := s.ScrollToFirstDifference(ctx); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// Commit writes the accepted proposal of path to storage.
func (m *Manager) Commit(ctx context.Context, path string) (CommitResult, error) {
	tx, err := m.stagedFor(path)
	if err != nil {
		return CommitResult{}, err
	}

	saved, err := tx.surface.SaveChanges(ctx)
	if err != nil {
		err = m.fail(ctx, tx, &Error{Kind: ErrHostSurfaceFailure, Path: tx.Display, TxID: tx.ID, Err: err})
		return CommitResult{Transaction: *tx}, err
	}
	if err := m.store.Write(ctx, tx.Path, []byte(saved.FinalContent)); err != nil {
		err = m.fail(ctx, tx, &Error{Kind: ErrStorageWriteFailure, Path: tx.Display, TxID: tx.ID, Err: err})
		return CommitResult{Transaction: *tx}, err
	}

	tx.State = StateCommitted
	tx.ResolvedAt = m.now()
	delete(m.staged, tx.Path)

	m.logger.Info("edit committed", "tx", tx.ID, "path", tx.Display,
		"manual_edits", saved.ManualEdits != "", "diagnostics", len(saved.Diagnostics))
	m.record(ctx, tx, &saved, nil)

	return CommitResult{
		Transaction:  *tx,
		Diagnostics:  saved.Diagnostics,
		ManualEdits:  saved.ManualEdits,
		FinalContent: saved.FinalContent,
	}, nil
}

// Discard rejects the proposal of path. Storage is not touched.
func (m *Manager) Discard(ctx context.Context, path string) (Transaction, error) {
	tx, err := m.stagedFor(path)
	if err != nil {
		return Transaction{}, err
	}

	if err := tx.surface.RevertChanges(ctx); err != nil {
		tx.State = StateFailed
		tx.ResolvedAt = m.now()
		delete(m.staged, tx.Path)
		e := &Error{Kind: ErrHostSurfaceFailure, Path: tx.Display, TxID: tx.ID, Err: err}
		m.logger.Warn("revert failed on discard", "tx", tx.ID, "path", tx.Display, "error", err)
		m.record(ctx, tx, nil, e)
		return *tx, e
	}

	tx.State = StateDiscarded
	tx.ResolvedAt = m.now()
	delete(m.staged, tx.Path)
	m.logger.Info("edit discarded", "tx", tx.ID, "path", tx.Display)
	m.record(ctx, tx, nil, nil)
	return *tx, nil
}

// DiscardAll rejects every staged transaction.
func (m *Manager) DiscardAll(ctx context.Context) error {
	var errs []error
	for _, tx := range m.Pending() {
		if _, err := m.Discard(ctx, tx.Path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Active returns the staged transaction for path, if any.
func (m *Manager) Active(path string) (Transaction, bool) {
	abs, _, err := m.Resolve(path)
	if err != nil {
		return Transaction{}, false
	}
	tx, ok := m.staged[abs]
	if !ok {
		return Transaction{}, false
	}
	return *tx, true
}

// Pending lists staged transactions, oldest first.
func (m *Manager) Pending() []Transaction {
	out := make([]Transaction, 0, len(m.staged))
	for _, tx := range m.staged {
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Path < out[j].Path
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *Manager) stagedFor(path string) (*Transaction, error) {
	abs, display, err := m.Resolve(path)
	if err != nil {
		return nil, err
	}
	tx, ok := m.staged[abs]
	if !ok {
		return nil, &Error{Kind: ErrNoActiveTransaction, Path: display}
	}
	return tx, nil
}

// load reads the current content of abs.
func (m *Manager) load(ctx context.Context, abs, display string) (string, bool, error) {
	exists, err := m.store.Exists(ctx, abs)
	if err != nil {
		return "", false, &Error{Kind: ErrStorageReadFailure, Path: display, Err: err}
	}
	if !exists {
		return "", false, nil
	}
	data, err := m.store.Read(ctx, abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &Error{Kind: ErrStorageReadFailure, Path: display, Err: err}
	}
	return string(data), true, nil
}

// fail moves tx to Failed after a best-effort revert. A revert failure is
// attached to e but never replaces it.
func (m *Manager) fail(ctx context.Context, tx *Transaction, e *Error) error {
	tx.State = StateFailed
	tx.ResolvedAt = m.now()
	delete(m.staged, tx.Path)

	if tx.surface != nil {
		if err := tx.surface.RevertChanges(context.WithoutCancel(ctx)); err != nil {
			e.RevertErr = err
			m.logger.Warn("revert after failure", "tx", tx.ID, "path", tx.Display, "error", err)
		}
	}
	m.logger.Error("edit failed", "tx", tx.ID, "path", tx.Display, "kind", string(e.Kind), "error", e.Err)
	m.record(ctx, tx, nil, e)
	return e
}

func (m *Manager) record(ctx context.Context, tx *Transaction, saved *SaveResult, txErr error) {
	if m.journal == nil {
		return
	}
	rec := Record{
		TransactionID: tx.ID,
		SessionID:     m.sessionID,
		Path:          tx.Display,
		Change:        tx.Change,
		State:         tx.State,
		Diff:          tx.Diff,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     m.now(),
	}
	if saved != nil {
		rec.Diagnostics = saved.Diagnostics
		rec.ManualEdits = saved.ManualEdits
	}
	if txErr != nil {
		rec.Error = txErr.Error()
	}
	if err := m.journal.Record(context.WithoutCancel(ctx), rec); err != nil {
		m.logger.Warn("journal record failed", "tx", tx.ID, "error", err)
	}
}
