package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/llm"
)

// MemoryStore is a Store that lives only as long as the process. It backs
// runs without a database file.
type MemoryStore struct {
	mu       sync.RWMutex
	seq      int64
	sessions map[string]*memSession
	records  []edit.Record
	index    map[string]int // transaction ID -> records position
	now      func() time.Time
}

type memSession struct {
	messages []llm.ChatMessage
	updated  time.Time
	touched  int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memSession),
		index:    make(map[string]int),
		now:      time.Now,
	}
}

func (s *MemoryStore) session(id string) *memSession {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &memSession{messages: []llm.ChatMessage{}}
		s.sessions[id] = sess
		s.touch(sess)
	}
	return sess
}

func (s *MemoryStore) touch(sess *memSession) {
	s.seq++
	sess.touched = s.seq
	sess.updated = s.now().UTC()
}

// Save replaces the history of sessionID with a copy of history.
func (s *MemoryStore) Save(ctx context.Context, sessionID string, history []llm.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(sessionID)
	sess.messages = append([]llm.ChatMessage{}, history...)
	s.touch(sess)
	return nil
}

// Load returns a copy of the history of sessionID.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]llm.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []llm.ChatMessage{}, nil
	}
	return append([]llm.ChatMessage{}, sess.messages...), nil
}

// Delete drops the session and its journal entries.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.SessionID != sessionID {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	s.index = make(map[string]int, len(kept))
	for i, rec := range kept {
		s.index[rec.TransactionID] = i
	}
	return nil
}

// ListSessions lists session IDs, most recently updated first.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]string, error) {
	infos, err := s.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids, nil
}

// Sessions lists sessions with message and journal counts.
func (s *MemoryStore) Sessions(ctx context.Context) ([]SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range s.records {
		counts[rec.SessionID]++
	}

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.sessions[ids[i]], s.sessions[ids[j]]
		if a.touched != b.touched {
			return a.touched > b.touched
		}
		return ids[i] < ids[j]
	})

	infos := make([]SessionInfo, len(ids))
	for i, id := range ids {
		sess := s.sessions[id]
		infos[i] = SessionInfo{
			ID:           id,
			UpdatedAt:    sess.updated.Format(timeLayout),
			Messages:     len(sess.messages),
			Transactions: counts[id],
		}
	}
	return infos, nil
}

// Exists reports whether the session has history or journal entries.
func (s *MemoryStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[sessionID]
	return ok, nil
}

// Record upserts a journal entry keyed by transaction ID. The creation
// time of the first record is kept.
func (s *MemoryStore) Record(ctx context.Context, rec edit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.SessionID != "" {
		s.session(rec.SessionID)
	}
	rec.Diagnostics = append([]string(nil), rec.Diagnostics...)
	if i, ok := s.index[rec.TransactionID]; ok {
		rec.CreatedAt = s.records[i].CreatedAt
		s.records[i] = rec
		return nil
	}
	s.index[rec.TransactionID] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

// Transactions returns journal entries in the order they were first recorded.
func (s *MemoryStore) Transactions(ctx context.Context, sessionID string, limit int) ([]edit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []edit.Record{}
	for _, rec := range s.records {
		if sessionID == "" || rec.SessionID == sessionID {
			rec.Diagnostics = append([]string(nil), rec.Diagnostics...)
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Close is a no-op; the data goes with the process.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
