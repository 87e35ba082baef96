package storage

import (
	"context"
	"testing"
	"time"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/llm"
)

func TestMemoryStoreSaveAndLoadCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	history := []llm.ChatMessage{llm.UserMessage("Hello"), llm.AssistantMessage("Hi there")}
	if err := store.Save(ctx, "s1", history); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	history[0].Content = "changed"

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Content != "Hello" {
		t.Fatalf("unexpected history: %+v", loaded)
	}

	loaded[1].Content = "changed"
	again, _ := store.Load(ctx, "s1")
	if again[1].Content != "Hi there" {
		t.Errorf("Load returned shared slice")
	}

	missing, err := store.Load(ctx, "nope")
	if err != nil || missing == nil || len(missing) != 0 {
		t.Errorf("expected empty non-nil history, got %v (%v)", missing, err)
	}
}

func TestMemoryStoreJournalUpsert(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := edit.Record{
		TransactionID: "tx1", SessionID: "s1", Path: "a.go", Change: "search_and_replace",
		State: edit.StateStaged, CreatedAt: created, UpdatedAt: created,
	}
	if err := store.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	rec.State = edit.StateCommitted
	rec.Diagnostics = []string{"a.go:1: unused"}
	rec.CreatedAt = created.Add(time.Hour)
	rec.UpdatedAt = created.Add(time.Hour)
	if err := store.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	records, err := store.Transactions(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].State != edit.StateCommitted {
		t.Errorf("expected committed, got %s", records[0].State)
	}
	if !records[0].CreatedAt.Equal(created) {
		t.Errorf("creation time overwritten: %v", records[0].CreatedAt)
	}
	if len(records[0].Diagnostics) != 1 {
		t.Errorf("diagnostics lost: %v", records[0].Diagnostics)
	}

	ok, _ := store.Exists(ctx, "s1")
	if !ok {
		t.Errorf("journal entry should create the session")
	}
}

func TestMemoryStoreDeleteDropsJournal(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Save(ctx, "s1", []llm.ChatMessage{llm.UserMessage("x")})
	_ = store.Record(ctx, edit.Record{TransactionID: "tx1", SessionID: "s1", Path: "a", State: edit.StateCommitted})
	_ = store.Record(ctx, edit.Record{TransactionID: "tx2", SessionID: "s2", Path: "b", State: edit.StateDiscarded})

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	all, _ := store.Transactions(ctx, "", 0)
	if len(all) != 1 || all[0].TransactionID != "tx2" {
		t.Fatalf("unexpected journal after delete: %+v", all)
	}

	// The index must follow the compacted slice.
	_ = store.Record(ctx, edit.Record{TransactionID: "tx2", SessionID: "s2", Path: "b", State: edit.StateFailed})
	all, _ = store.Transactions(ctx, "", 0)
	if len(all) != 1 || all[0].State != edit.StateFailed {
		t.Errorf("upsert after delete went wrong: %+v", all)
	}
}

// TestStoreBackendsAgree runs the same sequence against both backends.
func TestStoreBackendsAgree(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := NewSqliteInMemory(DriverPure)
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()
			ctx := context.Background()
			base := time.Now()

			if err := store.Save(ctx, "older", []llm.ChatMessage{llm.UserMessage("a")}); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			for i, id := range []string{"tx1", "tx2", "tx3"} {
				err := store.Record(ctx, edit.Record{
					TransactionID: id, SessionID: "older", Path: "f.go", Change: "write_to_file",
					State: edit.StateCommitted, CreatedAt: base.Add(time.Duration(i) * time.Second),
					UpdatedAt: base.Add(time.Duration(i) * time.Second),
				})
				if err != nil {
					t.Fatalf("Record failed: %v", err)
				}
			}

			recent, err := store.Transactions(ctx, "older", 2)
			if err != nil {
				t.Fatalf("Transactions failed: %v", err)
			}
			if len(recent) != 2 || recent[0].TransactionID != "tx2" || recent[1].TransactionID != "tx3" {
				t.Fatalf("expected tx2, tx3 oldest first, got %+v", recent)
			}

			sessions, err := store.Sessions(ctx)
			if err != nil {
				t.Fatalf("Sessions failed: %v", err)
			}
			if len(sessions) != 1 || sessions[0].Messages != 1 || sessions[0].Transactions != 3 {
				t.Fatalf("unexpected sessions: %+v", sessions)
			}
			if sessions[0].UpdatedAt == "" {
				t.Errorf("missing update time")
			}
		})
	}
}
