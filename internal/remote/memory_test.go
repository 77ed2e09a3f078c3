package remote

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreCRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.CreateDocument(ctx, "things", "t1", map[string]any{
		"name": "first", "count": 1,
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if created.ID != "t1" || created.String("name") != "first" {
		t.Fatalf("created document mismatch: %+v", created)
	}

	updated, err := store.UpdateDocument(ctx, "things", "t1", map[string]any{"count": 2})
	if err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if updated.Int("count") != 2 || updated.String("name") != "first" {
		t.Fatalf("update must merge fields, got %+v", updated.Fields)
	}

	if _, err := store.UpdateDocument(ctx, "things", "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.DeleteDocument(ctx, "things", "t1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	// Deleting an absent document is idempotent.
	if err := store.DeleteDocument(ctx, "things", "t1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	docs, err := store.ListDocuments(ctx, "things", nil)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty collection, got %d docs", len(docs))
	}
}

func TestMemoryStoreFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rows := []map[string]any{
		{"user": "a", "open": true, "qty": 1},
		{"user": "a", "open": false, "qty": 2},
		{"user": "b", "open": true, "qty": 3},
	}
	for i, fields := range rows {
		id := string(rune('x' + i))
		if _, err := store.CreateDocument(ctx, "rows", id, fields); err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
	}

	docs, err := store.ListDocuments(ctx, "rows", []Filter{
		Equal("user", "a"), Equal("open", true),
	})
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Int("qty") != 1 {
		t.Fatalf("expected the single open row for user a, got %+v", docs)
	}

	// Numbers compare by value across Go types, as a jsonb store would.
	docs, err = store.ListDocuments(ctx, "rows", []Filter{Equal("qty", float64(3))})
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].String("user") != "b" {
		t.Fatalf("expected numeric filter to match int field, got %+v", docs)
	}
}

func TestMemoryStoreSubscribe(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var events []Event
	unsub, err := store.Subscribe([]string{"carts"}, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := store.CreateDocument(ctx, "carts", "c1", map[string]any{"qty": 1}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if _, err := store.UpdateDocument(ctx, "carts", "c1", map[string]any{"qty": 2}); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	// A different collection must not reach this subscriber.
	if _, err := store.CreateDocument(ctx, "boards", "b1", nil); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := store.DeleteDocument(ctx, "carts", "c1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	want := []Action{ActionCreate, ActionUpdate, ActionDelete}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, action := range want {
		if events[i].Action != action || events[i].Collection != "carts" {
			t.Fatalf("event %d mismatch: %+v", i, events[i])
		}
	}

	unsub()
	if _, err := store.CreateDocument(ctx, "carts", "c2", nil); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if len(events) != len(want) {
		t.Fatal("unsubscribed handler must not receive events")
	}
}

func TestMemoryStoreIsolatesReturnedDocuments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.CreateDocument(ctx, "rows", "r1", map[string]any{"n": 1}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	docs, _ := store.ListDocuments(ctx, "rows", nil)
	docs[0].Fields["n"] = 99

	again, _ := store.ListDocuments(ctx, "rows", nil)
	if again[0].Int("n") != 1 {
		t.Fatal("mutating a returned document must not leak into the store")
	}
}

func TestDocumentAccessors(t *testing.T) {
	doc := Document{Fields: map[string]any{
		"s": "text", "f": 1.5, "i": float64(7), "b": true,
	}}
	if doc.String("s") != "text" || doc.String("missing") != "" {
		t.Fatal("String accessor mismatch")
	}
	if doc.Float("f") != 1.5 || doc.Float("missing") != 0 {
		t.Fatal("Float accessor mismatch")
	}
	if doc.Int("i") != 7 {
		t.Fatal("Int accessor must read json numbers")
	}
	if !doc.Bool("b") || doc.Bool("missing") {
		t.Fatal("Bool accessor mismatch")
	}
}
