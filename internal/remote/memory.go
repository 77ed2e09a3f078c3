package remote

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and local runs. Change
// events dispatch synchronously from the writing goroutine.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document

	subMu  sync.RWMutex
	subs   map[int]subscription
	nextID int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		subs:        make(map[int]subscription),
	}
}

func (s *MemoryStore) ListDocuments(_ context.Context, collection string, filters []Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.collections[collection] {
		if matches(doc, filters) {
			docs = append(docs, cloneDoc(doc))
		}
	}
	// Stable order for deterministic tests.
	sortByCreatedAt(docs)
	return docs, nil
}

func (s *MemoryStore) CreateDocument(_ context.Context, collection, id string, fields map[string]any) (Document, error) {
	now := time.Now().UTC()
	doc := Document{ID: id, Fields: cloneFields(fields), CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	s.collections[collection][id] = doc
	s.mu.Unlock()

	s.publish(Event{Collection: collection, Action: ActionCreate, Document: cloneDoc(doc)})
	return cloneDoc(doc), nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, collection, id string, fields map[string]any) (Document, error) {
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return Document{}, ErrNotFound
	}
	for k, v := range fields {
		doc.Fields[k] = v
	}
	doc.UpdatedAt = time.Now().UTC()
	s.collections[collection][id] = doc
	s.mu.Unlock()

	s.publish(Event{Collection: collection, Action: ActionUpdate, Document: cloneDoc(doc)})
	return cloneDoc(doc), nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, collection, id string) error {
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if ok {
		delete(s.collections[collection], id)
	}
	s.mu.Unlock()

	if ok {
		s.publish(Event{Collection: collection, Action: ActionDelete, Document: cloneDoc(doc)})
	}
	return nil
}

func (s *MemoryStore) Subscribe(collections []string, handler Handler) (func(), error) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	set := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		set[c] = struct{}{}
	}
	s.subs[id] = subscription{collections: set, handler: handler}
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}, nil
}

func (s *MemoryStore) publish(event Event) {
	s.subMu.RLock()
	handlers := make([]Handler, 0, len(s.subs))
	for _, sub := range s.subs {
		if _, ok := sub.collections[event.Collection]; ok {
			handlers = append(handlers, sub.handler)
		}
	}
	s.subMu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		v, ok := doc.Fields[f.Field]
		if !ok || !looseEqual(v, f.Value) {
			return false
		}
	}
	return true
}

// looseEqual compares field values the way a jsonb store would: numbers
// compare by value regardless of Go type.
func looseEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func cloneDoc(doc Document) Document {
	doc.Fields = cloneFields(doc.Fields)
	return doc
}

func sortByCreatedAt(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
}
