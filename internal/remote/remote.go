// Package remote defines the document-store contract the cart and board
// subsystems persist through. The contract mirrors a hosted document
// database: collections of schemaless documents, equality filters, and a
// change feed keyed by collection.
package remote

import (
	"context"
	"errors"
	"time"
)

// Collection names used by this service.
const (
	CollectionCarts    = "carts"
	CollectionBoards   = "customization_boards"
	CollectionBranches = "branches"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one stored row. Fields are schemaless; each consumer owns
// a single decode function for its row shape.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter is an equality predicate on a document field.
type Filter struct {
	Field string
	Value any
}

// Equal builds an equality filter.
func Equal(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Action is a change-feed event kind.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is one change-feed notification. For deletes only the id is
// guaranteed; Fields carries whatever the store knew at publish time.
type Event struct {
	Collection string
	Action     Action
	Document   Document
}

// Handler receives change-feed events. Handlers must not block: stores
// may dispatch from their listen loop.
type Handler func(Event)

// Store is the persistence contract consumed by this subsystem.
type Store interface {
	ListDocuments(ctx context.Context, collection string, filters []Filter) ([]Document, error)
	CreateDocument(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	DeleteDocument(ctx context.Context, collection, id string) error

	// Subscribe registers a handler for change events on the given
	// collections and returns an unsubscribe func.
	Subscribe(collections []string, handler Handler) (func(), error)
}

// String reads a string field, tolerating absence.
func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Float reads a numeric field. JSON decoding yields float64; ints are
// tolerated for in-memory stores.
func (d Document) Float(field string) float64 {
	switch v := d.Fields[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Int reads an integer field.
func (d Document) Int(field string) int {
	return int(d.Float(field))
}

// Bool reads a boolean field.
func (d Document) Bool(field string) bool {
	b, _ := d.Fields[field].(bool)
	return b
}
