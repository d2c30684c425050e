// Package docstore is the document store behind every persisted entity.
//
// Documents are schemaless field maps grouped in named collections. Typed
// encoding and decoding lives one layer up, in internal/storage.
package docstore

import (
	"context"
	"errors"
	"maps"
)

// Collections used by the application.
const (
	CollectionUsers       = "users"
	CollectionCredentials = "credentials"
	CollectionSales       = "sales"
	CollectionExpenses    = "expenses"
	CollectionTasks       = "calendar_tasks"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrInvalidID         = errors.New("invalid document id")
	ErrInvalidField      = errors.New("invalid field name")
)

// Fields is the loosely typed content of a document.
type Fields map[string]any

// Document is one stored record.
type Document struct {
	ID     string
	Fields Fields
}

// Store is the document store collaborator.
//
// List has no ordering guarantee. Delete of a missing document succeeds.
// Update merges fields into an existing document and fails with ErrNotFound
// when it does not exist.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	Set(ctx context.Context, collection, id string, fields Fields) error
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
	// Find returns the documents whose string field equals value.
	Find(ctx context.Context, collection, field, value string) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// String returns the field as a string, or "" when absent or not a string.
func (f Fields) String(key string) string {
	if s, ok := f[key].(string); ok {
		return s
	}
	return ""
}

func (f Fields) clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

func validKey(collection, id string) error {
	if collection == "" {
		return ErrInvalidCollection
	}
	if id == "" {
		return ErrInvalidID
	}
	return nil
}

// validField accepts plain top-level field names, which SQLite can embed in
// a JSON path.
func validField(field string) bool {
	if field == "" {
		return false
	}
	for i, r := range field {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
