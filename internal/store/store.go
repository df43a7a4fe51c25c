// Package store defines the narrow document-store contract the services
// depend on and its drivers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by FindOne when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateKey is returned by Insert when a unique field collides.
	ErrDuplicateKey = errors.New("duplicate key")
)

// IDField is the document key holding the store-assigned identifier.
const IDField = "_id"

// Document is a schemaless record.
type Document map[string]any

// Filter selects documents by top-level field equality. An empty filter
// matches every document.
type Filter map[string]any

// Index declares the unique field of a collection.
type Index struct {
	Collection string
	Field      string
}

// Store is the record-store collaborator.
type Store interface {
	// Insert stores doc and returns its id. When doc carries an IDField it is
	// used as the id, otherwise one is generated.
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	FindAll(ctx context.Context, collection string) ([]Document, error)
	Ping(ctx context.Context) error
}

// Encode converts a tagged struct into a Document using its JSON field names.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills v from a Document using its JSON field names.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// normalize round-trips values through JSON so every driver compares the
// same representation (numbers as float64, times as strings).
func normalize[T ~map[string]any](m T) (T, error) {
	if m == nil {
		return T{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = T{}
	}
	return out, nil
}

func uniqueValue(doc Document, field string) (string, bool) {
	if field == "" {
		return "", false
	}
	val, ok := doc[field]
	if !ok || val == nil {
		return "", false
	}
	return fmt.Sprint(val), true
}

func indexMap(indexes []Index) map[string]string {
	out := make(map[string]string, len(indexes))
	for _, idx := range indexes {
		out[idx.Collection] = idx.Field
	}
	return out
}
