package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

type memoryCollection struct {
	docs   []Document
	unique map[string]string
}

// Memory is an in-process Store guarded by a single mutex.
type Memory struct {
	mu          sync.RWMutex
	indexes     map[string]string
	collections map[string]*memoryCollection
}

// NewMemory returns an empty in-memory store enforcing indexes.
func NewMemory(indexes ...Index) *Memory {
	return &Memory{
		indexes:     indexMap(indexes),
		collections: make(map[string]*memoryCollection),
	}
}

func (m *Memory) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized, err := normalize(doc)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[collection]
	if !ok {
		coll = &memoryCollection{unique: make(map[string]string)}
		m.collections[collection] = coll
	}

	id, _ := normalized[IDField].(string)
	if id == "" {
		id = uuid.NewString()
	}
	for _, existing := range coll.docs {
		if existing[IDField] == id {
			return "", ErrDuplicateKey
		}
	}

	key, hasKey := uniqueValue(normalized, m.indexes[collection])
	if hasKey {
		if _, taken := coll.unique[key]; taken {
			return "", ErrDuplicateKey
		}
		coll.unique[key] = id
	}

	normalized[IDField] = id
	coll.docs = append(coll.docs, normalized)
	return id, nil
}

func (m *Memory) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	normalized, err := normalize(filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	for _, doc := range coll.docs {
		if matches(doc, normalized) {
			return copyDocument(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindAll(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collection]
	if !ok {
		return []Document{}, nil
	}
	out := make([]Document, 0, len(coll.docs))
	for _, doc := range coll.docs {
		out = append(out, copyDocument(doc))
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func matches(doc Document, filter Filter) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
