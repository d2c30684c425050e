package docstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Fields
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]Fields)}
}

// Seed is the YAML layout accepted by LoadSeed: collection -> id -> fields.
type Seed map[string]map[string]Fields

// LoadSeed reads a YAML seed file into the store, replacing documents with
// the same id.
func (m *MemoryStore) LoadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for collection, docs := range seed {
		for id, fields := range docs {
			if err := validKey(collection, id); err != nil {
				return fmt.Errorf("seed %s/%s: %w", collection, id, err)
			}
			m.collection(collection)[id] = fields.clone()
		}
	}
	return nil
}

// collection must be called with mu held for writing.
func (m *MemoryStore) collection(name string) map[string]Fields {
	c, ok := m.data[name]
	if !ok {
		c = make(map[string]Fields)
		m.data[name] = c
	}
	return c
}

func (m *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	if err := validKey(collection, id); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: fields.clone()}, nil
}

func (m *MemoryStore) Add(_ context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()
	if err := validKey(collection, id); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection(collection)[id] = fields.clone()
	return id, nil
}

func (m *MemoryStore) Set(_ context.Context, collection, id string, fields Fields) error {
	if err := validKey(collection, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection(collection)[id] = fields.clone()
	return nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, fields Fields) error {
	if err := validKey(collection, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	merged := current.clone()
	for k, v := range fields {
		merged[k] = v
	}
	m.data[collection][id] = merged
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if err := validKey(collection, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], id)
	return nil
}

func (m *MemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	if collection == "" {
		return nil, ErrInvalidCollection
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.data[collection]))
	for id, fields := range m.data[collection] {
		docs = append(docs, Document{ID: id, Fields: fields.clone()})
	}
	return docs, nil
}

func (m *MemoryStore) Find(_ context.Context, collection, field, value string) ([]Document, error) {
	if collection == "" {
		return nil, ErrInvalidCollection
	}
	if !validField(field) {
		return nil, ErrInvalidField
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []Document
	for id, fields := range m.data[collection] {
		if v, ok := fields[field].(string); ok && v == value {
			docs = append(docs, Document{ID: id, Fields: fields.clone()})
		}
	}
	return docs, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
