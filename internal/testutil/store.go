package testutil

import (
	"context"
	"errors"
	"maps"

	"github.com/roach88/modset/internal/codec"
	"github.com/roach88/modset/internal/tree"
)

// ErrInjected is returned by MemoryStore when a failure is injected.
var ErrInjected = errors.New("injected store failure")

// MemoryStore is an in-memory state store using the canonical codec.
type MemoryStore struct {
	data map[string]map[string]string

	// FailGet and FailSet make the matching call return ErrInjected.
	FailGet bool
	FailSet bool

	Gets int
	Sets int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// Get returns a copy of the namespace record.
func (m *MemoryStore) Get(_ context.Context, namespace string) (map[string]string, error) {
	m.Gets++
	if m.FailGet {
		return nil, ErrInjected
	}
	rec := maps.Clone(m.data[namespace])
	if rec == nil {
		rec = make(map[string]string)
	}
	return rec, nil
}

// Set replaces the namespace record. An empty record deletes it.
func (m *MemoryStore) Set(_ context.Context, namespace string, record map[string]string) error {
	m.Sets++
	if m.FailSet {
		return ErrInjected
	}
	if len(record) == 0 {
		delete(m.data, namespace)
		return nil
	}
	m.data[namespace] = maps.Clone(record)
	return nil
}

// Serialize implements the codec half of the store contract.
func (m *MemoryStore) Serialize(ids []tree.TrackingID) (string, error) {
	return codec.SerializeTrackingIDs(ids)
}

// Deserialize implements the codec half of the store contract.
func (m *MemoryStore) Deserialize(token string) ([]tree.TrackingID, error) {
	return codec.DeserializeTrackingIDs(token)
}

// Token returns the raw token stored for (namespace, node).
func (m *MemoryStore) Token(namespace string, node tree.ID) (string, bool) {
	tok, ok := m.data[namespace][string(node)]
	return tok, ok
}

// Put stores a raw token, bypassing the codec.
func (m *MemoryStore) Put(namespace string, node tree.ID, token string) {
	if m.data[namespace] == nil {
		m.data[namespace] = make(map[string]string)
	}
	m.data[namespace][string(node)] = token
}

// Namespaces returns how many namespaces hold data.
func (m *MemoryStore) Namespaces() int {
	return len(m.data)
}
