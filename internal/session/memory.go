package session

import (
	"context"
	"sync"
)

// MemoryStore is the default in-process store. Keys are independent: lookups
// and creations for disjoint sessions never contend on a shared lock.
type MemoryStore struct {
	sessions sync.Map // storeKey -> *Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored session, or (nil, nil) when absent.
func (m *MemoryStore) Get(ctx context.Context, app, userID, id string) (*Session, error) {
	if v, ok := m.sessions.Load(storeKey(app, userID, id)); ok {
		return v.(*Session), nil
	}
	return nil, nil
}

// Create stores a new session. Concurrent creation for the same key yields a
// single session: the first create wins and later creates return it.
func (m *MemoryStore) Create(ctx context.Context, app, userID, id string, state map[string]interface{}) (*Session, error) {
	s := NewSession(app, userID, id, state)
	actual, _ := m.sessions.LoadOrStore(storeKey(app, userID, id), s)
	return actual.(*Session), nil
}

// ApplyState merges a delta into the session state, latest wins per key.
func (m *MemoryStore) ApplyState(ctx context.Context, app, userID, id string, delta map[string]interface{}) error {
	v, ok := m.sessions.Load(storeKey(app, userID, id))
	if !ok {
		return nil
	}
	v.(*Session).Apply(delta)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
