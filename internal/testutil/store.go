package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/lifeledger/internal/store"
)

// MemoryStore is an in-memory record store that counts calls and can be
// told to fail. Records are copied on the way in and out.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]store.Record
	loads   map[string]int
	saves   map[string]int

	// FailSave, when non-nil, is returned by Save instead of storing.
	FailSave error
	// FailLoad, when non-nil, is returned by Load for existing and missing ids.
	FailLoad error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]store.Record),
		loads:   make(map[string]int),
		saves:   make(map[string]int),
	}
}

// Load returns the stored record or a not-found error.
func (m *MemoryStore) Load(ctx context.Context, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[id]++

	if m.FailLoad != nil {
		return store.Record{}, &store.PersistenceError{Op: "load", ID: id, Err: m.FailLoad}
	}
	rec, ok := m.records[id]
	if !ok {
		return store.Record{}, &store.PersistenceError{Op: "load", ID: id, Err: store.ErrRecordNotFound}
	}
	return rec, nil
}

// Save stores rec, replacing any previous version.
func (m *MemoryStore) Save(ctx context.Context, rec store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[rec.ID]++

	if m.FailSave != nil {
		return &store.PersistenceError{Op: "save", ID: rec.ID, Err: m.FailSave}
	}
	m.records[rec.ID] = rec
	return nil
}

// List returns every stored id in order.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.records))
	for id := range m.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Put seeds a record without counting a save.
func (m *MemoryStore) Put(rec store.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
}

// Get returns the stored record, bypassing counters.
func (m *MemoryStore) Get(id string) (store.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Loads returns how many times Load was called for id.
func (m *MemoryStore) Loads(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[id]
}

// Saves returns how many times Save was called for id.
func (m *MemoryStore) Saves(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[id]
}

// SetFailSave changes FailSave under the store lock.
func (m *MemoryStore) SetFailSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailSave = err
}
