package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFileStore creates a new file store in a temp directory.
func createTestFileStore(t *testing.T, opts ...Option) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "playerdata"), opts...)
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	return s
}

// createTestRecord creates a record with every persisted field populated.
func createTestRecord(id string) Record {
	return Record{
		ID:               id,
		Resource:         18,
		LastEliminatedAt: 1700000000000,
		Wins:             3,
		Losses:           1,
		LastUpdated:      1700000000500,
	}
}
