package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"participants",
	).Scan(&name)
	if err != nil {
		t.Errorf("participants table not found after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &SQLiteStore{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas_Applied(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragmas(); err != nil {
		t.Error(err)
	}
}

func TestOpen_RejectsUnsupportedJournalMode(t *testing.T) {
	_, err := Open(":memory:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal_mode")
}

func TestPragma_UserVersion(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("user_version", "2"); err != nil {
		t.Error(err)
	}
}

func TestMigrations_UpgradeV1Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// Build a version 1 database holding a row written before counters
	// were kept non-negative.
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO participants (id, resource, wins, losses) VALUES ('alice', 20, -3, 4)`)
	require.NoError(t, err)
	_, err = s.db.Exec(`PRAGMA user_version = 1`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.verifyPragma("user_version", "2"))

	// Load already reads negatives as zero, so check the stored row.
	var wins, losses int
	require.NoError(t, s.db.QueryRow(`SELECT wins, losses FROM participants WHERE id = 'alice'`).Scan(&wins, &losses))
	assert.Equal(t, 0, wins)
	assert.Equal(t, 4, losses)
}

func TestMigrations_Ordered(t *testing.T) {
	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].version, migrations[i-1].version, "migration %q", migrations[i].name)
	}
	assert.Equal(t, migrations[len(migrations)-1].version, currentSchemaVersion)
}

func TestSQLite_SaveLoadRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestRecord("alice")

	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestSQLite_SaveOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("alice")
	require.NoError(t, s.Save(ctx, rec))

	rec.Resource = 40
	rec.Wins = 9
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Resource)
	assert.Equal(t, 9, got.Wins)
}

func TestSQLite_LoadMissing(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Load(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsPersistenceError(err))
}

func TestSQLite_NullResourceUsesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithDefaultResource(func() int { return 24 }))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec(`INSERT INTO participants (id, wins) VALUES ('bob', 2)`)
	require.NoError(t, err)

	got, err := s.Load(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 24, got.Resource)
	assert.Equal(t, 2, got.Wins)
	assert.Zero(t, got.Losses)
}

func TestSQLite_List(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	for _, id := range []string{"carol", "alice", "bob"} {
		require.NoError(t, s.Save(ctx, createTestRecord(id)))
	}

	ids, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, ids)
}

func TestSQLite_RejectsInvalidID(t *testing.T) {
	s := createTestStore(t)
	err := s.Save(context.Background(), createTestRecord("../escape"))
	require.Error(t, err)
	assert.True(t, IsInvalidID(err))
}
