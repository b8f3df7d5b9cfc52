package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is one connection setting and the value SQLite reports once it
// is applied.
type pragma struct {
	name  string
	value string
	want  string
}

// sqlitePragmas are applied on every Open:
//   - WAL so leaderboard reads do not block a flush
//   - NORMAL synchronous, durable at checkpoint
//   - 5s busy timeout for a second process holding the lock
var sqlitePragmas = []pragma{
	{name: "journal_mode", value: "WAL", want: "wal"},
	{name: "synchronous", value: "NORMAL", want: "1"},
	{name: "busy_timeout", value: "5000", want: "5000"},
}

// migration upgrades the schema to version. Migrations run in order, each in
// its own transaction together with the user_version bump.
type migration struct {
	version int
	name    string
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		name:    "resource index for leaderboards",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_participants_resource ON participants(resource DESC, id)`,
	},
	{
		version: 2,
		name:    "clamp negative counters",
		stmt:    `UPDATE participants SET wins = MAX(wins, 0), losses = MAX(losses, 0) WHERE wins < 0 OR losses < 0`,
	},
}

// currentSchemaVersion is the user_version after every migration ran.
var currentSchemaVersion = migrations[len(migrations)-1].version

// SQLiteStore keeps participant records in a single SQLite table.
// It holds one connection, so statements are serialized.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// Open creates or opens the participant database at path, applies the
// connection pragmas and brings the schema up to date. Opening an
// up-to-date database changes nothing.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Pragmas are per connection; keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, opts: buildOptions(opts)}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	for _, p := range sqlitePragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	// SQLite ignores settings it cannot honour, e.g. WAL on an in-memory
	// database.
	if err := s.verifyPragmas(); err != nil {
		return fmt.Errorf("connection settings not in effect: %w", err)
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := s.migrate(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) schemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func (s *SQLiteStore) migrate(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.stmt); err != nil {
		return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// verifyPragmas reports the first pragma whose live value differs from what
// Open applied.
func (s *SQLiteStore) verifyPragmas() error {
	for _, p := range sqlitePragmas {
		if err := s.verifyPragma(p.name, p.want); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
