package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/lifeledger/internal/config"
	"github.com/roach88/lifeledger/internal/ledger"
	"github.com/roach88/lifeledger/internal/store"
)

// sqliteFile is the database name used by the sqlite backend inside the
// data directory.
const sqliteFile = "lifeledger.db"

// recordStore is what the CLI needs from a backend.
type recordStore interface {
	ledger.RecordStore
	List(ctx context.Context) ([]string, error)
	Close() error
}

// session bundles the configuration, backend and ledger a command works on.
type session struct {
	provider *config.FileProvider
	store    recordStore
	ledger   *ledger.Ledger
}

// openSession loads the configuration and opens the configured backend.
// Failures are command errors.
func openSession(opts *RootOptions, logOut io.Writer) (*session, error) {
	provider, err := config.NewFileProvider(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if provider.Current().Debug && !opts.Verbose {
		setupLogging(logOut, true)
	}

	st, err := openStore(opts, provider)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open record store", err)
	}
	slog.Debug("record store ready", "backend", opts.Backend, "data_dir", opts.DataDir)

	return &session{
		provider: provider,
		store:    st,
		ledger:   ledger.New(st, provider),
	}, nil
}

// openStore opens the backend named by opts.Backend. Records missing a
// resource field decode at the live default level.
func openStore(opts *RootOptions, provider config.Provider) (recordStore, error) {
	defaultLevel := store.WithDefaultResource(func() int {
		return provider.Current().Resource.Default
	})

	switch opts.Backend {
	case BackendFile, "":
		fs, err := store.NewFileStore(opts.DataDir, defaultLevel)
		if err != nil {
			return nil, err
		}
		return fs, nil

	case BackendSQLite:
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		db, err := store.Open(filepath.Join(opts.DataDir, sqliteFile), defaultLevel)
		if err != nil {
			return nil, err
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}

// Close releases the backend. It does not flush; callers that mutate the
// ledger flush before closing.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing record store", "error", err)
	}
}

// parseParticipant validates a participant id argument.
func parseParticipant(raw string) (string, error) {
	id, err := store.ParseID(raw)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid participant id", err)
	}
	return id, nil
}
