package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	recordExt = ".yml"

	// fileLockStripes is the number of key locks serializing saves of the
	// same id. Different ids usually land on different stripes.
	fileLockStripes = 64
)

// FileStore keeps one YAML document per participant under a directory.
//
// Thread-safety: safe for concurrent use. Load and Save for the same id are
// serialized by a striped key lock; different ids proceed in parallel.
type FileStore struct {
	dir   string
	opts  options
	locks [fileLockStripes]sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record directory: %w", err)
	}
	return &FileStore{dir: dir, opts: buildOptions(opts)}, nil
}

// Dir returns the record directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error {
	return nil
}

// Path returns the file path for an already-normalised id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}

// Load reads the record for id.
// Returns an error matching ErrRecordNotFound if the file does not exist.
func (s *FileStore) Load(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, &PersistenceError{Op: "load", ID: id, Err: err}
	}
	key, err := ParseID(id)
	if err != nil {
		return Record{}, err
	}

	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, notFound(key)
	}
	if err != nil {
		return Record{}, &PersistenceError{Op: "load", ID: key, Err: err}
	}

	rec, err := unmarshalRecord(key, data, s.opts.defaultResource())
	if err != nil {
		return Record{}, &PersistenceError{Op: "load", ID: key, Err: err}
	}
	return rec, nil
}

// Save writes the record atomically: temp file, fsync, rename.
func (s *FileStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "save", ID: rec.ID, Err: err}
	}
	key, err := ParseID(rec.ID)
	if err != nil {
		return err
	}

	data, err := marshalRecord(rec)
	if err != nil {
		return &PersistenceError{Op: "save", ID: key, Err: err}
	}

	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	if err := writeFileAtomic(s.dir, s.Path(key), data); err != nil {
		return &PersistenceError{Op: "save", ID: key, Err: err}
	}
	return nil
}

// List returns the ids of all stored records in file name order.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, recordExt))
	}
	return ids, nil
}

func (s *FileStore) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%fileLockStripes]
}

// writeFileAtomic replaces path with data without exposing a partial file.
func writeFileAtomic(dir, path string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace record file: %w", err)
	}
	return nil
}
