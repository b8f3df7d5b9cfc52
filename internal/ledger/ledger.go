package ledger

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/lifeledger/internal/config"
	"github.com/roach88/lifeledger/internal/store"
)

//go:generate mockgen -destination=mock_store_test.go -package=ledger . RecordStore

// stripes is the number of lock stripes for both records and cooldowns.
const stripes = 64

// RecordStore is the durable backend the ledger loads from and flushes to.
// store.FileStore and store.SQLiteStore both satisfy it.
type RecordStore interface {
	Load(ctx context.Context, id string) (store.Record, error)
	Save(ctx context.Context, rec store.Record) error
}

type entry struct {
	rec   store.Record
	dirty bool
	// version counts mutations, so a flush can tell whether the record
	// changed while it was being saved.
	version uint64
}

// touch marks e changed. The caller holds e's stripe lock.
func (e *entry) touch() {
	e.dirty = true
	e.version++
}

type shard struct {
	mu      sync.RWMutex
	records map[string]*entry
}

// Ledger caches participant records and owns their mutation.
//
// Ids are used as given; callers normalise them with store.ParseID at the
// edge of the system.
type Ledger struct {
	store  RecordStore
	config config.Provider
	clock  Clock

	shards    [stripes]shard
	cooldowns [stripes]cooldownShard

	// io orders store reads and writes per id. It is taken before, never
	// while holding, a stripe lock.
	io [stripes]sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// New creates an empty ledger over st. Bounds and defaults are read from cfg
// on every operation, so configuration reloads apply immediately.
func New(st RecordStore, cfg config.Provider, opts ...Option) *Ledger {
	l := &Ledger{
		store:  st,
		config: cfg,
		clock:  SystemClock{},
	}
	for i := range l.shards {
		l.shards[i].records = make(map[string]*entry)
	}
	for i := range l.cooldowns {
		l.cooldowns[i].last = make(map[string]time.Time)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func stripeOf(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % stripes)
}

func (l *Ledger) shardFor(id string) *shard {
	return &l.shards[stripeOf(id)]
}

func (l *Ledger) ioFor(id string) *sync.Mutex {
	return &l.io[stripeOf(id)]
}

// Len returns the number of cached records.
func (l *Ledger) Len() int {
	n := 0
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}

// IsLoaded reports whether id is cached.
func (l *Ledger) IsLoaded(id string) bool {
	sh := l.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, ok := sh.records[id]
	return ok
}

// IsDirty reports whether id has changes not yet flushed.
func (l *Ledger) IsDirty(id string) bool {
	sh := l.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.records[id]
	return ok && e.dirty
}

// EnsureLoaded caches id's record, reading it from the store if needed.
//
// A participant without a stored record gets a fresh record at the
// configured default level, which is written through immediately. A failed
// write is logged and the record stays cached as dirty; it does not fail the
// call. A failed read is returned and nothing is cached, so a later call
// retries.
//
// Calling EnsureLoaded on a cached id does no I/O. The store is read without
// holding the stripe lock, so reads and writes of other cached ids proceed
// during the load.
func (l *Ledger) EnsureLoaded(ctx context.Context, id string) error {
	mu := l.ioFor(id)
	mu.Lock()
	defer mu.Unlock()

	if l.IsLoaded(id) {
		return nil
	}

	rec, err := l.store.Load(ctx, id)
	switch {
	case err == nil:
		rec.ID = id
		cached := l.insert(id, l.admit(rec))
		slog.Debug("participant loaded", "participant", id, "resource", cached.Resource)
		return nil

	case store.IsNotFound(err):
		fresh := l.insert(id, &entry{rec: store.NewRecord(id, l.config.Current().Resource.Default), dirty: true})
		if _, err := l.save(ctx, id); err != nil {
			slog.Error("failed to persist new participant", "participant", id, "error", err)
			return nil
		}
		slog.Debug("participant created", "participant", id, "resource", fresh.Resource)
		return nil

	default:
		slog.Error("failed to load participant", "participant", id, "error", err)
		return err
	}
}

// LoadStrict returns id's record, loading it if needed, and fails if the
// store has no record for id. It never creates a record.
func (l *Ledger) LoadStrict(ctx context.Context, id string) (store.Record, error) {
	mu := l.ioFor(id)
	mu.Lock()
	defer mu.Unlock()

	if rec, ok := l.Snapshot(id); ok {
		return rec, nil
	}

	rec, err := l.store.Load(ctx, id)
	if err != nil {
		return store.Record{}, err
	}
	rec.ID = id
	return l.insert(id, l.admit(rec)), nil
}

// insert caches a freshly loaded entry and returns the cached record. A
// write for the id that landed while it was being read was applied to a
// default record; its level and counters are carried over onto the loaded
// one.
func (l *Ledger) insert(id string, e *entry) store.Record {
	sh := l.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if raced, ok := sh.records[id]; ok {
		slog.Debug("participant changed while loading, keeping the change", "participant", id)
		e.rec.Resource = raced.rec.Resource
		e.rec.Wins += raced.rec.Wins
		e.rec.Losses += raced.rec.Losses
		e.rec.LastEliminatedAt = max(e.rec.LastEliminatedAt, raced.rec.LastEliminatedAt)
		e.dirty = true
	}
	sh.records[id] = e
	return e.rec
}

// admit wraps a freshly loaded record, pulling a resource level that falls
// outside the current bounds back inside them.
func (l *Ledger) admit(rec store.Record) *entry {
	e := &entry{rec: rec}
	cfg := l.config.Current()
	if clamped := cfg.Clamp(rec.Resource); clamped != rec.Resource {
		slog.Warn("stored resource outside bounds, clamping",
			"participant", rec.ID, "stored", rec.Resource, "resource", clamped)
		e.rec.Resource = clamped
		e.dirty = true
	}
	return e
}
