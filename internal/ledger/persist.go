package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Flush writes id's record to the store if it has unsaved changes.
// On failure the record stays cached and dirty and the error is returned.
func (l *Ledger) Flush(ctx context.Context, id string) error {
	mu := l.ioFor(id)
	mu.Lock()
	defer mu.Unlock()

	if _, err := l.save(ctx, id); err != nil {
		slog.Error("failed to save participant", "participant", id, "error", err)
		return err
	}
	return nil
}

// FlushAll writes every dirty record. A failure for one record does not stop
// the others; all failures are joined into the returned error.
func (l *Ledger) FlushAll(ctx context.Context) error {
	var (
		errs  []error
		saved int
	)
	for _, id := range l.dirtyIDs() {
		mu := l.ioFor(id)
		mu.Lock()
		ok, err := l.save(ctx, id)
		mu.Unlock()

		switch {
		case err != nil:
			slog.Error("failed to save participant", "participant", id, "error", err)
			errs = append(errs, err)
		case ok:
			saved++
		}
	}

	slog.Info("saved participant data", "saved", saved, "failed", len(errs))
	return errors.Join(errs...)
}

func (l *Ledger) dirtyIDs() []string {
	var ids []string
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.RLock()
		for id, e := range sh.records {
			if e.dirty {
				ids = append(ids, id)
			}
		}
		sh.mu.RUnlock()
	}
	return ids
}

// Unload flushes id's record and evicts it from the cache. If the flush
// fails the record stays cached so the change is not lost. A change that
// lands while the record is being saved is saved too before eviction.
//
// Cooldowns are not cleared.
func (l *Ledger) Unload(ctx context.Context, id string) error {
	mu := l.ioFor(id)
	mu.Lock()
	defer mu.Unlock()

	sh := l.shardFor(id)
	for {
		if _, err := l.save(ctx, id); err != nil {
			slog.Error("failed to save participant on unload, keeping it cached", "participant", id, "error", err)
			return err
		}

		sh.mu.Lock()
		e, ok := sh.records[id]
		if ok && e.dirty {
			sh.mu.Unlock()
			continue
		}
		delete(sh.records, id)
		sh.mu.Unlock()
		if ok {
			slog.Debug("participant unloaded", "participant", id)
		}
		return nil
	}
}

// Autosave calls FlushAll every interval until ctx is done.
func (l *Ledger) Autosave(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.FlushAll(ctx); err != nil {
				slog.Warn("autosave incomplete", "error", err)
			}
		}
	}
}

// save writes id's record if it is cached and dirty, and reports whether it
// wrote. The caller holds id's I/O lock; the stripe lock is only taken to
// copy the record and to mark it clean, so other operations on the stripe
// run during the write. The record stays dirty if it changed meanwhile.
func (l *Ledger) save(ctx context.Context, id string) (bool, error) {
	sh := l.shardFor(id)

	sh.mu.RLock()
	e, ok := sh.records[id]
	if !ok || !e.dirty {
		sh.mu.RUnlock()
		return false, nil
	}
	rec, version := e.rec, e.version
	sh.mu.RUnlock()

	rec.LastUpdated = l.clock.Now().UnixMilli()
	if err := l.store.Save(ctx, rec); err != nil {
		return false, err
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	e.rec.LastUpdated = rec.LastUpdated
	if e.version == version {
		e.dirty = false
	}
	return true, nil
}
