package ledger

import (
	"log/slog"
	"time"

	"github.com/roach88/lifeledger/internal/store"
)

// Get returns id's resource level, or the configured default if id is not
// cached. It never loads.
func (l *Ledger) Get(id string) int {
	sh := l.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return l.getLocked(sh, id)
}

// Set overwrites id's resource level without clamping and marks the record
// dirty. An id that is not cached gets a fresh record holding v.
func (l *Ledger) Set(id string, v int) {
	sh := l.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	l.setLocked(sh, id, v)
}

// Add raises id's resource level by delta, clamped to the configured
// bounds, and returns the new level.
func (l *Ledger) Add(id string, delta int) int {
	return l.update(id, func(cur int) int { return cur + delta })
}

// Remove lowers id's resource level by delta, clamped to the configured
// bounds, and returns the new level.
func (l *Ledger) Remove(id string, delta int) int {
	return l.update(id, func(cur int) int { return cur - delta })
}

// Withdraw lowers id's resource level by amount, clamped to the configured
// bounds, provided the level is above floor. It returns the resource actually
// removed and the new level. When the level is at or below floor nothing
// changes and ok is false.
func (l *Ledger) Withdraw(id string, amount, floor int) (removed, after int, ok bool) {
	before, after, ok := l.updateIf(id, func(cur int) (int, bool) {
		return cur - amount, cur > floor
	})
	return before - after, after, ok
}

// Refill raises id's resource level by amount, clamped to the configured
// bounds, provided the level is below ceiling. It returns the new level.
// When the level is at or above ceiling nothing changes and ok is false.
func (l *Ledger) Refill(id string, amount, ceiling int) (after int, ok bool) {
	_, after, ok = l.updateIf(id, func(cur int) (int, bool) {
		return cur + amount, cur < ceiling
	})
	return after, ok
}

func (l *Ledger) update(id string, fn func(cur int) int) int {
	_, v, _ := l.updateIf(id, func(cur int) (int, bool) { return fn(cur), true })
	return v
}

// updateIf reads, checks and writes id's level under one stripe lock, so no
// transfer or other update can land between the check and the write.
func (l *Ledger) updateIf(id string, fn func(cur int) (next int, apply bool)) (before, after int, ok bool) {
	sh := l.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	before = l.getLocked(sh, id)
	next, apply := fn(before)
	if !apply {
		return before, before, false
	}
	after = l.config.Current().Clamp(next)
	l.setLocked(sh, id, after)
	return before, after, true
}

// RecordWin increments id's win counter. Uncached ids are ignored.
func (l *Ledger) RecordWin(id string) {
	sh := l.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.records[id]
	if !ok {
		slog.Warn("win for participant not loaded, ignoring", "participant", id)
		return
	}
	e.rec.Wins++
	e.touch()
}

// RecordLoss increments id's loss counter and stamps at as the last time id
// reached the elimination threshold. Uncached ids are ignored.
func (l *Ledger) RecordLoss(id string, at time.Time) {
	l.loss(id, func(rec *store.Record) { rec.LastEliminatedAt = at.UnixMilli() })
}

// CountLoss increments id's loss counter for a defeat that left id above the
// elimination threshold. Uncached ids are ignored.
func (l *Ledger) CountLoss(id string) {
	l.loss(id, nil)
}

func (l *Ledger) loss(id string, stamp func(rec *store.Record)) {
	sh := l.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.records[id]
	if !ok {
		slog.Warn("loss for participant not loaded, ignoring", "participant", id)
		return
	}
	e.rec.Losses++
	if stamp != nil {
		stamp(&e.rec)
	}
	e.touch()
}

// GetWinLoss returns id's win and loss counters, zero if not cached.
func (l *Ledger) GetWinLoss(id string) (wins, losses int) {
	sh := l.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if e, ok := sh.records[id]; ok {
		return e.rec.Wins, e.rec.Losses
	}
	return 0, 0
}

// Snapshot returns a copy of id's cached record.
func (l *Ledger) Snapshot(id string) (store.Record, bool) {
	sh := l.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if e, ok := sh.records[id]; ok {
		return e.rec, true
	}
	return store.Record{}, false
}

func (l *Ledger) getLocked(sh *shard, id string) int {
	if e, ok := sh.records[id]; ok {
		return e.rec.Resource
	}
	return l.config.Current().Resource.Default
}

func (l *Ledger) setLocked(sh *shard, id string, v int) {
	e, ok := sh.records[id]
	if !ok {
		e = &entry{rec: store.NewRecord(id, v)}
		sh.records[id] = e
	}
	e.rec.Resource = v
	e.touch()
	slog.Debug("resource set", "participant", id, "resource", v)
}
