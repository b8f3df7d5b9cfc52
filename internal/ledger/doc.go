// Package ledger is the in-memory, concurrency-safe cache of participant
// records in front of a durable record store.
//
// Records are loaded lazily (EnsureLoaded), mutated in memory (Set, Add,
// Remove, Withdraw, Refill, RecordWin, RecordLoss, CountLoss) and written
// back on Flush, FlushAll, Unload or by Autosave. Reads never block on I/O:
// a participant that is not cached reads as the configured default level.
//
// # Concurrency
//
// The cache is split into lock stripes keyed by a hash of the participant
// id. Stripe locks are held only for in-memory work. Store I/O for an id is
// ordered by a separate I/O lock, so a load, a flush and an unload for the
// same id never overlap and an unload can never race a reload into reading
// stale data, while Get and Set on the rest of the stripe carry on.
//
// WithPair holds the stripe locks of two participants at once, always in
// ascending stripe order, so two-party read-modify-write sequences are
// atomic with respect to every other ledger operation touching either party.
//
// Cooldown timestamps live in their own striped map and are independent of
// whether a record is cached.
package ledger
