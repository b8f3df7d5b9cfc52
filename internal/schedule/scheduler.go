// Package schedule routes units of work to the execution context that owns
// an entity's locality.
//
// A host that partitions its world (regions, shards, zones) runs one worker
// per partition; work for the same locality always lands on the same worker
// and runs in submission order. A host without partitioning degrades to a
// single worker. The implementation is chosen once at startup with New.
//
// This is the only package aware of spatial partitioning. Ledger and transfer
// code is context-agnostic.
package schedule

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Barrier once the runner has been closed.
var ErrClosed = errors.New("schedule: runner closed")

// Locality identifies the partition that owns an entity, e.g. "world:3:-7".
// The zero value is a valid locality.
type Locality string

// Scheduler dispatches work onto the context owning a locality.
type Scheduler interface {
	// RunNow queues fn on the owning context. Never blocks.
	RunNow(loc Locality, fn func())
	// RunAfter queues fn on the owning context once delay has elapsed.
	// Delayed work cannot be cancelled once scheduled.
	RunAfter(loc Locality, fn func(), delay time.Duration)
}

// Runner is a Scheduler with a lifecycle.
type Runner interface {
	Scheduler
	// Barrier waits until every task queued before the call, on every
	// context, has run.
	Barrier(ctx context.Context) error
	// Close stops accepting work, abandons pending delayed work and waits
	// for already-queued work to finish or ctx to expire.
	Close(ctx context.Context) error
}

// New returns a Serial runner for workers <= 1 and a Partitioned runner
// otherwise.
func New(workers int) Runner {
	if workers <= 1 {
		return NewSerial()
	}
	return NewPartitioned(workers)
}
