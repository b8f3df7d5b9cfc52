package schedule

import (
	"context"
	"errors"
	"hash/fnv"
	"time"
)

// Partitioned owns a fixed set of Serial workers and routes each locality to
// one of them by hash. Work for one locality is ordered; work for localities
// on different workers runs in parallel.
type Partitioned struct {
	workers []*Serial
}

// NewPartitioned starts n workers. n < 1 is treated as 1.
func NewPartitioned(n int) *Partitioned {
	if n < 1 {
		n = 1
	}
	p := &Partitioned{workers: make([]*Serial, n)}
	for i := range p.workers {
		p.workers[i] = NewSerial()
	}
	return p
}

// Owner returns the index of the worker that owns loc.
func (p *Partitioned) Owner(loc Locality) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(loc))
	return int(h.Sum32() % uint32(len(p.workers)))
}

// Workers returns the worker count.
func (p *Partitioned) Workers() int {
	return len(p.workers)
}

// RunNow queues fn on the worker owning loc.
func (p *Partitioned) RunNow(loc Locality, fn func()) {
	p.workers[p.Owner(loc)].RunNow(loc, fn)
}

// RunAfter queues fn on the worker owning loc after delay.
func (p *Partitioned) RunAfter(loc Locality, fn func(), delay time.Duration) {
	p.workers[p.Owner(loc)].RunAfter(loc, fn, delay)
}

// Barrier waits on every worker in turn.
func (p *Partitioned) Barrier(ctx context.Context) error {
	for _, w := range p.workers {
		if err := w.Barrier(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every worker and waits for all of them.
func (p *Partitioned) Close(ctx context.Context) error {
	var errs []error
	for _, w := range p.workers {
		if err := w.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
