package schedule

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Serial runs every task on one worker goroutine in submission order.
//
// Thread-safety: RunNow, RunAfter and Close are safe from any goroutine.
// Tasks themselves never run concurrently with each other.
type Serial struct {
	queue *taskQueue
	done  chan struct{}

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
}

// NewSerial starts a single-worker runner.
func NewSerial() *Serial {
	s := &Serial{
		queue:  newTaskQueue(),
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
	}
	go s.run()
	return s
}

// RunNow queues fn. The locality is ignored: there is only one context.
func (s *Serial) RunNow(_ Locality, fn func()) {
	if !s.queue.Enqueue(fn) {
		slog.Debug("scheduler closed, task dropped")
	}
}

// RunAfter queues fn after delay. A non-positive delay behaves like RunNow.
func (s *Serial) RunAfter(loc Locality, fn func(), delay time.Duration) {
	if delay <= 0 {
		s.RunNow(loc, fn)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		slog.Debug("scheduler closed, delayed task dropped")
		return
	}

	// The callback takes s.mu before touching t, so it observes the
	// assignment below even when the delay is tiny.
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		s.RunNow(loc, fn)
	})
	s.timers[t] = struct{}{}
}

// Barrier waits until every task queued before the call has run.
func (s *Serial) Barrier(ctx context.Context) error {
	done := make(chan struct{})
	if !s.queue.Enqueue(func() { close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued (not delayed) tasks.
func (s *Serial) Pending() int {
	return s.queue.Len()
}

// Close abandons delayed tasks, drains queued ones and stops the worker.
func (s *Serial) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for t := range s.timers {
			t.Stop()
		}
		if n := len(s.timers); n > 0 {
			slog.Info("abandoning delayed tasks on shutdown", "count", n)
		}
		s.timers = nil
	}
	s.mu.Unlock()

	s.queue.Close()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Serial) run() {
	defer close(s.done)
	for {
		if fn, ok := s.queue.TryDequeue(); ok {
			s.execute(fn)
			continue
		}
		if s.queue.IsClosed() {
			return
		}
		<-s.queue.Wait()
	}
}

// execute runs fn, logging a panic instead of killing the worker.
func (s *Serial) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
