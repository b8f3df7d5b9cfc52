package testutil

import (
	"sync"
	"time"

	"github.com/roach88/lifeledger/internal/schedule"
)

// ScheduledTask is one unit of work captured by a RecordingScheduler.
type ScheduledTask struct {
	Locality schedule.Locality
	Delay    time.Duration
	Fn       func()
}

// RecordingScheduler runs RunNow work inline and holds RunAfter work until
// RunDelayed is called, so tests control when delayed side effects happen.
type RecordingScheduler struct {
	mu      sync.Mutex
	now     []ScheduledTask
	delayed []ScheduledTask
}

// NewRecordingScheduler creates an empty scheduler.
func NewRecordingScheduler() *RecordingScheduler {
	return &RecordingScheduler{}
}

// RunNow records fn and runs it on the calling goroutine.
func (s *RecordingScheduler) RunNow(loc schedule.Locality, fn func()) {
	s.mu.Lock()
	s.now = append(s.now, ScheduledTask{Locality: loc, Fn: fn})
	s.mu.Unlock()
	fn()
}

// RunAfter records fn for a later RunDelayed.
func (s *RecordingScheduler) RunAfter(loc schedule.Locality, fn func(), delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delayed = append(s.delayed, ScheduledTask{Locality: loc, Delay: delay, Fn: fn})
}

// Delayed returns the delayed tasks not yet run.
func (s *RecordingScheduler) Delayed() []ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledTask, len(s.delayed))
	copy(out, s.delayed)
	return out
}

// Immediate returns every task passed to RunNow so far.
func (s *RecordingScheduler) Immediate() []ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledTask, len(s.now))
	copy(out, s.now)
	return out
}

// RunDelayed runs and forgets every pending delayed task, in submission
// order, and returns how many ran.
func (s *RecordingScheduler) RunDelayed() int {
	s.mu.Lock()
	pending := s.delayed
	s.delayed = nil
	s.mu.Unlock()

	for _, task := range pending {
		task.Fn()
	}
	return len(pending)
}
