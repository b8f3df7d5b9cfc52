package schedule_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/roach88/lifeledger/internal/schedule"
)

// barrier blocks until every task queued on loc before it has run.
func barrier(s schedule.Scheduler, loc schedule.Locality) {
	done := make(chan struct{})
	s.RunNow(loc, func() { close(done) })
	Eventually(done).Should(BeClosed())
}

var _ = Describe("Serial", func() {
	var s *schedule.Serial

	BeforeEach(func() {
		s = schedule.NewSerial()
	})

	AfterEach(func() {
		Expect(s.Close(context.Background())).To(Succeed())
	})

	It("should run tasks in submission order", func() {
		var mu sync.Mutex
		var order []int
		for i := 0; i < 50; i++ {
			i := i
			s.RunNow("any", func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			})
		}
		barrier(s, "any")

		mu.Lock()
		defer mu.Unlock()
		Expect(order).To(HaveLen(50))
		for i, v := range order {
			Expect(v).To(Equal(i))
		}
	})

	It("should never run two tasks at once", func() {
		var running, maxSeen int32
		for i := 0; i < 20; i++ {
			s.RunNow(schedule.Locality(fmt.Sprint(i)), func() {
				n := atomic.AddInt32(&running, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&running, -1)
			})
		}
		barrier(s, "")
		Expect(atomic.LoadInt32(&maxSeen)).To(Equal(int32(1)))
	})

	It("should run delayed work after the delay", func() {
		start := time.Now()
		ran := make(chan time.Time, 1)
		s.RunAfter("any", func() { ran <- time.Now() }, 30*time.Millisecond)

		var at time.Time
		Eventually(ran).Should(Receive(&at))
		Expect(at.Sub(start)).To(BeNumerically(">=", 30*time.Millisecond))
	})

	It("should treat a zero delay as immediate", func() {
		ran := make(chan struct{})
		s.RunAfter("any", func() { close(ran) }, 0)
		Eventually(ran).Should(BeClosed())
	})

	It("should survive a panicking task", func() {
		s.RunNow("any", func() { panic("boom") })
		ran := make(chan struct{})
		s.RunNow("any", func() { close(ran) })
		Eventually(ran).Should(BeClosed())
	})
})

var _ = Describe("Serial shutdown", func() {
	It("should drain queued work and abandon delayed work", func() {
		s := schedule.NewSerial()

		var drained, delayed int32
		for i := 0; i < 10; i++ {
			s.RunNow("any", func() {
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&drained, 1)
			})
		}
		s.RunAfter("any", func() { atomic.AddInt32(&delayed, 1) }, 50*time.Millisecond)

		Expect(s.Close(context.Background())).To(Succeed())
		Expect(atomic.LoadInt32(&drained)).To(Equal(int32(10)))

		Consistently(func() int32 { return atomic.LoadInt32(&delayed) }, 100*time.Millisecond).
			Should(BeZero())
	})

	It("should drop work submitted after close", func() {
		s := schedule.NewSerial()
		Expect(s.Close(context.Background())).To(Succeed())

		var ran int32
		s.RunNow("any", func() { atomic.AddInt32(&ran, 1) })
		s.RunAfter("any", func() { atomic.AddInt32(&ran, 1) }, time.Millisecond)

		Consistently(func() int32 { return atomic.LoadInt32(&ran) }, 20*time.Millisecond).
			Should(BeZero())
		Expect(s.Pending()).To(BeZero())
	})

	It("should give up waiting when the context expires", func() {
		s := schedule.NewSerial()
		gate := make(chan struct{})
		s.RunNow("any", func() { <-gate })

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(s.Close(ctx)).To(MatchError(context.DeadlineExceeded))

		close(gate)
		Expect(s.Close(context.Background())).To(Succeed())
	})
})

var _ = Describe("Partitioned", func() {
	var p *schedule.Partitioned

	BeforeEach(func() {
		p = schedule.NewPartitioned(4)
	})

	AfterEach(func() {
		Expect(p.Close(context.Background())).To(Succeed())
	})

	It("should route a locality to a stable owner", func() {
		owner := p.Owner("world:3:-7")
		for i := 0; i < 10; i++ {
			Expect(p.Owner("world:3:-7")).To(Equal(owner))
		}
		Expect(owner).To(BeNumerically("<", p.Workers()))
	})

	It("should keep per-locality order", func() {
		var mu sync.Mutex
		seen := map[schedule.Locality][]int{}
		locs := []schedule.Locality{"a", "b", "c", "d", "e", "f"}
		for i := 0; i < 100; i++ {
			for _, loc := range locs {
				i, loc := i, loc
				p.RunNow(loc, func() {
					mu.Lock()
					seen[loc] = append(seen[loc], i)
					mu.Unlock()
				})
			}
		}
		for _, loc := range locs {
			barrier(p, loc)
		}

		mu.Lock()
		defer mu.Unlock()
		for _, loc := range locs {
			Expect(seen[loc]).To(HaveLen(100))
			for i, v := range seen[loc] {
				Expect(v).To(Equal(i))
			}
		}
	})

	It("should run delayed work on the owning worker", func() {
		ran := make(chan struct{})
		p.RunAfter("arena", func() { close(ran) }, 5*time.Millisecond)
		Eventually(ran).Should(BeClosed())
	})
})

var _ = Describe("Barrier", func() {
	It("should wait for work queued on every worker", func() {
		p := schedule.NewPartitioned(4)
		defer func() { Expect(p.Close(context.Background())).To(Succeed()) }()

		var ran int32
		for i := 0; i < 40; i++ {
			p.RunNow(schedule.Locality(fmt.Sprint(i)), func() {
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&ran, 1)
			})
		}

		Expect(p.Barrier(context.Background())).To(Succeed())
		Expect(atomic.LoadInt32(&ran)).To(Equal(int32(40)))
	})

	It("should give up when the context ends", func() {
		s := schedule.NewSerial()
		release := make(chan struct{})
		s.RunNow("any", func() { <-release })

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(s.Barrier(ctx)).To(MatchError(context.DeadlineExceeded))

		close(release)
		Expect(s.Close(context.Background())).To(Succeed())
	})

	It("should report a closed runner", func() {
		s := schedule.NewSerial()
		Expect(s.Close(context.Background())).To(Succeed())
		Expect(s.Barrier(context.Background())).To(MatchError(schedule.ErrClosed))
	})
})

var _ = Describe("New", func() {
	It("should pick Serial for a single worker", func() {
		r := schedule.New(1)
		defer r.Close(context.Background())
		Expect(r).To(BeAssignableToTypeOf(&schedule.Serial{}))
	})

	It("should pick Partitioned for several workers", func() {
		r := schedule.New(3)
		defer r.Close(context.Background())
		Expect(r).To(BeAssignableToTypeOf(&schedule.Partitioned{}))
		Expect(r.(*schedule.Partitioned).Workers()).To(Equal(3))
	})
})
