package kernel

import (
	"sync"
	"time"
)

// TickHz is the scheduler's periodic tick rate (spec.md §4.E: 100 Hz).
const TickHz = 100

// Scheduler drives the kernel's two sources of asynchronous re-scheduling:
// a periodic tick, which advances round-robin bookkeeping within the
// active priority ring (CONTEXT, spec.md §4.E) and wakes any process
// subscribed via NotifyEachTick (the time server's countdown, spec.md
// §4.F), and external wake events, which re-add a specific blocked
// process to its ring in response to something outside any kernel call (a
// byte arriving on a link) — the original's INPUT_0/INPUT_1/TIMER pendSV
// cases.
//
// Every process this kernel runs spends nearly all its time parked inside
// Receive or Block, so CONTEXT's round-robin advance only needs to change
// who runs *next*, not force a currently-running goroutine to stop: the
// next trap call made by whichever process is actually running will
// already observe the updated ring and park itself if it's no longer
// current. See SPEC_FULL.md's note on this for why that's sufficient here
// — nothing in this design does unbounded CPU-bound work between two
// kernel calls.
type Scheduler struct {
	k      *Kernel
	events chan PID
	stop   chan struct{}

	mu      sync.Mutex
	waiters map[PID]bool
}

// NewScheduler returns a Scheduler for k. Call Run in its own goroutine.
func NewScheduler(k *Kernel) *Scheduler {
	return &Scheduler{
		k:       k,
		events:  make(chan PID, 64),
		stop:    make(chan struct{}),
		waiters: make(map[PID]bool),
	}
}

// WakeBlocked requests that pid (which must currently be parked via
// Proc.Block or a pending Receive) be re-added to its priority ring. Safe
// to call from any goroutine, including an I/O reader feeding bytes to the
// physical layer. A wake for a pid that isn't actually parked is silently
// dropped, so a spurious or duplicate call can never double-link a PCB
// that's already in its ring.
func (s *Scheduler) WakeBlocked(pid PID) {
	select {
	case s.events <- pid:
	default:
	}
}

// NotifyEachTick subscribes pid to receive a WakeBlocked call on every
// subsequent tick, until StopNotify is called — the mechanism behind the
// time server's countdown loop (spec.md §4.F: "yields until the tick ISR
// deposits a wakeup event, decrementing the count each time").
func (s *Scheduler) NotifyEachTick(pid PID) {
	s.mu.Lock()
	s.waiters[pid] = true
	s.mu.Unlock()
}

// StopNotify unsubscribes pid from per-tick wakeups.
func (s *Scheduler) StopNotify(pid PID) {
	s.mu.Lock()
	delete(s.waiters, pid)
	s.mu.Unlock()
}

// Run drives the scheduler until Stop is called.
func (s *Scheduler) Run(tickInterval time.Duration) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return

		case pid := <-s.events:
			s.readmit(pid)

		case <-ticker.C:
			s.k.mu.Lock()
			s.k.advanceRoundRobin()
			s.k.mu.Unlock()

			s.mu.Lock()
			due := make([]PID, 0, len(s.waiters))
			for pid := range s.waiters {
				due = append(due, pid)
			}
			s.mu.Unlock()
			for _, pid := range due {
				s.readmit(pid)
			}
		}
	}
}

// readmit re-adds pid to its ring if, and only if, it is actually parked
// (via a blocked receive or Proc.Block), then wakes whoever is now
// current if that changed.
func (s *Scheduler) readmit(pid PID) {
	s.k.mu.Lock()
	p := &s.k.procs[pid]
	if !p.inUse || p.terminated || (!p.blocked && !p.waiting) {
		s.k.mu.Unlock()
		return
	}
	p.blocked = false
	p.waiting = false
	p.recvBuf, p.recvFrom, p.recvRet = nil, nil, nil

	prevCurrent := s.k.current()
	s.k.add(pid, p.priority)
	newCurrent := s.k.current()
	s.k.mu.Unlock()

	if newCurrent != prevCurrent {
		s.k.wake(newCurrent)
	}
}

// Stop ends Run's loop.
func (s *Scheduler) Stop() {
	close(s.stop)
}
