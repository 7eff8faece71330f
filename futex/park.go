// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package futex

import (
	"sync"
	"sync/atomic"
	"time"
)

// WakeupResult is the outcome of a wait.
type WakeupResult int

const (
	// Error reports an unexpected failure from the OS primitive.
	Error WakeupResult = -1
	// Signaled reports that the waiter was woken by a signal.
	Signaled WakeupResult = 0
	// Changed reports that the watched word differed from the expected
	// value, either before parking or by the time the wait began.
	Changed WakeupResult = 1
	// TimedOut reports that the timeout elapsed without a wakeup.
	TimedOut WakeupResult = 2
)

func (r WakeupResult) String() string {
	switch r {
	case Signaled:
		return "SIGNALED"
	case Changed:
		return "CHANGED"
	case TimedOut:
		return "TIMEDOUT"
	default:
		return "ERROR"
	}
}

// Forever is the timeout that never expires.
const Forever time.Duration = -1

// Until converts an absolute deadline to a relative timeout.
// A deadline in the past yields 0, meaning poll once and return.
func Until(deadline time.Time) time.Duration {
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}

// Parker blocks and wakes goroutines keyed by a 32-bit word.
//
// Park blocks only if *addr still equals val; the comparison and the
// enqueue of the waiter are atomic with respect to Unpark on the same
// parker. Park may return Signaled spuriously and callers must re-check
// their predicate.
type Parker interface {
	// Park blocks until woken, timed out, or *addr != val.
	// timeout < 0 waits forever; timeout == 0 checks once.
	Park(addr *uint32, val uint32, timeout time.Duration) WakeupResult
	// Unpark wakes up to n goroutines parked on addr and returns the
	// number woken.
	Unpark(addr *uint32, n int) int
}

// RuntimeParker parks goroutines on channels under a mutex.
//
// It is portable and needs no system calls. The comparison against *addr
// is made with the mutex held, and Unpark takes the same mutex, so a wake
// that follows a change of *addr cannot slip between the comparison and
// the enqueue.
type RuntimeParker struct {
	mu      sync.Mutex
	waiters []*waiter
}

type waiter struct {
	addr *uint32
	ch   chan struct{}
}

var waiterPool = sync.Pool{
	New: func() any { return &waiter{ch: make(chan struct{}, 1)} },
}

// NewRuntimeParker returns a RuntimeParker.
func NewRuntimeParker() *RuntimeParker {
	return &RuntimeParker{}
}

// Park implements [Parker].
func (p *RuntimeParker) Park(addr *uint32, val uint32, timeout time.Duration) WakeupResult {
	p.mu.Lock()
	if atomic.LoadUint32(addr) != val {
		p.mu.Unlock()
		return Changed
	}
	if timeout == 0 {
		p.mu.Unlock()
		return TimedOut
	}
	w := waiterPool.Get().(*waiter)
	w.addr = addr
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	if timeout < 0 {
		<-w.ch
		p.release(w)
		return Signaled
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.ch:
		p.release(w)
		return Signaled
	case <-timer.C:
	}

	p.mu.Lock()
	removed := p.remove(w)
	p.mu.Unlock()
	if !removed {
		// Unpark dequeued w concurrently with the timer; its send is
		// already buffered.
		<-w.ch
		p.release(w)
		return Signaled
	}
	p.release(w)
	return TimedOut
}

// Unpark implements [Parker]. Waiters on addr are woken in FIFO order;
// waiters on other words sharing this parker are left in place.
func (p *RuntimeParker) Unpark(addr *uint32, n int) int {
	p.mu.Lock()
	woken, kept := 0, 0
	for _, w := range p.waiters {
		if woken < n && w.addr == addr {
			w.ch <- struct{}{}
			woken++
			continue
		}
		p.waiters[kept] = w
		kept++
	}
	clear(p.waiters[kept:])
	p.waiters = p.waiters[:kept]
	p.mu.Unlock()
	return woken
}

// Parked returns the number of goroutines currently parked.
func (p *RuntimeParker) Parked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

func (p *RuntimeParker) release(w *waiter) {
	w.addr = nil
	waiterPool.Put(w)
}

func (p *RuntimeParker) remove(w *waiter) bool {
	for i, x := range p.waiters {
		if x == w {
			copy(p.waiters[i:], p.waiters[i+1:])
			p.waiters[len(p.waiters)-1] = nil
			p.waiters = p.waiters[:len(p.waiters)-1]
			return true
		}
	}
	return false
}
