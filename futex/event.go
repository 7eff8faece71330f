// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package futex

import (
	"math"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
)

// Event is a counter-based wait/signal primitive.
//
// Waiters snapshot [Event.Value] before checking their predicate and pass
// the snapshot to [Event.Wait]. Any [Event.Signal] that lands after the
// snapshot changes the counter, so the wait returns instead of sleeping.
//
// The signal path is an atomic add plus a load when nobody is parked.
// The parker is only entered when at least one waiter has registered.
type Event struct {
	// count is the futex word. It is accessed only through sync/atomic
	// because the OS parker needs its address.
	count uint32
	_     [64 - 4]byte
	// waiters counts goroutines between registration and return from Park.
	waiters int32
	_       [64 - 4]byte
	parker  Parker
	stats   *eventStats
}

// Option configures an [Event] or [LightMutex].
type Option func(*options)

type options struct {
	parker Parker
	stats  bool
}

// WithParker selects the slow-path parker.
func WithParker(p Parker) Option {
	return func(o *options) { o.parker = p }
}

// WithFutex selects the futex(2) parker on Linux and the runtime parker
// elsewhere.
func WithFutex() Option {
	return func(o *options) { o.parker = NewOSParker() }
}

// WithStats enables fast/slow path counters.
func WithStats() Option {
	return func(o *options) { o.stats = true }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.parker == nil {
		o.parker = NewRuntimeParker()
	}
	return o
}

// NewEvent creates an event with the given initial counter.
func NewEvent(initial int32, opts ...Option) *Event {
	o := buildOptions(opts)
	e := &Event{count: uint32(initial), parker: o.parker}
	if o.stats {
		e.stats = &eventStats{}
	}
	return e
}

// Value returns the current counter.
func (e *Event) Value() int32 {
	return int32(atomic.LoadUint32(&e.count))
}

// Reset stores v as the counter and returns it.
// Waiters whose snapshot differs from v return Changed on their next wait.
func (e *Event) Reset(v int32) int32 {
	atomic.StoreUint32(&e.count, uint32(v))
	return v
}

// Signal increments the counter and wakes up to n parked waiters.
// It returns the number of waiters woken.
func (e *Event) Signal(n int) int {
	atomic.AddUint32(&e.count, 1)
	if atomic.LoadInt32(&e.waiters) == 0 {
		if e.stats != nil {
			e.stats.wakeFast.Add(1)
		}
		return 0
	}
	if e.stats != nil {
		e.stats.wakeSlow.Add(1)
	}
	return e.parker.Unpark(&e.count, n)
}

// SignalAll increments the counter and wakes every parked waiter.
func (e *Event) SignalAll() int {
	return e.Signal(math.MaxInt32)
}

// TryWait reports whether the counter moved away from *old, refreshing
// *old when it did. It never blocks.
func (e *Event) TryWait(old *int32) bool {
	cur := e.Value()
	if cur != *old {
		*old = cur
		return true
	}
	return false
}

// Wait blocks until the counter differs from *old, a signal arrives, or
// the timeout elapses. timeout < 0 waits forever.
//
// On return *old holds the counter as last observed, ready for the next
// wait. Error and Signaled may be spurious; callers re-check their
// predicate in a loop.
func (e *Event) Wait(timeout time.Duration, old *int32) WakeupResult {
	val := uint32(*old)
	if cur := atomic.LoadUint32(&e.count); cur != val {
		*old = int32(cur)
		if e.stats != nil {
			e.stats.waitFast.Add(1)
		}
		return Changed
	}
	if timeout == 0 {
		return TimedOut
	}
	if e.stats != nil {
		e.stats.waitSlow.Add(1)
	}

	atomic.AddInt32(&e.waiters, 1)
	r := e.parker.Park(&e.count, val, timeout)
	atomic.AddInt32(&e.waiters, -1)

	*old = e.Value()
	return r
}

// WaitUntil is [Event.Wait] with an absolute deadline.
func (e *Event) WaitUntil(deadline time.Time, old *int32) WakeupResult {
	return e.Wait(Until(deadline), old)
}

// Waiters returns the number of goroutines currently inside Wait's slow
// path. Diagnostic only.
func (e *Event) Waiters() int {
	return int(atomic.LoadInt32(&e.waiters))
}

// Stats is a snapshot of an event's path counters.
type Stats struct {
	WaitFast int64 // waits satisfied without parking
	WaitSlow int64 // waits that entered the parker
	WakeFast int64 // signals with no parked waiter
	WakeSlow int64 // signals that entered the parker
}

type eventStats struct {
	waitFast atomix.Int64
	waitSlow atomix.Int64
	wakeFast atomix.Int64
	wakeSlow atomix.Int64
}

// Stats returns the path counters, or zero when the event was created
// without [WithStats].
func (e *Event) Stats() Stats {
	if e.stats == nil {
		return Stats{}
	}
	return Stats{
		WaitFast: e.stats.waitFast.Load(),
		WaitSlow: e.stats.waitSlow.Load(),
		WakeFast: e.stats.wakeFast.Load(),
		WakeSlow: e.stats.wakeSlow.Load(),
	}
}
