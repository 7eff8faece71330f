// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfds/futex"
)

// BlockingQueue wraps a [Queue] with "not empty" and "not full" events.
//
// Enqueue signals "not empty" after a successful insert; Dequeue signals
// "not full" after a successful removal from a bounded queue. When an
// operation cannot proceed it snapshots the matching event, retries, and
// parks until the event moves, the timeout elapses, or the queue is
// terminated. Unbounded queues never wait on "not full".
//
// The Try variants never block and ignore termination.
type BlockingQueue[T any] struct {
	q          *Queue[T]
	notEmpty   *futex.Event
	notFull    *futex.Event
	terminated atomix.Bool
	bounded    bool
}

// NewBlockingQueue creates a blocking queue holding at most capacity
// elements. capacity == 0 creates an unbounded queue.
// opts configure both events, for example [futex.WithFutex].
func NewBlockingQueue[T any](capacity int, opts ...futex.Option) *BlockingQueue[T] {
	return WrapBlocking(NewQueue[T](capacity), opts...)
}

// WrapBlocking adds blocking operations to an existing queue.
// The queue must not be used directly afterwards.
func WrapBlocking[T any](q *Queue[T], opts ...futex.Option) *BlockingQueue[T] {
	return &BlockingQueue[T]{
		q:        q,
		notEmpty: futex.NewEvent(1, opts...),
		notFull:  futex.NewEvent(1, opts...),
		bounded:  q.Cap() >= 0,
	}
}

// TryEnqueue adds an element without waiting.
// Returns ErrWouldBlock if the queue is full.
func (b *BlockingQueue[T]) TryEnqueue(elem *T) error {
	if err := b.q.Enqueue(elem); err != nil {
		return err
	}
	b.notEmpty.Signal(1)
	return nil
}

// TryDequeue removes an element without waiting.
// Returns ErrWouldBlock if the queue is empty.
func (b *BlockingQueue[T]) TryDequeue() (T, error) {
	elem, err := b.q.Dequeue()
	if err != nil {
		return elem, err
	}
	if b.bounded {
		b.notFull.Signal(1)
	}
	return elem, nil
}

// Enqueue adds an element, waiting up to timeout for room in a bounded
// queue. timeout < 0 waits forever.
//
// Returns ErrTerminated once the queue is terminated and ErrTimedOut when
// the timeout elapses first.
func (b *BlockingQueue[T]) Enqueue(elem *T, timeout time.Duration) error {
	if b.terminated.LoadAcquire() {
		return ErrTerminated
	}
	if !b.bounded {
		return b.TryEnqueue(elem)
	}
	return b.wait(b.notFull, timeout, func() bool {
		return b.TryEnqueue(elem) == nil
	})
}

// Dequeue removes an element, waiting up to timeout for one to arrive.
// timeout < 0 waits forever.
//
// Returns ErrTerminated once the queue is terminated and ErrTimedOut when
// the timeout elapses first.
func (b *BlockingQueue[T]) Dequeue(timeout time.Duration) (T, error) {
	var elem T
	if b.terminated.LoadAcquire() {
		return elem, ErrTerminated
	}
	err := b.wait(b.notEmpty, timeout, func() bool {
		v, err := b.TryDequeue()
		if err != nil {
			return false
		}
		elem = v
		return true
	})
	return elem, err
}

// Terminate wakes every waiter on both sides and makes all later blocking
// calls fail with ErrTerminated. Idempotent.
func (b *BlockingQueue[T]) Terminate() {
	b.terminated.StoreRelease(true)
	b.notEmpty.SignalAll()
	b.notFull.SignalAll()
}

// Terminated reports whether Terminate has been called.
func (b *BlockingQueue[T]) Terminated() bool {
	return b.terminated.LoadAcquire()
}

// Reset clears the terminated flag so the queue can be reused.
// Must not race with blocking calls.
func (b *BlockingQueue[T]) Reset() {
	b.terminated.StoreRelease(false)
}

// Empty reports whether the queue currently has no elements.
func (b *BlockingQueue[T]) Empty() bool {
	return b.q.Empty()
}

// Cap returns the maximum number of elements, or -1 when unbounded.
func (b *BlockingQueue[T]) Cap() int {
	return b.q.Cap()
}

// UnsafeSize walks the queue and returns its length.
// Not thread-safe; for diagnostics only.
func (b *BlockingQueue[T]) UnsafeSize() int {
	return b.q.UnsafeSize()
}

// wait retries try, parking on ev between attempts.
func (b *BlockingQueue[T]) wait(ev *futex.Event, timeout time.Duration, try func() bool) error {
	dl := deadline{timeout: timeout}
	for {
		old := ev.Value()
		if try() {
			return nil
		}
		if b.terminated.LoadAcquire() {
			return ErrTerminated
		}
		rem := dl.remaining()
		if rem == 0 {
			return ErrTimedOut
		}
		r := ev.Wait(rem, &old)
		if b.terminated.LoadAcquire() {
			return ErrTerminated
		}
		if r == futex.TimedOut {
			if try() {
				return nil
			}
			return ErrTimedOut
		}
	}
}
