// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"code.hybscloud.com/lfds/atomics"
	"code.hybscloud.com/spin"
)

// Queue is a lock-free MPMC FIFO over the nodes of one [Arena].
//
// Based on the Michael-Scott two-pointer queue with counted pointers.
// Head and tail are double-width words holding a node ref and a 64-bit
// modification count. Each node's next link is a tagged word whose
// version is bumped whenever it is rewritten, so an enqueuer that stalled
// on a recycled tail cannot link behind it.
//
// The head always points at a sentinel whose value has already been
// consumed. Dequeue copies the successor's value, swings the head, and
// frees the old sentinel back to the arena. The tail may lag one node and
// is advanced by whichever goroutine notices.
//
// A bounded queue of capacity K uses an arena of K+1 nodes so that
// exactly K elements fit beside the sentinel.
//
// Memory: O(peak length) nodes, never returned to the Go heap
type Queue[T any] struct {
	_        pad
	head     atomics.DWord // consumer side
	_        padDWord
	tail     atomics.DWord // producer side
	_        padDWord
	arena    *Arena[T]
	capacity int
}

// NewQueue creates a queue holding at most capacity elements.
// capacity == 0 creates an unbounded queue.
//
// Panics if capacity < 0.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		panic("lfds: capacity must be >= 0")
	}
	limit := 0
	if capacity > 0 {
		limit = capacity + 1
	}
	q := newQueue(NewArena[T](limit))
	q.capacity = capacity
	if capacity == 0 {
		q.capacity = -1
	}
	return q
}

// NewQueueWith creates a queue whose nodes come from a, which may be
// shared with other queues. The queue's capacity is whatever a can supply.
//
// Panics if a cannot supply the sentinel node.
func NewQueueWith[T any](a *Arena[T]) *Queue[T] {
	q := newQueue(a)
	q.capacity = a.Cap()
	return q
}

func newQueue[T any](a *Arena[T]) *Queue[T] {
	sentinel := a.Alloc()
	if sentinel == nil {
		panic("lfds: arena exhausted before sentinel allocation")
	}
	var zero T
	sentinel.Value = zero
	sentinel.link(0)
	sentinel.markLinked()

	q := &Queue[T]{arena: a}
	q.head.StoreRelaxed(uint64(sentinel.ref), 0)
	q.tail.StoreRelaxed(uint64(sentinel.ref), 0)
	return q
}

// Enqueue adds an element to the tail of the queue.
// Returns ErrWouldBlock if the arena cannot supply a node.
func (q *Queue[T]) Enqueue(elem *T) error {
	n := q.arena.Alloc()
	if n == nil {
		return ErrWouldBlock
	}
	n.Value = *elem
	n.link(0)
	n.markLinked()

	sw := spin.Wait{}
	for {
		tailRef, tailCnt := q.tail.Load()
		t := q.arena.Node(Ref(tailRef))
		next := t.next.Load()
		if lo, hi := q.tail.Load(); lo != tailRef || hi != tailCnt {
			sw.Once()
			continue
		}

		if nextRef := atomics.RefOf(next); nextRef != 0 {
			// Tail is lagging; help it forward.
			q.tail.CompareAndSwap(tailRef, tailCnt, uint64(nextRef), tailCnt+1)
			continue
		}

		if t.next.CompareAndSwap(next, atomics.Bump(next, uint32(n.ref))) {
			q.tail.CompareAndSwap(tailRef, tailCnt, uint64(n.ref), tailCnt+1)
			return nil
		}
		sw.Once()
	}
}

// Dequeue removes and returns the element at the head of the queue.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Queue[T]) Dequeue() (T, error) {
	sw := spin.Wait{}
	for {
		headRef, headCnt := q.head.Load()
		tailRef, tailCnt := q.tail.Load()
		h := q.arena.Node(Ref(headRef))
		nextRef := atomics.RefOf(h.next.Load())
		if lo, hi := q.head.Load(); lo != headRef || hi != headCnt {
			sw.Once()
			continue
		}

		if headRef == tailRef {
			if nextRef == 0 {
				var zero T
				return zero, ErrWouldBlock
			}
			q.tail.CompareAndSwap(tailRef, tailCnt, uint64(nextRef), tailCnt+1)
			continue
		}
		if nextRef == 0 {
			continue
		}

		// The copy is discarded if the CAS below fails.
		next := q.arena.Node(Ref(nextRef))
		elem := next.Value
		if q.head.CompareAndSwap(headRef, headCnt, uint64(nextRef), headCnt+1) {
			// h is ours now. next became the sentinel and keeps its value
			// until the following dequeue retires it.
			var zero T
			h.Value = zero
			h.unmarkLinked()
			q.arena.Free(h)
			return elem, nil
		}
		sw.Once()
	}
}

// Empty reports whether the queue currently has no elements.
func (q *Queue[T]) Empty() bool {
	headRef, _ := q.head.Load()
	return q.arena.Node(Ref(headRef)).Next() == 0
}

// Cap returns the maximum number of elements, or -1 when unbounded.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

// Arena returns the arena the queue's nodes come from.
func (q *Queue[T]) Arena() *Arena[T] {
	return q.arena
}

// UnsafeSize walks the queue and returns its length.
// Not thread-safe; for diagnostics only.
func (q *Queue[T]) UnsafeSize() int {
	size := 0
	q.Range(func(T) bool {
		size++
		return true
	})
	return size
}

// Range calls fn on each element from head to tail until fn returns false.
// Not thread-safe; for diagnostics only.
func (q *Queue[T]) Range(fn func(T) bool) {
	headRef, _ := q.head.Load()
	h := q.arena.Node(Ref(headRef))
	for it := q.arena.Node(h.Next()); it != nil; it = q.arena.Node(it.Next()) {
		if !fn(it.Value) {
			return
		}
	}
}

// Close returns every node, the sentinel included, to the arena.
// The queue must not be used afterwards. Close is meant for queues built
// with [NewQueueWith] whose arena outlives them.
func (q *Queue[T]) Close() {
	headRef, _ := q.head.Load()
	var zero T
	for it := q.arena.Node(Ref(headRef)); it != nil; {
		next := q.arena.Node(it.Next())
		it.Value = zero
		it.unmarkLinked()
		q.arena.Free(it)
		it = next
	}
	q.head.StoreRelaxed(0, 0)
	q.tail.StoreRelaxed(0, 0)
}
