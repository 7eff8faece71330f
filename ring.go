// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import "code.hybscloud.com/atomix"

// Ring is a wait-free single-producer single-consumer bounded FIFO.
//
// Based on Lamport's ring buffer with cached index optimization. The
// producer caches the consumer's head index, and vice versa, reducing
// cross-core cache line traffic. Indices are kept modulo the slot count
// and one slot always stays empty, so a ring of N slots holds N-1
// elements and head == tail means empty.
//
// Exactly one goroutine may call the producer methods (Enqueue, Emplace,
// Commit) and exactly one the consumer methods (Dequeue, DequeueInto,
// Peek, Discard, Clear). Other use is a contract violation and is not
// detected.
//
// Memory: O(capacity) with no per-slot overhead
type Ring[T any] struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	mask       uint64
}

// NewRing creates a ring of capacity slots, rounded up to the next power
// of 2. The ring holds one element less than its slot count.
//
// Panics if capacity < 2.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 2 {
		panic("lfds: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &Ring[T]{
		buffer: make([]T, n),
		mask:   n - 1,
	}
}

// full reports whether the slot after tail is the consumer's head,
// refreshing the cached head once before giving up.
func (r *Ring[T]) full(next uint64) bool {
	if next != r.cachedHead {
		return false
	}
	r.cachedHead = r.head.LoadAcquire()
	return next == r.cachedHead
}

// Enqueue copies elem into the ring (producer only).
// Returns ErrWouldBlock if the ring is full.
func (r *Ring[T]) Enqueue(elem *T) error {
	tail := r.tail.LoadRelaxed()
	next := (tail + 1) & r.mask
	if r.full(next) {
		return ErrWouldBlock
	}

	r.buffer[tail] = *elem
	r.tail.StoreRelease(next)
	return nil
}

// Emplace returns the next free slot for in-place construction, or nil
// if the ring is full (producer only). The slot becomes visible to the
// consumer only after [Ring.Commit].
func (r *Ring[T]) Emplace() *T {
	tail := r.tail.LoadRelaxed()
	if r.full((tail + 1) & r.mask) {
		return nil
	}
	return &r.buffer[tail]
}

// Commit publishes the slot returned by the last successful Emplace
// (producer only). Calling Commit without such a slot corrupts the ring.
func (r *Ring[T]) Commit() {
	tail := r.tail.LoadRelaxed()
	r.tail.StoreRelease((tail + 1) & r.mask)
}

// empty reports whether head has caught up with the producer,
// refreshing the cached tail once before giving up.
func (r *Ring[T]) empty(head uint64) bool {
	if head != r.cachedTail {
		return false
	}
	r.cachedTail = r.tail.LoadAcquire()
	return head == r.cachedTail
}

// Dequeue removes and returns the oldest element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the ring is empty.
func (r *Ring[T]) Dequeue() (T, error) {
	var zero T
	head := r.head.LoadRelaxed()
	if r.empty(head) {
		return zero, ErrWouldBlock
	}

	elem := r.buffer[head]
	r.buffer[head] = zero
	r.head.StoreRelease((head + 1) & r.mask)
	return elem, nil
}

// DequeueInto moves the oldest element into out (consumer only).
// Returns false if the ring is empty.
func (r *Ring[T]) DequeueInto(out *T) bool {
	head := r.head.LoadRelaxed()
	if r.empty(head) {
		return false
	}

	var zero T
	*out = r.buffer[head]
	r.buffer[head] = zero
	r.head.StoreRelease((head + 1) & r.mask)
	return true
}

// Peek returns the oldest slot without consuming it, or nil if the ring
// is empty (consumer only). The pointer is valid until the next Discard,
// Dequeue, or Clear.
func (r *Ring[T]) Peek() *T {
	head := r.head.LoadRelaxed()
	if r.empty(head) {
		return nil
	}
	return &r.buffer[head]
}

// Discard drops the oldest element (consumer only).
// Returns false if the ring is empty.
func (r *Ring[T]) Discard() bool {
	head := r.head.LoadRelaxed()
	if r.empty(head) {
		return false
	}

	var zero T
	r.buffer[head] = zero
	r.head.StoreRelease((head + 1) & r.mask)
	return true
}

// Clear drops every element currently visible to the consumer
// (consumer only).
func (r *Ring[T]) Clear() {
	for r.Discard() {
	}
}

// Empty reports whether the ring holds no elements.
// Exact only when called from the consumer.
func (r *Ring[T]) Empty() bool {
	return r.head.LoadAcquire() == r.tail.LoadAcquire()
}

// Full reports whether the ring has no free slot.
// Exact only when called from the producer.
func (r *Ring[T]) Full() bool {
	return (r.tail.LoadAcquire()+1)&r.mask == r.head.LoadAcquire()
}

// Len returns the number of elements. Approximate under concurrency.
func (r *Ring[T]) Len() int {
	return int((r.tail.LoadAcquire() - r.head.LoadAcquire()) & r.mask)
}

// Cap returns the number of elements the ring can hold (slots - 1).
func (r *Ring[T]) Cap() int {
	return int(r.mask)
}
