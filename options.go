// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import "code.hybscloud.com/lfds/futex"

// Options configures container creation and algorithm selection.
type Options struct {
	// Producer/Consumer constraints (determines container type)
	singleProducer bool
	singleConsumer bool

	// Capacity and waiting behavior
	unbounded bool
	capacity  int

	// Event configuration for blocking containers
	eventOpts []futex.Option
}

// Builder creates containers with fluent configuration.
//
// Example:
//
//	// SPSC ring (optimal for single producer/consumer)
//	r := lfds.BuildRing[Event](lfds.New(1024).SingleProducer().SingleConsumer())
//
//	// MPMC linked queue (default, general purpose)
//	q := lfds.BuildQueue[Request](lfds.New(4096))
//
//	// Unbounded blocking queue parked on futex(2)
//	bq := lfds.BuildBlocking[Job](lfds.New(1).Unbounded().Futex())
type Builder struct {
	opts Options
}

// New creates a builder with the given capacity.
//
// For rings the capacity rounds up to the next power of 2 and one slot
// stays empty. Linked queues and stacks hold exactly capacity elements.
//
// Panics if capacity < 1.
func New(capacity int) *Builder {
	if capacity < 1 {
		panic("lfds: capacity must be >= 1")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will enqueue.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Unbounded removes the capacity limit. Rings cannot be unbounded, so
// Build selects a linked queue.
func (b *Builder) Unbounded() *Builder {
	b.opts.unbounded = true
	return b
}

// Futex parks blocking containers on futex(2) where available.
func (b *Builder) Futex() *Builder {
	b.opts.eventOpts = append(b.opts.eventOpts, futex.WithFutex())
	return b
}

// limit returns the element limit for linked containers (0 = unbounded).
func (b *Builder) limit() int {
	if b.opts.unbounded {
		return 0
	}
	return b.opts.capacity
}

// Build creates a FIFO[T] with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleProducer + SingleConsumer, bounded → Ring (Lamport ring buffer)
//	Anything else                            → Queue (Michael-Scott)
//
// For type-safe returns with concrete types, use:
//   - BuildRing[T](b) → *Ring[T]
//   - BuildQueue[T](b) → *Queue[T]
//   - BuildBlocking[T](b) → *BlockingQueue[T]
func Build[T any](b *Builder) FIFO[T] {
	if b.opts.singleProducer && b.opts.singleConsumer && !b.opts.unbounded && b.opts.capacity >= 2 {
		return NewRing[T](b.opts.capacity)
	}
	return NewQueue[T](b.limit())
}

// BuildRing creates a Ring with compile-time type safety.
// Panics if builder is not configured with SingleProducer().SingleConsumer()
// or is unbounded.
func BuildRing[T any](b *Builder) *Ring[T] {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("lfds: BuildRing requires SingleProducer().SingleConsumer()")
	}
	if b.opts.unbounded {
		panic("lfds: BuildRing requires a bounded capacity")
	}
	return NewRing[T](b.opts.capacity)
}

// BuildQueue creates a lock-free linked queue.
// Producer/consumer constraints are accepted and ignored: the queue is
// always safe for any number of both.
func BuildQueue[T any](b *Builder) *Queue[T] {
	return NewQueue[T](b.limit())
}

// BuildBlocking creates a blocking linked queue.
func BuildBlocking[T any](b *Builder) *BlockingQueue[T] {
	return NewBlockingQueue[T](b.limit(), b.opts.eventOpts...)
}

// BuildStack creates a lock-free stack backed by its own arena.
// The arena holds capacity nodes, or is unbounded.
func BuildStack[T any](b *Builder) *Stack[T] {
	return NewStack(NewArena[T](b.limit()))
}

// BuildBlockingStack creates a blocking stack backed by its own arena.
func BuildBlockingStack[T any](b *Builder) *BlockingStack[T] {
	return NewBlockingStack(NewArena[T](b.limit()), b.opts.eventOpts...)
}
