// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import "time"

// FIFO is the combined producer-consumer interface shared by [Queue]
// and [Ring].
//
// Both operations are non-blocking and return ErrWouldBlock when they
// cannot proceed. Wrap a [Queue] in a [BlockingQueue] to wait instead.
//
// Example:
//
//	q := lfds.Build[int](lfds.New(1024))
//
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Handle full queue
//	}
//
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type FIFO[T any] interface {
	Producer[T]
	Consumer[T]
	// Cap returns the number of elements the container can hold,
	// or -1 when it is unbounded.
	Cap() int
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The
// container stores a copy, so the original can be modified after Enqueue
// returns.
type Producer[T any] interface {
	// Enqueue adds an element (non-blocking).
	// Returns nil on success, ErrWouldBlock if there is no room.
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// The vacated slot or node is cleared so referenced objects can be
// collected.
type Consumer[T any] interface {
	// Dequeue removes and returns the oldest element (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the container is empty.
	Dequeue() (T, error)
}

// Terminator is implemented by the blocking wrappers.
//
// Terminate is idempotent. After it returns, every blocked call wakes and
// every later blocking call fails fast with ErrTerminated.
type Terminator interface {
	Terminate()
	Terminated() bool
}

// Forever is the timeout that never expires.
const Forever time.Duration = -1

// deadline tracks the remaining time of a blocking operation.
// The clock is read only when the operation actually has to wait.
type deadline struct {
	timeout time.Duration
	at      time.Time
}

// remaining returns the time left, Forever for no timeout, or 0 once
// the deadline has passed.
func (d *deadline) remaining() time.Duration {
	if d.timeout < 0 {
		return Forever
	}
	if d.at.IsZero() {
		d.at = time.Now().Add(d.timeout)
		return d.timeout
	}
	r := time.Until(d.at)
	if r < 0 {
		return 0
	}
	return r
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padDWord is padding to fill cache line after a 16-byte field.
type padDWord [64 - 16]byte
