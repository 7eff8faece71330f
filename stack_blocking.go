// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfds/futex"
)

// BlockingStack is a [Stack] whose consumers can wait for nodes.
//
// Push signals a "not empty" event. Pop and ResetWait park on that event
// while the stack is empty, until a push, a broadcast [BlockingStack.Signal],
// [BlockingStack.Terminate], or the timeout.
type BlockingStack[T any] struct {
	stack      Stack[T]
	notEmpty   *futex.Event
	broadcasts atomix.Uint64 // bumped by Signal
	terminated atomix.Bool
}

// NewBlockingStack creates an empty blocking stack whose nodes come from a.
// opts configure the underlying event, for example [futex.WithFutex].
func NewBlockingStack[T any](a *Arena[T], opts ...futex.Option) *BlockingStack[T] {
	s := &BlockingStack[T]{notEmpty: futex.NewEvent(1, opts...)}
	s.stack.arena = a
	return s
}

// Arena returns the arena the stack's nodes belong to.
func (s *BlockingStack[T]) Arena() *Arena[T] {
	return s.stack.arena
}

// Push links n on top of the stack and wakes one waiter.
func (s *BlockingStack[T]) Push(n *Node[T]) {
	s.stack.Push(n)
	s.notEmpty.Signal(1)
}

// TryPop pops without waiting. It returns nil if the stack is empty.
func (s *BlockingStack[T]) TryPop() *Node[T] {
	return s.stack.Pop()
}

// Pop pops the top node, waiting up to timeout for one to arrive.
// timeout < 0 waits forever.
//
// Returns ErrTimedOut when the timeout elapses, ErrTerminated once the
// stack is terminated, and ErrWouldBlock when woken by
// [BlockingStack.Signal] with the stack still empty.
func (s *BlockingStack[T]) Pop(timeout time.Duration) (*Node[T], error) {
	var n *Node[T]
	err := s.wait(timeout, func() bool {
		n = s.stack.Pop()
		return n != nil
	})
	return n, err
}

// TryReset detaches the whole chain without waiting.
func (s *BlockingStack[T]) TryReset(reverse bool) *Node[T] {
	return s.stack.Reset(reverse)
}

// ResetWait detaches the whole chain, waiting up to timeout for the stack
// to become non-empty. Errors follow [BlockingStack.Pop].
func (s *BlockingStack[T]) ResetWait(timeout time.Duration, reverse bool) (*Node[T], error) {
	var n *Node[T]
	err := s.wait(timeout, func() bool {
		n = s.stack.Reset(reverse)
		return n != nil
	})
	return n, err
}

// Signal wakes every waiter without pushing. Woken callers that still
// find the stack empty return ErrWouldBlock.
func (s *BlockingStack[T]) Signal() {
	s.broadcasts.AddAcqRel(1)
	s.notEmpty.SignalAll()
}

// Terminate wakes every waiter and makes all later Pop and ResetWait
// calls fail with ErrTerminated. Idempotent.
func (s *BlockingStack[T]) Terminate() {
	s.terminated.StoreRelease(true)
	s.notEmpty.SignalAll()
}

// Terminated reports whether Terminate has been called.
func (s *BlockingStack[T]) Terminated() bool {
	return s.terminated.LoadAcquire()
}

// Empty reports whether the stack currently has no nodes.
func (s *BlockingStack[T]) Empty() bool {
	return s.stack.Empty()
}

// UnsafeSize walks the chain and returns its length.
// Not thread-safe; for diagnostics only.
func (s *BlockingStack[T]) UnsafeSize() int {
	return s.stack.UnsafeSize()
}

// wait runs try until it succeeds, parking between attempts.
func (s *BlockingStack[T]) wait(timeout time.Duration, try func() bool) error {
	if s.terminated.LoadAcquire() {
		return ErrTerminated
	}
	gen := s.broadcasts.LoadAcquire()
	dl := deadline{timeout: timeout}
	for {
		old := s.notEmpty.Value()
		if try() {
			return nil
		}
		if s.terminated.LoadAcquire() {
			return ErrTerminated
		}
		if s.broadcasts.LoadAcquire() != gen {
			return ErrWouldBlock
		}
		rem := dl.remaining()
		if rem == 0 {
			return ErrTimedOut
		}
		r := s.notEmpty.Wait(rem, &old)
		if s.terminated.LoadAcquire() {
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
