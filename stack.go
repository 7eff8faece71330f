// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"code.hybscloud.com/lfds/atomics"
	"code.hybscloud.com/spin"
)

// Stack is a lock-free intrusive LIFO over the nodes of one [Arena].
//
// The head is a tagged word: the ref of the top node and a 32-bit version
// that every successful Push, Pop, and Reset increments. A Pop that read
// the head, stalled while the top node was popped, freed, reallocated and
// pushed again, fails its CAS on the version even though the ref matches.
//
// The version wraps after 2^32 operations. The ABA window is therefore
// bounded, not closed: a goroutine stalled across exactly 2^32 head
// updates could still succeed with a stale successor.
//
// Push and Pop never allocate and never block.
type Stack[T any] struct {
	_     pad
	head  atomics.Tagged
	_     pad
	arena *Arena[T]
}

// NewStack creates an empty stack whose nodes come from a.
func NewStack[T any](a *Arena[T]) *Stack[T] {
	return &Stack[T]{arena: a}
}

// Arena returns the arena the stack's nodes belong to.
func (s *Stack[T]) Arena() *Arena[T] {
	return s.arena
}

// Push links n on top of the stack.
// n must come from the stack's arena and be owned by the caller.
func (s *Stack[T]) Push(n *Node[T]) {
	n.markLinked()
	s.push(n)
}

// Pop unlinks and returns the top node, or nil if the stack is empty.
// The caller owns the returned node and its next link is cleared.
func (s *Stack[T]) Pop() *Node[T] {
	n := s.pop()
	if n != nil {
		n.unmarkLinked()
	}
	return n
}

// Reset detaches the whole chain with one CAS and returns its first node,
// or nil if the stack was empty. With reverse set, the chain is returned
// in push order instead of pop order.
//
// The caller owns every node of the chain; walk it with [Node.Next] and
// [Arena.Node].
func (s *Stack[T]) Reset(reverse bool) *Node[T] {
	n := s.detach()
	if n == nil {
		return nil
	}
	for it := n; it != nil; it = s.arena.Node(it.Next()) {
		it.unmarkLinked()
	}
	if reverse {
		n = s.reverse(n)
	}
	return n
}

// Empty reports whether the stack currently has no nodes.
func (s *Stack[T]) Empty() bool {
	return s.head.Ref() == 0
}

// Version returns the head's current version.
func (s *Stack[T]) Version() uint32 {
	return s.head.Version()
}

// UnsafeSize walks the chain and returns its length.
// Not thread-safe; for diagnostics only.
func (s *Stack[T]) UnsafeSize() int {
	size := 0
	for it := s.arena.Node(Ref(s.head.Ref())); it != nil; it = s.arena.Node(it.Next()) {
		size++
	}
	return size
}

func (s *Stack[T]) push(n *Node[T]) {
	sw := spin.Wait{}
	for {
		old := s.head.Load()
		n.link(Ref(atomics.RefOf(old)))
		if s.head.CompareAndSwap(old, atomics.Bump(old, uint32(n.ref))) {
			return
		}
		sw.Once()
	}
}

func (s *Stack[T]) pop() *Node[T] {
	sw := spin.Wait{}
	for {
		old := s.head.Load()
		ref := atomics.RefOf(old)
		if ref == 0 {
			return nil
		}
		// n may be popped and reused by another goroutine before the CAS;
		// the read stays memory-safe and the version rejects the CAS.
		n := s.arena.Node(Ref(ref))
		next := atomics.RefOf(n.next.Load())
		if s.head.CompareAndSwap(old, atomics.Bump(old, next)) {
			n.link(0)
			return n
		}
		sw.Once()
	}
}

func (s *Stack[T]) detach() *Node[T] {
	sw := spin.Wait{}
	for {
		old := s.head.Load()
		ref := atomics.RefOf(old)
		if ref == 0 {
			return nil
		}
		if s.head.CompareAndSwap(old, atomics.Bump(old, 0)) {
			return s.arena.Node(Ref(ref))
		}
		sw.Once()
	}
}

// reverse relinks an owned chain in place and returns its new first node.
func (s *Stack[T]) reverse(n *Node[T]) *Node[T] {
	var prev *Node[T]
	for n != nil {
		next := s.arena.Node(n.Next())
		if prev == nil {
			n.link(0)
		} else {
			n.link(prev.ref)
		}
		prev, n = n, next
	}
	return prev
}
