// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"math"
	"math/bits"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfds/atomics"
	"code.hybscloud.com/spin"
)

// Ref addresses a node in its [Arena]. Refs are 1-based; 0 is nil.
type Ref uint32

const (
	// chunkShift sizes the first chunk at 64 nodes. Chunk k holds 64<<k.
	chunkShift = 6
	firstChunk = 1 << chunkShift
	// maxChunks chunks cover every index a 32-bit Ref can name.
	maxChunks = 33 - chunkShift
	// maxNodes is the largest node count a Ref can address.
	maxNodes = math.MaxUint32 - 1
)

// Node ownership bits.
const (
	stateFree   = 0 // on the arena free list
	stateLinked = 1 // reachable from a stack or queue
)

const (
	nodeMagic = 0xFEDCBA00
	magicMask = 0xFFFFFF00
	classMask = 0x000000FF
)

// Node is an arena slot: an intrusive link plus the caller's payload.
//
// A node has exactly one owner at a time: a container's chain, the arena
// free list, or the goroutine that just unlinked it. Ownership moves only
// through a successful CAS. Only Value belongs to the caller.
type Node[T any] struct {
	next  atomics.Tagged // successor ref + version
	state atomix.Uint64  // ownership bits
	ref   Ref
	tag   uint32 // nodeMagic | size class
	Value T
}

// Ref returns the node's arena reference.
func (n *Node[T]) Ref() Ref {
	return n.ref
}

// Next returns the ref of the node linked after n, or 0.
// Meaningful only while the caller owns the chain n belongs to, such as
// a chain detached by [Stack.Reset].
func (n *Node[T]) Next() Ref {
	return Ref(atomics.RefOf(n.next.Load()))
}

// Valid reports whether the node carries the arena's magic marker.
func (n *Node[T]) Valid() bool {
	return n.tag&magicMask == nodeMagic
}

// SizeClass returns the size class stamped on the node by a
// [CachedAllocator], or 0 for plain arena nodes.
func (n *Node[T]) SizeClass() int {
	return int(n.tag & classMask)
}

// link points n at next, bumping the link's version.
func (n *Node[T]) link(next Ref) {
	n.next.Store(atomics.Bump(n.next.LoadRelaxed(), uint32(next)))
}

// markLinked claims n for a container.
// Panics if n is on the free list or already linked.
func (n *Node[T]) markLinked() {
	if atomics.BitTest(&n.state, stateFree) {
		panic("lfds: push of a free node")
	}
	if atomics.BitTestAndSet(&n.state, stateLinked) {
		panic("lfds: push of a linked node")
	}
}

func (n *Node[T]) unmarkLinked() {
	atomics.BitClear(&n.state, stateLinked)
}

// Arena owns every node of one element type.
//
// Nodes live in chunks that double in size and are never moved or
// released, so a stale Ref held by a slow goroutine always resolves to
// valid memory. Whether that memory still holds the node the goroutine
// expects is decided by the versioned CAS that follows.
//
// Alloc first pops the free list, which is itself a versioned [Stack],
// then carves a fresh slot by bumping a cursor. A bounded arena stops
// carving at its limit.
//
// Memory: O(peak live nodes); chunk k holds 64<<k nodes.
type Arena[T any] struct {
	_      pad
	cursor atomix.Uint64 // next fresh index
	_      pad
	free   Stack[T]
	limit  uint64
	chunks [maxChunks]atomix.Pointer[[]Node[T]]
}

// NewArena creates an arena holding at most limit nodes.
// limit == 0 creates an unbounded arena.
//
// Panics if limit is negative.
func NewArena[T any](limit int) *Arena[T] {
	if limit < 0 {
		panic("lfds: arena limit must be >= 0")
	}
	a := &Arena[T]{limit: maxNodes}
	if limit > 0 && uint64(limit) < maxNodes {
		a.limit = uint64(limit)
	}
	a.free.arena = a
	return a
}

// Node resolves ref. Node(0) returns nil.
func (a *Arena[T]) Node(ref Ref) *Node[T] {
	if ref == 0 {
		return nil
	}
	k, off := locate(uint64(ref) - 1)
	return &(*a.chunks[k].LoadAcquire())[off]
}

// Alloc returns a node owned by the caller, or nil if a bounded arena is
// exhausted. The node's Value holds whatever the previous owner left.
func (a *Arena[T]) Alloc() *Node[T] {
	if n := a.free.pop(); n != nil {
		if !atomics.BitTestAndClear(&n.state, stateFree) {
			panic("lfds: free list held a node not marked free")
		}
		return n
	}

	sw := spin.Wait{}
	for {
		idx := a.cursor.LoadAcquire()
		if idx >= a.limit {
			return nil
		}
		if a.cursor.CompareAndSwapAcqRel(idx, idx+1) {
			return a.fresh(idx)
		}
		sw.Once()
	}
}

// Free returns n to the arena.
//
// Panics if n is already free or still linked into a container.
func (a *Arena[T]) Free(n *Node[T]) {
	if atomics.BitTest(&n.state, stateLinked) {
		panic("lfds: free of a linked node")
	}
	if atomics.BitTestAndSet(&n.state, stateFree) {
		panic("lfds: double free")
	}
	a.free.push(n)
}

// Len returns the number of nodes ever carved, free or live.
func (a *Arena[T]) Len() int {
	return int(a.cursor.LoadAcquire())
}

// Cap returns the node limit, or -1 when unbounded.
func (a *Arena[T]) Cap() int {
	if a.limit == maxNodes {
		return -1
	}
	return int(a.limit)
}

// FreeLen walks the free list and returns its length.
// Not thread-safe; for diagnostics only.
func (a *Arena[T]) FreeLen() int {
	return a.free.UnsafeSize()
}

// fresh materializes slot idx, installing its chunk if needed.
func (a *Arena[T]) fresh(idx uint64) *Node[T] {
	k, off := locate(idx)
	c := a.chunks[k].LoadAcquire()
	if c == nil {
		s := make([]Node[T], firstChunk<<k)
		if a.chunks[k].CompareAndSwapAcqRel(nil, &s) {
			c = &s
		} else {
			c = a.chunks[k].LoadAcquire()
		}
	}
	n := &(*c)[off]
	n.ref = Ref(idx + 1)
	n.tag = nodeMagic
	return n
}

// locate maps a 0-based index to its chunk and offset.
func locate(idx uint64) (chunk int, off uint64) {
	j := idx + firstChunk
	k := bits.Len64(j) - 1 - chunkShift
	return k, j - firstChunk<<k
}
