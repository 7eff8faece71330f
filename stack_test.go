// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/lfds"
	"pgregory.net/rapid"
)

// =============================================================================
// Arena
// =============================================================================

func TestArenaGrowsAcrossChunks(t *testing.T) {
	a := lfds.NewArena[int](0)
	if a.Cap() != -1 {
		t.Fatalf("Cap: got %d, want -1", a.Cap())
	}
	if a.Node(0) != nil {
		t.Fatalf("Node(0): got non-nil")
	}

	// 64 + 128 + 256 nodes span the first three chunks.
	const n = 64 + 128 + 256 + 1
	nodes := make([]*lfds.Node[int], n)
	for i := range nodes {
		nodes[i] = a.Alloc()
		nodes[i].Value = i
		if got := nodes[i].Ref(); got != lfds.Ref(i+1) {
			t.Fatalf("Ref of node %d: got %d, want %d", i, got, i+1)
		}
		if !nodes[i].Valid() {
			t.Fatalf("node %d not Valid", i)
		}
	}
	for i, nd := range nodes {
		if a.Node(nd.Ref()) != nd {
			t.Fatalf("Node(Ref) of node %d resolved to a different node", i)
		}
		if a.Node(nd.Ref()).Value != i {
			t.Fatalf("Value of node %d: got %d", i, a.Node(nd.Ref()).Value)
		}
	}
	if a.Len() != n {
		t.Fatalf("Len: got %d, want %d", a.Len(), n)
	}
}

func TestArenaBoundedReuse(t *testing.T) {
	a := lfds.NewArena[string](2)
	n1, n2 := a.Alloc(), a.Alloc()
	if n1 == nil || n2 == nil {
		t.Fatalf("Alloc within limit returned nil")
	}
	if a.Alloc() != nil {
		t.Fatalf("Alloc beyond limit: got node, want nil")
	}
	a.Free(n1)
	if a.FreeLen() != 1 {
		t.Fatalf("FreeLen: got %d, want 1", a.FreeLen())
	}
	if got := a.Alloc(); got != n1 {
		t.Fatalf("Alloc after Free did not reuse the freed node")
	}
	if a.Len() != 2 || a.Cap() != 2 {
		t.Fatalf("Len/Cap: got %d/%d, want 2/2", a.Len(), a.Cap())
	}
}

func TestArenaDoubleFreePanics(t *testing.T) {
	a := lfds.NewArena[int](0)
	n := a.Alloc()
	a.Free(n)
	defer func() {
		if recover() == nil {
			t.Fatalf("double free did not panic")
		}
	}()
	a.Free(n)
}

func TestArenaFreeLinkedPanics(t *testing.T) {
	a := lfds.NewArena[int](0)
	s := lfds.NewStack(a)
	n := a.Alloc()
	s.Push(n)
	defer func() {
		if recover() == nil {
			t.Fatalf("free of a linked node did not panic")
		}
	}()
	a.Free(n)
}

func TestArenaConcurrentGrowth(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: concurrent test")
	}
	a := lfds.NewArena[int](0)
	const workers, perWorker = 8, 512

	got := make([][]*lfds.Node[int], workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range perWorker {
				n := a.Alloc()
				n.Value = id*perWorker + i
				got[id] = append(got[id], n)
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[lfds.Ref]bool, workers*perWorker)
	for id, nodes := range got {
		for i, n := range nodes {
			if seen[n.Ref()] {
				t.Fatalf("ref %d handed out twice", n.Ref())
			}
			seen[n.Ref()] = true
			if a.Node(n.Ref()) != n {
				t.Fatalf("Node(%d) resolved to a different node", n.Ref())
			}
			if n.Value != id*perWorker+i {
				t.Fatalf("node %d of worker %d: got Value %d", i, id, n.Value)
			}
		}
	}
	if a.Len() != workers*perWorker {
		t.Fatalf("Len: got %d, want %d", a.Len(), workers*perWorker)
	}
}

func TestStackPushFreedNodePanics(t *testing.T) {
	a := lfds.NewArena[int](0)
	s := lfds.NewStack(a)
	n := a.Alloc()
	a.Free(n)
	defer func() {
		if recover() == nil {
			t.Fatalf("push of a freed node did not panic")
		}
		// The free list is intact: the node comes back exactly once.
		if got := a.Alloc(); got != n {
			t.Fatalf("Alloc after rejected push: got ref %d, want %d", got.Ref(), n.Ref())
		}
		if !s.Empty() {
			t.Fatalf("rejected push reached the stack")
		}
	}()
	s.Push(n)
}

func TestStackDoublePushPanics(t *testing.T) {
	a := lfds.NewArena[int](0)
	s := lfds.NewStack(a)
	n := a.Alloc()
	s.Push(n)
	defer func() {
		if recover() == nil {
			t.Fatalf("second push of a linked node did not panic")
		}
		if got := s.Pop(); got != n {
			t.Fatalf("Pop after rejected push: got %v", got)
		}
		if got := s.Pop(); got != nil {
			t.Fatalf("stack held a self-linked node")
		}
	}()
	s.Push(n)
}

func TestNewArenaNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("NewArena(-1) did not panic")
		}
	}()
	lfds.NewArena[int](-1)
}

// =============================================================================
// Stack - Basic Operations
// =============================================================================

func TestStackBasic(t *testing.T) {
	a := lfds.NewArena[int](0)
	s := lfds.NewStack(a)

	if !s.Empty() {
		t.Fatalf("new stack not empty")
	}
	if s.Pop() != nil {
		t.Fatalf("Pop on empty stack: got node")
	}
	if s.Reset(false) != nil {
		t.Fatalf("Reset on empty stack: got chain")
	}

	for i := range 5 {
		n := a.Alloc()
		n.Value = i
		s.Push(n)
	}
	if s.UnsafeSize() != 5 {
		t.Fatalf("UnsafeSize: got %d, want 5", s.UnsafeSize())
	}

	for want := 4; want >= 0; want-- {
		n := s.Pop()
		if n == nil {
			t.Fatalf("Pop: got nil, want %d", want)
		}
		if n.Value != want {
			t.Fatalf("Pop: got %d, want %d", n.Value, want)
		}
		if n.Next() != 0 {
			t.Fatalf("popped node still linked to %d", n.Next())
		}
		a.Free(n)
	}
	if !s.Empty() {
		t.Fatalf("stack not empty after popping everything")
	}
}

func TestStackVersionBumps(t *testing.T) {
	a := lfds.NewArena[int](0)
	s := lfds.NewStack(a)

	v0 := s.Version()
	s.Push(a.Alloc())
	s.Push(a.Alloc())
	a.Free(s.Pop())
	s.Reset(false)
	if got := s.Version(); got != v0+4 {
		t.Fatalf("Version after 4 operations: got %d, want %d", got, v0+4)
	}
	// Failed operations do not bump.
	s.Pop()
	s.Reset(true)
	if got := s.Version(); got != v0+4 {
		t.Fatalf("Version after no-op operations: got %d, want %d", got, v0+4)
	}
}

func TestStackResetOrder(t *testing.T) {
	for _, reverse := range []bool{false, true} {
		a := lfds.NewArena[int](0)
		s := lfds.NewStack(a)
		for i := range 4 {
			n := a.Alloc()
			n.Value = i
			s.Push(n)
		}

		var got []int
		for n := s.Reset(reverse); n != nil; n = a.Node(n.Next()) {
			got = append(got, n.Value)
		}
		want := []int{3, 2, 1, 0}
		if reverse {
			want = []int{0, 1, 2, 3}
		}
		if len(got) != len(want) {
			t.Fatalf("Reset(%v): got %v, want %v", reverse, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Reset(%v): got %v, want %v", reverse, got, want)
			}
		}
		if !s.Empty() {
			t.Fatalf("Reset(%v) left nodes behind", reverse)
		}
	}
}

// TestStackDetachedChainIsOwned checks that nodes returned by Reset can be
// freed, which requires Reset to clear their linked state.
func TestStackDetachedChainIsOwned(t *testing.T) {
	a := lfds.NewArena[int](0)
	s := lfds.NewStack(a)
	for range 3 {
		s.Push(a.Alloc())
	}
	for n := s.Reset(true); n != nil; {
		next := a.Node(n.Next())
		a.Free(n)
		n = next
	}
	if a.FreeLen() != 3 {
		t.Fatalf("FreeLen: got %d, want 3", a.FreeLen())
	}
}

// TestStackLIFOProperty checks that N pushes followed by N pops by one
// goroutine yield the values in exact reverse order, interleaved with
// arbitrary push/pop traffic beforehand.
func TestStackLIFOProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := lfds.NewArena[int](0)
		s := lfds.NewStack(a)
		var model []int

		ops := rapid.SliceOf(rapid.IntRange(-1, 1000)).Draw(t, "ops")
		for _, op := range ops {
			if op < 0 {
				n := s.Pop()
				if len(model) == 0 {
					if n != nil {
						t.Fatalf("Pop on empty model returned %d", n.Value)
					}
					continue
				}
				want := model[len(model)-1]
				model = model[:len(model)-1]
				if n == nil || n.Value != want {
					t.Fatalf("Pop: got %v, want %d", n, want)
				}
				a.Free(n)
				continue
			}
			n := a.Alloc()
			n.Value = op
			s.Push(n)
			model = append(model, op)
		}

		if s.UnsafeSize() != len(model) {
			t.Fatalf("UnsafeSize: got %d, want %d", s.UnsafeSize(), len(model))
		}
		for i := len(model) - 1; i >= 0; i-- {
			n := s.Pop()
			if n == nil || n.Value != model[i] {
				t.Fatalf("drain: got %v, want %d", n, model[i])
			}
			a.Free(n)
		}
		// Every node ever carved is back on the free list.
		if a.FreeLen() != a.Len() {
			t.Fatalf("FreeLen: got %d, want %d", a.FreeLen(), a.Len())
		}
	})
}
