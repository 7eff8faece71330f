// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfds"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// Test Helpers
// =============================================================================

// waitForCount waits until counter reaches target or timeout expires.
func waitForCount(t *testing.T, timeout time.Duration, counter *atomix.Int64, target int64, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for counter.Load() < target {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s (got %d, want %d)", timeout, msg, counter.Load(), target)
		}
		backoff.Wait()
	}
}

// =============================================================================
// Linearizability Test Helper
// =============================================================================

// linearizabilityTest verifies no-loss and no-duplication for a FIFO.
// It launches numP producers and numC consumers; each producer enqueues
// itemsPerProd values encoded as producerID*100000 + sequence.
// With fifo set it also checks that each consumer sees every producer's
// values in increasing sequence order.
type linearizabilityTest struct {
	t            *testing.T
	numP, numC   int
	itemsPerProd int
	timeout      time.Duration
	fifo         bool
}

func (lt *linearizabilityTest) run(
	enqueue func(v int) error,
	dequeue func() (int, error),
) {
	t := lt.t
	if lfds.RaceEnabled {
		t.Skip("skip: linearizability test requires concurrent access")
	}

	var wg sync.WaitGroup
	expectedTotal := lt.numP * lt.itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)
	var consumed atomix.Int64
	var timedOut atomix.Bool
	var orderViolations atomix.Int64

	// Producers
	for p := range lt.numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			deadline := time.Now().Add(lt.timeout)
			backoff := iox.Backoff{}
			for i := range lt.itemsPerProd {
				v := id*100000 + i
				for enqueue(v) != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	// Consumers
	for range lt.numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(lt.timeout)
			backoff := iox.Backoff{}
			last := make([]int, lt.numP)
			for i := range last {
				last[i] = -1
			}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := dequeue()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				producerID := v / 100000
				seq := v % 100000
				if producerID < 0 || producerID >= lt.numP || seq < 0 || seq >= lt.itemsPerProd {
					t.Errorf("value out of range: %d", v)
					consumed.Add(1)
					continue
				}
				if lt.fifo {
					if seq <= last[producerID] {
						orderViolations.Add(1)
					}
					last[producerID] = seq
				}
				seen[producerID*lt.itemsPerProd+seq].Add(1)
				consumed.Add(1)
			}
		}()
	}

	wg.Wait()

	var missing, duplicates int
	for i := range expectedTotal {
		switch count := seen[i].Load(); {
		case count == 0:
			missing++
		case count > 1:
			duplicates++
		}
	}

	if duplicates > 0 {
		t.Errorf("linearizability violation: %d duplicates detected", duplicates)
	}
	if missing > 0 {
		t.Errorf("lost items: %d of %d missing (timed out: %v)", missing, expectedTotal, timedOut.Load())
	}
	if n := orderViolations.Load(); n > 0 {
		t.Errorf("per-producer FIFO violated %d times", n)
	}
}

// =============================================================================
// Queue Linearizability
// =============================================================================

func TestQueueLinearizability(t *testing.T) {
	cases := []struct {
		name       string
		capacity   int
		numP, numC int
	}{
		{"Bounded4P4C", 64, 4, 4},
		{"Bounded8P2C", 16, 8, 2},
		{"Bounded1P8C", 8, 1, 8},
		{"Unbounded4P4C", 0, 4, 4},
		{"Capacity1", 1, 3, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := lfds.NewQueue[int](tc.capacity)
			lt := &linearizabilityTest{
				t: t, numP: tc.numP, numC: tc.numC,
				itemsPerProd: 5000, timeout: 20 * time.Second, fifo: true,
			}
			lt.run(
				func(v int) error { return q.Enqueue(&v) },
				q.Dequeue,
			)
			if !q.Empty() {
				t.Fatalf("queue not empty after drain: %d left", q.UnsafeSize())
			}
		})
	}
}

// TestQueueSharedArena runs two queues over one arena. Nodes migrate
// between them through the shared free list.
func TestQueueSharedArena(t *testing.T) {
	a := lfds.NewArena[int](0)
	q1 := lfds.NewQueueWith(a)
	q2 := lfds.NewQueueWith(a)

	// q1 → relay → q2 → consumers
	var done atomix.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for !done.Load() {
			v, err := q1.Dequeue()
			if err != nil {
				backoff.Wait()
				continue
			}
			q2.Enqueue(&v)
			backoff.Reset()
		}
	}()

	lt := &linearizabilityTest{
		t: t, numP: 3, numC: 2,
		itemsPerProd: 3000, timeout: 20 * time.Second, fifo: true,
	}
	lt.run(
		func(v int) error { return q1.Enqueue(&v) },
		q2.Dequeue,
	)
	done.Store(true)
	wg.Wait()

	q1.Close()
	q2.Close()
	if free := a.FreeLen(); free != a.Len() {
		t.Fatalf("FreeLen after Close: got %d, want %d", free, a.Len())
	}
}

func TestBlockingQueueLinearizability(t *testing.T) {
	bq := lfds.NewBlockingQueue[int](32)
	lt := &linearizabilityTest{
		t: t, numP: 4, numC: 4,
		itemsPerProd: 5000, timeout: 20 * time.Second, fifo: true,
	}
	lt.run(
		func(v int) error { return bq.Enqueue(&v, 100*time.Millisecond) },
		func() (int, error) { return bq.Dequeue(10 * time.Millisecond) },
	)
}

func TestRingLinearizability(t *testing.T) {
	r := lfds.NewRing[int](64)
	lt := &linearizabilityTest{
		t: t, numP: 1, numC: 1,
		itemsPerProd: 50000, timeout: 20 * time.Second, fifo: true,
	}
	lt.run(
		func(v int) error { return r.Enqueue(&v) },
		r.Dequeue,
	)
}

// =============================================================================
// Stack Linearizability
// =============================================================================

func TestStackLinearizability(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: linearizability test requires concurrent access")
	}

	const numP, numC, perProd = 4, 4, 5000
	a := lfds.NewArena[int](0)
	s := lfds.NewStack(a)

	seen := make([]atomix.Int32, numP*perProd)
	var consumed atomix.Int64
	var wg sync.WaitGroup

	for p := range numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range perProd {
				n := a.Alloc()
				n.Value = id*perProd + i
				s.Push(n)
			}
		}(p)
	}
	for range numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(20 * time.Second)
			backoff := iox.Backoff{}
			for consumed.Load() < numP*perProd {
				if time.Now().After(deadline) {
					return
				}
				n := s.Pop()
				if n == nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seen[n.Value].Add(1)
				a.Free(n)
				consumed.Add(1)
			}
		}()
	}
	wg.Wait()

	for i := range seen {
		if c := seen[i].Load(); c != 1 {
			t.Fatalf("value %d popped %d times, want 1", i, c)
		}
	}
	if !s.Empty() {
		t.Fatalf("stack not empty after drain")
	}
	// Every node went back to the free list.
	if free := a.FreeLen(); free != a.Len() {
		t.Fatalf("FreeLen: got %d, want %d", free, a.Len())
	}
}

// TestStackResetUnderContention drains with Reset while producers push
// and checks that every pushed value is collected exactly once.
func TestStackResetUnderContention(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: concurrent test")
	}

	const numP, perProd = 4, 5000
	a := lfds.NewArena[int](0)
	s := lfds.NewStack(a)
	seen := make([]int, numP*perProd)

	var producers sync.WaitGroup
	for p := range numP {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			for i := range perProd {
				n := a.Alloc()
				n.Value = id*perProd + i
				s.Push(n)
			}
		}(p)
	}

	var finished atomix.Bool
	go func() {
		producers.Wait()
		finished.Store(true)
	}()

	collect := func(reverse bool) {
		for n := s.Reset(reverse); n != nil; {
			next := a.Node(n.Next())
			seen[n.Value]++
			a.Free(n)
			n = next
		}
	}
	reverse := false
	for !finished.Load() {
		collect(reverse)
		reverse = !reverse
	}
	collect(false)

	for i, c := range seen {
		if c != 1 {
			t.Fatalf("value %d collected %d times, want 1", i, c)
		}
	}
}

// =============================================================================
// Allocator Under Contention
// =============================================================================

func TestCachedAllocatorConcurrent(t *testing.T) {
	if lfds.RaceEnabled {
		t.Skip("skip: concurrent test")
	}

	alloc := lfds.NewCachedAllocator()
	const workers, rounds = 8, 5000
	var wg sync.WaitGroup
	var corrupt atomix.Int64

	for w := range workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			held := make([]*lfds.Block, 0, 8)
			for i := range rounds {
				size := (i*37 + id*11) % 900
				b := alloc.Allocate(size)
				p := lfds.BlockBytes(b)
				p[0], p[len(p)-1] = byte(id), byte(id)
				held = append(held, b)
				if len(held) == cap(held) {
					for _, h := range held {
						hp := lfds.BlockBytes(h)
						if hp[0] != byte(id) || hp[len(hp)-1] != byte(id) {
							corrupt.Add(1)
						}
						alloc.Free(h)
					}
					held = held[:0]
				}
			}
			for _, h := range held {
				alloc.Free(h)
			}
		}(w)
	}
	wg.Wait()

	if corrupt.Load() != 0 {
		t.Fatalf("blocks shared between owners: %d corrupt reads", corrupt.Load())
	}
	for _, c := range alloc.Stats().Classes {
		if c.Cached != c.Blocks {
			t.Fatalf("class %d: cached %d of %d blocks after all frees", c.Class, c.Cached, c.Blocks)
		}
	}
}
