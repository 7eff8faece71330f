// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfds provides lock-free data structures for high-throughput,
// latency-sensitive code.
//
//   - Stack: versioned lock-free LIFO (Treiber stack, ABA-tagged head)
//   - Queue: Michael-Scott lock-free FIFO with counted pointers
//   - Ring: wait-free single-producer single-consumer ring buffer
//   - CachedAllocator: lock-free power-of-two size-class allocator
//   - BlockingQueue, BlockingStack: the above plus futex-style waiting
//
// # Nodes and Arenas
//
// Stack and Queue are intrusive: they link [Node] values owned by an
// [Arena]. Nodes are addressed by 32-bit [Ref] indices instead of
// pointers, and every link word pairs the ref with a version, so the
// structures are ABA-safe within the version's 2^32 window and never hand
// the garbage collector a tagged pointer.
//
//	a := lfds.NewArena[Job](0)       // unbounded
//	s := lfds.NewStack(a)
//
//	n := a.Alloc()
//	n.Value = job
//	s.Push(n)
//
//	if n := s.Pop(); n != nil {
//	    run(n.Value)
//	    a.Free(n)
//	}
//
// A node has exactly one owner: a container, the arena's free list, or
// the goroutine that just took it out. Freeing a node twice, or freeing
// one still linked into a container, panics.
//
// # Quick Start
//
// Direct constructors:
//
//	q := lfds.NewQueue[Event](1024)   // bounded MPMC
//	q := lfds.NewQueue[Event](0)      // unbounded MPMC
//	r := lfds.NewRing[Event](1024)    // SPSC, holds 1023
//
// Builder API selects the algorithm from the constraints:
//
//	q := lfds.Build[Event](lfds.New(1024).SingleProducer().SingleConsumer())  // → Ring
//	q := lfds.Build[Event](lfds.New(1024))                                    // → Queue
//
// # Non-blocking Operations
//
// Every non-blocking operation reports full or empty with [ErrWouldBlock],
// a control flow signal rather than a failure:
//
//	backoff := iox.Backoff{}
//	for q.Enqueue(&item) != nil {
//	    backoff.Wait()
//	}
//	backoff.Reset()
//
// # Blocking Operations
//
// [BlockingQueue] and [BlockingStack] park on a [futex.Event] when they
// cannot proceed. They accept a timeout ([Forever] to wait indefinitely)
// and return [ErrTimedOut] or, after Terminate, [ErrTerminated]:
//
//	bq := lfds.NewBlockingQueue[Job](256)
//	go func() {
//	    for {
//	        job, err := bq.Dequeue(lfds.Forever)
//	        if lfds.IsTerminated(err) {
//	            return
//	        }
//	        run(job)
//	    }
//	}()
//	...
//	bq.Terminate()
//
// # Memory Ordering
//
// All shared words are [code.hybscloud.com/atomix] values accessed with
// explicit orderings: acquire loads, release stores, acq-rel CAS, and
// relaxed access to a side's own index. CAS retry loops pause with
// [code.hybscloud.com/spin].
//
// # Race Detector
//
// Queue reads a node's value before the CAS that claims it and discards
// the copy if the CAS fails. The race detector reports that read.
// Concurrent tests over plain values skip when [RaceEnabled] is set.
package lfds
