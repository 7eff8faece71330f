// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfds"
	"code.hybscloud.com/lfds/futex"
	"github.com/google/uuid"
)

// opTimeout bounds each blocking call so workers notice cancellation.
const opTimeout = 10 * time.Millisecond

// target adapts one container to the producer/consumer harness.
type target struct {
	put func(v int) error
	get func() (int, error)
	// fifo enables the per-producer order check.
	fifo bool
	// stop releases workers parked in the container. May be nil.
	stop func()
	// alloc is reported when the run goes through a CachedAllocator.
	alloc *lfds.CachedAllocator
}

func newTarget(cfg Config) *target {
	var opts []futex.Option
	if cfg.Futex {
		opts = append(opts, futex.WithFutex())
	}

	switch cfg.Structure {
	case "ring":
		r := lfds.NewRing[int](cfg.Capacity)
		return &target{
			put:  func(v int) error { return r.Enqueue(&v) },
			get:  r.Dequeue,
			fifo: true,
		}

	case "blocking":
		bq := lfds.NewBlockingQueue[int](cfg.Capacity, opts...)
		return &target{
			put:  func(v int) error { return bq.Enqueue(&v, opTimeout) },
			get:  func() (int, error) { return bq.Dequeue(opTimeout) },
			fifo: true,
			stop: bq.Terminate,
		}

	case "stack":
		a := lfds.NewArena[int](cfg.Capacity)
		s := lfds.NewBlockingStack(a, opts...)
		return &target{
			put: func(v int) error {
				n := a.Alloc()
				if n == nil {
					return lfds.ErrWouldBlock
				}
				n.Value = v
				s.Push(n)
				return nil
			},
			get: func() (int, error) {
				n, err := s.Pop(opTimeout)
				if err != nil {
					return 0, err
				}
				v := n.Value
				a.Free(n)
				return v, nil
			},
			stop: s.Terminate,
		}

	case "alloc":
		// Blocks carry the value in their payload from producer to
		// consumer, so every block crosses goroutines before it is freed.
		alloc := lfds.NewCachedAllocator()
		q := lfds.NewQueue[*lfds.Block](cfg.Capacity)
		return &target{
			put: func(v int) error {
				b := alloc.Allocate(8 + v%1000)
				if b == nil {
					return lfds.ErrWouldBlock
				}
				binary.LittleEndian.PutUint64(lfds.BlockBytes(b), uint64(v))
				if err := q.Enqueue(&b); err != nil {
					alloc.Free(b)
					return err
				}
				return nil
			},
			get: func() (int, error) {
				b, err := q.Dequeue()
				if err != nil {
					return 0, err
				}
				v := int(binary.LittleEndian.Uint64(lfds.BlockBytes(b)))
				alloc.Free(b)
				return v, nil
			},
			fifo:  true,
			alloc: alloc,
		}

	default:
		q := lfds.NewQueue[int](cfg.Capacity)
		return &target{
			put:  func(v int) error { return q.Enqueue(&v) },
			get:  q.Dequeue,
			fifo: true,
		}
	}
}

// Result summarizes one run.
type Result struct {
	RunID           string          `json:"run_id"`
	Structure       string          `json:"structure"`
	Producers       int             `json:"producers"`
	Consumers       int             `json:"consumers"`
	Capacity        int             `json:"capacity"`
	Expected        int64           `json:"expected"`
	Consumed        int64           `json:"consumed"`
	Missing         int64           `json:"missing"`
	Duplicates      int64           `json:"duplicates"`
	OutOfRange      int64           `json:"out_of_range"`
	OrderViolations int64           `json:"order_violations"`
	TimedOut        bool            `json:"timed_out"`
	ElapsedMS       float64         `json:"elapsed_ms"`
	OpsPerSec       float64         `json:"ops_per_sec"`
	Alloc           *lfds.AllocStats `json:"alloc,omitempty"`
}

// OK reports whether every item arrived exactly once and in order.
func (r *Result) OK() bool {
	return r.Missing == 0 && r.Duplicates == 0 && r.OutOfRange == 0 && r.OrderViolations == 0 && !r.TimedOut
}

// run moves cfg.Total() items through the configured container and
// checks that none is lost or duplicated.
func run(ctx context.Context, cfg Config, logger *slog.Logger) *Result {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	res := &Result{
		RunID:     uuid.NewString(),
		Structure: cfg.Structure,
		Producers: cfg.Producers,
		Consumers: cfg.Consumers,
		Capacity:  cfg.Capacity,
		Expected:  int64(cfg.Total()),
	}
	logger = logger.With(slog.String("run_id", res.RunID), slog.String("structure", cfg.Structure))
	logger.Info("run started",
		slog.Int("producers", cfg.Producers),
		slog.Int("consumers", cfg.Consumers),
		slog.Int("items", cfg.Items),
		slog.Int("capacity", cfg.Capacity),
		slog.Bool("futex", cfg.Futex))

	tg := newTarget(cfg)
	total := cfg.Total()
	seen := make([]atomix.Int32, total)
	var consumed, outOfRange, orderViolations atomix.Int64
	var timedOut atomix.Bool

	// Release parked workers once the deadline passes.
	if tg.stop != nil {
		stop := context.AfterFunc(ctx, tg.stop)
		defer stop()
	}

	start := time.Now()
	var wg sync.WaitGroup
	for p := range cfg.Producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range cfg.Items {
				v := id*cfg.Items + i
				for tg.put(v) != nil {
					if ctx.Err() != nil {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	for range cfg.Consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			last := make([]int, cfg.Producers)
			for i := range last {
				last[i] = -1
			}
			for consumed.Load() < int64(total) {
				if ctx.Err() != nil {
					timedOut.Store(true)
					return
				}
				v, err := tg.get()
				if err != nil {
					if lfds.IsTerminated(err) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				consumed.Add(1)
				if v < 0 || v >= total {
					outOfRange.Add(1)
					continue
				}
				if tg.fifo {
					producer, seq := v/cfg.Items, v%cfg.Items
					if seq <= last[producer] {
						orderViolations.Add(1)
					}
					last[producer] = seq
				}
				seen[v].Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	for i := range seen {
		switch n := seen[i].Load(); {
		case n == 0:
			res.Missing++
		case n > 1:
			res.Duplicates += int64(n - 1)
		}
	}
	res.Consumed = consumed.Load()
	res.OutOfRange = outOfRange.Load()
	res.OrderViolations = orderViolations.Load()
	res.TimedOut = timedOut.Load()
	res.ElapsedMS = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 {
		res.OpsPerSec = float64(res.Consumed) / elapsed.Seconds()
	}
	if tg.alloc != nil {
		st := tg.alloc.Stats()
		res.Alloc = &st
		tg.alloc.Dump(logger)
	}

	if res.OK() {
		logger.Info("run passed",
			slog.Int64("consumed", res.Consumed),
			slog.Float64("ops_per_sec", res.OpsPerSec))
	} else {
		logger.Error("run failed",
			slog.Int64("missing", res.Missing),
			slog.Int64("duplicates", res.Duplicates),
			slog.Int64("out_of_range", res.OutOfRange),
			slog.Int64("order_violations", res.OrderViolations),
			slog.Bool("timed_out", res.TimedOut))
	}
	return res
}
