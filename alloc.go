// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"math/bits"

	"code.hybscloud.com/atomix"
)

// HeaderSize is the number of bytes at the front of every block reserved
// for the block header. Size classes account for it.
const HeaderSize = 16

const (
	defaultMinSize     = 3 * 8
	defaultSizeClasses = 21
	// maxSizeClasses keeps every tracked block size addressable by int.
	maxSizeClasses = bits.UintSize - 2
)

// Block is a unit of memory handed out by a [CachedAllocator].
// Its Value holds the whole block; [BlockBytes] returns the payload.
type Block = Node[[]byte]

// BlockBytes returns the payload of b: everything after the header.
// Its length is the block's size class capacity minus [HeaderSize].
func BlockBytes(b *Block) []byte {
	return b.Value[HeaderSize:]
}

// Backing supplies memory when a size class has no cached block and for
// objects larger than the largest tracked class.
type Backing interface {
	// Allocate returns size bytes, or nil on failure.
	Allocate(size int) []byte
	// Deallocate releases memory previously returned by Allocate.
	Deallocate(b []byte, size int)
}

// DefaultHeapLimit is the largest request [HeapBacking] serves when its
// Limit is zero: 4 GiB on 64-bit platforms, 1 GiB on 32-bit ones.
const DefaultHeapLimit = 1 << (30 + 2*(bits.UintSize/64))

// HeapBacking allocates from the Go heap and leaves release to the GC.
type HeapBacking struct {
	// Limit caps a single allocation in bytes; 0 means DefaultHeapLimit.
	Limit int
}

// Allocate implements [Backing]. Requests above the limit return nil.
func (h HeapBacking) Allocate(size int) []byte {
	limit := h.Limit
	if limit <= 0 {
		limit = DefaultHeapLimit
	}
	if size < 0 || size > limit {
		return nil
	}
	return make([]byte, size)
}

// Deallocate implements [Backing].
func (HeapBacking) Deallocate([]byte, int) {}

// AllocOption configures a [CachedAllocator].
type AllocOption func(*allocOptions)

type allocOptions struct {
	backing     Backing
	minSize     int
	sizeClasses int
	logger      *slog.Logger
}

// WithBacking sets the allocator used on cache misses and for large objects.
func WithBacking(b Backing) AllocOption {
	return func(o *allocOptions) { o.backing = b }
}

// WithMinSize sets the smallest block size in bytes, header included.
func WithMinSize(n int) AllocOption {
	return func(o *allocOptions) { o.minSize = n }
}

// WithSizeClasses sets the number of tracked size classes. Objects whose
// class is >= n bypass the cache.
func WithSizeClasses(n int) AllocOption {
	return func(o *allocOptions) { o.sizeClasses = n }
}

// WithLogger sets a structured logger for backing allocation failures.
func WithLogger(logger *slog.Logger) AllocOption {
	return func(o *allocOptions) { o.logger = logger }
}

// CachedAllocator is a lock-free allocator that caches freed blocks in
// power-of-two size classes.
//
// Each size class owns an unbounded [Arena] of block nodes; the arena's
// free list is the class's versioned stack. Allocate pops that list and
// falls back to [Backing] when it is empty. Free pushes the block back.
// Blocks whose class exceeds the largest tracked class bypass the cache
// and are counted as large objects.
//
// Blocks are never returned to the backing allocator except large ones.
type CachedAllocator struct {
	_        pad
	large    atomix.Int64
	_        pad
	classes  []*Arena[[]byte]
	backing  Backing
	minClass int
	logger   *slog.Logger
}

// NewCachedAllocator creates an allocator.
//
// Panics if the minimum size is < 1 or the class count is outside
// [1, 62].
func NewCachedAllocator(opts ...AllocOption) *CachedAllocator {
	o := allocOptions{
		backing:     HeapBacking{},
		minSize:     defaultMinSize,
		sizeClasses: defaultSizeClasses,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.minSize < 1 {
		panic("lfds: min size must be >= 1")
	}
	if o.sizeClasses < 1 || o.sizeClasses > maxSizeClasses {
		panic("lfds: size classes must be in [1, 62]")
	}

	a := &CachedAllocator{
		classes:  make([]*Arena[[]byte], o.sizeClasses),
		backing:  o.backing,
		minClass: ceilLog2(o.minSize),
		logger:   o.logger,
	}
	for i := range a.classes {
		a.classes[i] = NewArena[[]byte](0)
	}
	return a
}

// SizeClass returns the class a request of n payload bytes falls into:
// the exponent of the smallest power of two that holds n plus the header,
// never below the minimum class. A request too large for any block gets
// a class that Allocate always refuses.
func (a *CachedAllocator) SizeClass(n int) int {
	if n < 0 {
		n = 0
	}
	if n > math.MaxInt-HeaderSize {
		return bits.UintSize - 1
	}
	return max(a.minClass, ceilLog2(n+HeaderSize))
}

// MaxSizeClass returns the largest class served from the cache.
func (a *CachedAllocator) MaxSizeClass() int {
	return len(a.classes) - 1
}

// Allocate returns a block with at least n payload bytes, or nil if the
// backing allocator fails.
func (a *CachedAllocator) Allocate(n int) *Block {
	class := a.SizeClass(n)
	if class > a.MaxSizeClass() {
		return a.allocLarge(class)
	}
	return a.allocClass(class)
}

func (a *CachedAllocator) allocClass(class int) *Block {
	ar := a.classes[class]
	b := ar.Alloc()
	if b == nil {
		return nil
	}
	if b.Value != nil {
		return b
	}

	// Fresh node, or one whose backing allocation failed earlier.
	buf := a.backing.Allocate(1 << class)
	if buf == nil {
		ar.Free(b)
		a.backingFailed(class)
		return nil
	}
	b.tag = nodeMagic | uint32(class)
	b.Value = buf
	stampHeader(buf, b.tag)
	return b
}

func (a *CachedAllocator) allocLarge(class int) *Block {
	if class >= bits.UintSize-1 {
		return nil
	}
	buf := a.backing.Allocate(1 << class)
	if buf == nil {
		a.backingFailed(class)
		return nil
	}
	b := &Block{tag: nodeMagic | uint32(class), Value: buf}
	stampHeader(buf, b.tag)
	a.large.Add(1)
	return b
}

// Free returns b to its size class, or to the backing allocator when b
// is a large object. Free(nil) is a no-op.
//
// Panics if b was not produced by a CachedAllocator or was already freed.
func (a *CachedAllocator) Free(b *Block) {
	if b == nil {
		return
	}
	if !b.Valid() {
		panic("lfds: free of a block without allocator header")
	}
	class := b.SizeClass()
	if class > a.MaxSizeClass() {
		buf := b.Value
		b.Value, b.tag = nil, 0
		a.backing.Deallocate(buf, 1<<class)
		a.large.Add(-1)
		return
	}
	a.classes[class].Free(b)
}

// Reallocate returns a block with at least n payload bytes holding the
// payload of b. If b's class already fits, b itself is returned.
// Otherwise the payload is copied into a new block and b is freed.
// Returns nil, leaving b untouched, if the new allocation fails.
func (a *CachedAllocator) Reallocate(b *Block, n int) *Block {
	if b == nil {
		return a.Allocate(n)
	}
	if a.SizeClass(n) <= b.SizeClass() {
		return b
	}
	nb := a.Allocate(n)
	if nb == nil {
		return nil
	}
	copy(BlockBytes(nb), BlockBytes(b))
	a.Free(b)
	return nb
}

// LargeObjects returns the number of outstanding blocks that bypassed
// the cache. Best effort.
func (a *CachedAllocator) LargeObjects() int64 {
	return a.large.Load()
}

// CacheSize returns the number of free blocks cached in class, or -1 if
// class is not tracked. Not thread-safe; for diagnostics only.
func (a *CachedAllocator) CacheSize(class int) int {
	if class < 0 || class > a.MaxSizeClass() {
		return -1
	}
	return a.classes[class].FreeLen()
}

// ClassStats describes one size class.
type ClassStats struct {
	Class     int // exponent
	BlockSize int // bytes per block, header included
	Blocks    int // blocks ever created
	Cached    int // blocks currently on the free list
}

// AllocStats is a diagnostic snapshot of a [CachedAllocator].
type AllocStats struct {
	LargeObjects int64
	Classes      []ClassStats // only classes that ever allocated
}

// Stats walks every class. Not thread-safe; for diagnostics only.
func (a *CachedAllocator) Stats() AllocStats {
	st := AllocStats{LargeObjects: a.LargeObjects()}
	for class, ar := range a.classes {
		if ar.Len() == 0 {
			continue
		}
		st.Classes = append(st.Classes, ClassStats{
			Class:     class,
			BlockSize: 1 << class,
			Blocks:    ar.Len(),
			Cached:    ar.FreeLen(),
		})
	}
	return st
}

// Dump logs [CachedAllocator.Stats] at debug level.
func (a *CachedAllocator) Dump(logger *slog.Logger) {
	st := a.Stats()
	ctx := context.Background()
	logger.LogAttrs(ctx, slog.LevelDebug, "lfds: cached allocator",
		slog.Int("size_classes", len(a.classes)),
		slog.Int("min_class", a.minClass),
		slog.Int64("large_objects", st.LargeObjects))
	for _, c := range st.Classes {
		logger.LogAttrs(ctx, slog.LevelDebug, "lfds: size class",
			slog.Int("class", c.Class),
			slog.Int("block_size", c.BlockSize),
			slog.Int("blocks", c.Blocks),
			slog.Int("cached", c.Cached))
	}
}

func (a *CachedAllocator) backingFailed(class int) {
	if a.logger == nil {
		return
	}
	a.logger.Warn("lfds: backing allocation failed",
		slog.Int("class", class),
		slog.Int("block_size", 1<<class))
}

// stampHeader writes the tag and block size into the reserved header.
func stampHeader(buf []byte, tag uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], tag)
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(buf)))
}

// ceilLog2 returns the exponent of the smallest power of two >= n.
func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
