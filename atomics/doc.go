// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package atomics provides the word-level primitives the lfds containers
// are built from.
//
// Every primitive is expressed with [code.hybscloud.com/atomix] and names
// its memory ordering explicitly:
//
//   - Acquire for loads that gate subsequent reads
//   - Release for stores that publish new state
//   - AcqRel for read-modify-write operations (CAS, fetch-add, bit ops)
//   - Relaxed for owner-only accesses with no downstream ordering
//
// # Tagged Words
//
// Lock-free lists in lfds link arena slots by index, never by pointer.
// A tagged word packs a 32-bit slot reference with a 32-bit version:
//
//	 63            32 31             0
//	+----------------+----------------+
//	|    version     |      ref       |
//	+----------------+----------------+
//
// Every successful update bumps the version, so a CAS that observed a slot
// before it was freed and reused fails even though the ref is identical.
// The version wraps after 2^32 updates; an ABA failure requires exactly
// that many updates between a thread's load and its CAS.
//
// # Double-Width CAS
//
// [DWord] wraps a 128-bit atomic. Callers that need an unbounded counter
// next to a reference (the queue's head and tail) use it instead of a
// tagged word. On platforms without native 128-bit CAS, atomix provides
// the fallback.
//
// None of the operations fail or panic. Non-completion is reported by a
// false return and the caller decides whether to retry.
package atomics
