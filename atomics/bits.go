// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomics

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// BitTestAndSet atomically sets bit and reports whether it was already set.
func BitTestAndSet(p *atomix.Uint64, bit uint) bool {
	mask := uint64(1) << bit
	sw := spin.Wait{}
	for {
		old := p.LoadAcquire()
		if old&mask != 0 {
			return true
		}
		if p.CompareAndSwapAcqRel(old, old|mask) {
			return false
		}
		sw.Once()
	}
}

// BitTestAndClear atomically clears bit and reports whether it was set.
func BitTestAndClear(p *atomix.Uint64, bit uint) bool {
	mask := uint64(1) << bit
	sw := spin.Wait{}
	for {
		old := p.LoadAcquire()
		if old&mask == 0 {
			return false
		}
		if p.CompareAndSwapAcqRel(old, old&^mask) {
			return true
		}
		sw.Once()
	}
}

// BitSet atomically sets bit.
func BitSet(p *atomix.Uint64, bit uint) {
	BitTestAndSet(p, bit)
}

// BitClear atomically clears bit.
func BitClear(p *atomix.Uint64, bit uint) {
	BitTestAndClear(p, bit)
}

// BitTest reports whether bit is set.
func BitTest(p *atomix.Uint64, bit uint) bool {
	return p.LoadAcquire()&(uint64(1)<<bit) != 0
}

// FetchAdd adds delta and returns the value held before the addition.
func FetchAdd(p *atomix.Int64, delta int64) int64 {
	return p.AddAcqRel(delta) - delta
}

// FetchAddUint adds delta and returns the value held before the addition.
func FetchAddUint(p *atomix.Uint64, delta uint64) uint64 {
	return p.AddAcqRel(delta) - delta
}

// fence is the target of [Fence]. It lives on its own cache line so
// fences issued from different cores do not contend with real data.
var fence struct {
	_ [64]byte
	w atomix.Uint64
	_ [64]byte
}

// Fence issues a full barrier between the caller's preceding and following
// memory accesses.
//
// Implemented as an acq-rel read-modify-write on a private word, which
// is a full barrier on amd64 (LOCK XADD) and arm64 (LDADDAL).
func Fence() {
	fence.w.AddAcqRel(0)
}
