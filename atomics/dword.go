// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomics

import "code.hybscloud.com/atomix"

// DWord is a double-width (128-bit) atomic word.
//
// The low half conventionally carries a reference and the high half a
// modification counter that never wraps in practice.
type DWord struct {
	v atomix.Uint128
}

// Load returns both halves with acquire ordering.
func (d *DWord) Load() (lo, hi uint64) {
	return d.v.LoadAcquire()
}

// StoreRelaxed writes both halves without ordering.
// Use only before the word is shared.
func (d *DWord) StoreRelaxed(lo, hi uint64) {
	d.v.StoreRelaxed(lo, hi)
}

// CompareAndSwap replaces (oldLo, oldHi) with (newLo, newHi) if both
// halves still match.
func (d *DWord) CompareAndSwap(oldLo, oldHi, newLo, newHi uint64) bool {
	return d.v.CompareAndSwapAcqRel(oldLo, oldHi, newLo, newHi)
}
