// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomics

import "code.hybscloud.com/atomix"

// Pack combines a slot reference and a version into one word.
func Pack(ref, version uint32) uint64 {
	return uint64(version)<<32 | uint64(ref)
}

// Unpack splits a tagged word into its reference and version.
func Unpack(w uint64) (ref, version uint32) {
	return uint32(w), uint32(w >> 32)
}

// RefOf returns the reference half of a tagged word.
func RefOf(w uint64) uint32 {
	return uint32(w)
}

// VersionOf returns the version half of a tagged word.
func VersionOf(w uint64) uint32 {
	return uint32(w >> 32)
}

// Bump returns a word that points at ref with the version of w plus one.
// The version wraps silently.
func Bump(w uint64, ref uint32) uint64 {
	return Pack(ref, VersionOf(w)+1)
}

// Tagged is an atomic reference+version word.
//
// The zero value holds reference 0 (nil) at version 0.
type Tagged struct {
	w atomix.Uint64
}

// Load returns the current word with acquire ordering.
func (t *Tagged) Load() uint64 {
	return t.w.LoadAcquire()
}

// LoadRelaxed returns the current word without ordering.
// Only the word's current owner may rely on the result.
func (t *Tagged) LoadRelaxed() uint64 {
	return t.w.LoadRelaxed()
}

// Store publishes w with release ordering.
func (t *Tagged) Store(w uint64) {
	t.w.StoreRelease(w)
}

// StoreRelaxed writes w without ordering.
func (t *Tagged) StoreRelaxed(w uint64) {
	t.w.StoreRelaxed(w)
}

// CompareAndSwap replaces old with new if the word still equals old.
// Writes made before a successful CAS are visible to any thread that
// subsequently loads new.
func (t *Tagged) CompareAndSwap(old, new uint64) bool {
	return t.w.CompareAndSwapAcqRel(old, new)
}

// Ref returns the reference currently stored.
func (t *Tagged) Ref() uint32 {
	return RefOf(t.w.LoadAcquire())
}

// Version returns the version currently stored.
func (t *Tagged) Version() uint32 {
	return VersionOf(t.w.LoadAcquire())
}
