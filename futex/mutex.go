// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package futex

import "sync/atomic"

const (
	unlocked  = 0
	locked    = 1
	contended = 2
)

// LightMutex is a three-state futex mutex.
//
// An uncontended Lock/Unlock pair is one CAS and one swap. The parker is
// entered only after the state has been marked contended.
type LightMutex struct {
	state  uint32
	parker Parker
}

// NewLightMutex creates an unlocked mutex.
func NewLightMutex(opts ...Option) *LightMutex {
	return &LightMutex{parker: buildOptions(opts).parker}
}

// Lock acquires the mutex, parking while it is held elsewhere.
func (m *LightMutex) Lock() {
	if atomic.CompareAndSwapUint32(&m.state, unlocked, locked) {
		return
	}
	for atomic.SwapUint32(&m.state, contended) != unlocked {
		m.parker.Park(&m.state, contended, Forever)
	}
}

// TryLock acquires the mutex if it is free.
func (m *LightMutex) TryLock() bool {
	return atomic.CompareAndSwapUint32(&m.state, unlocked, locked)
}

// Unlock releases the mutex and wakes one waiter if any may be parked.
func (m *LightMutex) Unlock() {
	switch atomic.SwapUint32(&m.state, unlocked) {
	case unlocked:
		panic("futex: unlock of unlocked LightMutex")
	case contended:
		m.parker.Unpark(&m.state, 1)
	}
}

// Locked reports whether the mutex is currently held. Diagnostic only.
func (m *LightMutex) Locked() bool {
	return atomic.LoadUint32(&m.state) != unlocked
}
