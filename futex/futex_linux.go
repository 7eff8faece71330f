// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package futex

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 128

	futexWaitPrivate = futexWait | futexPrivateFlag
	futexWakePrivate = futexWake | futexPrivateFlag
)

// OSParker parks on the Linux futex(2) system call.
//
// The kernel compares *addr against val and sleeps atomically, so no
// user-space lock is taken on either side. Waiters are keyed by address;
// one OSParker value can serve any number of words.
type OSParker struct{}

// HasOSParker reports whether [OSParker] uses a native wait primitive.
const HasOSParker = true

// NewOSParker returns a futex-backed Parker.
func NewOSParker() Parker {
	return OSParker{}
}

// Park implements [Parker] with FUTEX_WAIT_PRIVATE.
// A wait interrupted by a signal resumes with the time left before the
// original deadline.
func (OSParker) Park(addr *uint32, val uint32, timeout time.Duration) WakeupResult {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		var ts *unix.Timespec
		if timeout >= 0 {
			rem := time.Until(deadline)
			if rem < 0 {
				rem = 0
			}
			t := unix.NsecToTimespec(rem.Nanoseconds())
			ts = &t
		}
		_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)), futexWaitPrivate, uintptr(val),
			uintptr(unsafe.Pointer(ts)), 0, 0)
		switch errno {
		case 0:
			return Signaled
		case unix.EINTR:
			if timeout >= 0 && !time.Now().Before(deadline) {
				return TimedOut
			}
			continue
		case unix.EAGAIN:
			return Changed
		case unix.ETIMEDOUT:
			return TimedOut
		default:
			return Error
		}
	}
}

// Unpark implements [Parker] with FUTEX_WAKE_PRIVATE.
func (OSParker) Unpark(addr *uint32, n int) int {
	if n <= 0 {
		return 0
	}
	for {
		r, _, errno := unix.Syscall(unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)), futexWakePrivate, uintptr(n))
		switch errno {
		case 0:
			return int(r)
		case unix.EINTR:
			continue
		default:
			return 0
		}
	}
}
