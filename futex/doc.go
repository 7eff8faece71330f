// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package futex provides a counter-based event and a small mutex whose
// slow paths park through a pluggable [Parker].
//
// The canonical wait loop snapshots the counter before testing the
// predicate:
//
//	old := ev.Value()
//	for !ready() {
//		if ev.Wait(timeout, &old) == futex.TimedOut {
//			return errTimeout
//		}
//	}
//
// A producer makes the predicate true and then calls [Event.Signal]. Any
// signal after the snapshot moves the counter, so Wait cannot sleep
// through it.
//
// Two parkers are provided. [RuntimeParker] is portable and parks
// goroutines on channels. [NewOSParker] returns a futex(2) parker on
// Linux, which parks the OS thread in the kernel.
package futex
