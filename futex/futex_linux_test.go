// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package futex_test

import (
	"runtime"
	"testing"
	"time"

	"code.hybscloud.com/lfds/futex"
	"golang.org/x/sys/unix"
)

// TestOSParkerTimeoutUnderSignals keeps interrupting a bounded futex wait
// and checks that it still ends near its deadline.
func TestOSParkerTimeoutUnderSignals(t *testing.T) {
	p := futex.NewOSParker()
	word := uint32(0)
	const timeout = 50 * time.Millisecond

	tids := make(chan int, 1)
	done := make(chan futex.WakeupResult, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		tids <- unix.Gettid()
		done <- p.Park(&word, 0, timeout)
	}()

	tid := <-tids
	pid := unix.Getpid()
	start := time.Now()
	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case r := <-done:
			if r != futex.TimedOut {
				t.Fatalf("Park: got %v, want TIMEDOUT", r)
			}
			if elapsed := time.Since(start); elapsed > 20*timeout {
				t.Fatalf("Park overran its timeout: %v", elapsed)
			}
			return
		case <-tick.C:
			// SIGURG is the runtime's preemption signal and is always handled.
			_ = unix.Tgkill(pid, tid, unix.SIGURG)
			if time.Since(start) > 5*time.Second {
				t.Fatalf("Park did not return while being interrupted")
			}
		}
	}
}
