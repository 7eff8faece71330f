// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfds

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Enqueue: the queue is full or its node arena is exhausted
// For Dequeue: the queue is empty
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry later (with backoff or by switching to a blocking wrapper) rather
// than propagating the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrTimedOut is returned by blocking operations whose timeout elapsed
// before the operation could complete.
var ErrTimedOut = errors.New("lfds: timed out")

// ErrTerminated is returned by blocking operations on a container after
// Terminate has been called.
var ErrTerminated = errors.New("lfds: terminated")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// IsTimedOut reports whether err is or wraps [ErrTimedOut].
func IsTimedOut(err error) bool {
	return errors.Is(err, ErrTimedOut)
}

// IsTerminated reports whether err is or wraps [ErrTerminated].
func IsTerminated(err error) bool {
	return errors.Is(err, ErrTerminated)
}
