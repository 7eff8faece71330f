// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lfds

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests over plain [T] payloads: the
// queue reads a node's value before the CAS that claims it and discards
// the copy when the CAS fails, which the detector reports as a race.
const RaceEnabled = true
