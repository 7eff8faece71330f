// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package futex

// HasOSParker reports whether [NewOSParker] uses a native wait primitive.
const HasOSParker = false

// NewOSParker returns a [RuntimeParker] on platforms without futex(2).
func NewOSParker() Parker {
	return NewRuntimeParker()
}
