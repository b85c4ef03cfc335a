// Copyright 2020 The gVisor Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !amd64 && !arm64
// +build !amd64,!arm64

package sync

// procyield has no pause instruction to issue on this architecture; the
// spin-wait degrades to a tight loop until it starts yielding.
//
//go:nosplit
func procyield(cycles uint32) {
}
