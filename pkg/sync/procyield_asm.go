// Copyright 2020 The gVisor Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build amd64 || arm64
// +build amd64 arm64

package sync

// procyield executes cycles processor pause instructions. cycles must be
// non-zero.
func procyield(cycles uint32)
