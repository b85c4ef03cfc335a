// Copyright 2024 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build amd64 || arm64
// +build amd64 arm64

package tagptr

import "unsafe"

// dword is a pair of words on a 16-byte boundary inside words, as required
// by the double-word instructions. The Go allocator only guarantees 8-byte
// alignment for the record, so one word of slack is carried.
type dword struct {
	words [3]uint64
}

func (d *dword) window() *[2]uint64 {
	return (*[2]uint64)(unsafe.Pointer((uintptr(unsafe.Pointer(&d.words)) + 15) &^ 15))
}
