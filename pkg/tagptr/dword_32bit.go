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

//go:build 386 || arm || mips || mipsle
// +build 386 arm mips mipsle

package tagptr

import "sync/atomic"

// dword packs both 32-bit words into one 64-bit word, the pointer in the
// low half.
type dword struct {
	v atomic.Uint64
}

func pack(lo, hi uint64) uint64 {
	return uint64(uint32(lo)) | uint64(uint32(hi))<<32
}

func unpack(v uint64) (lo, hi uint64) {
	return uint64(uint32(v)), uint64(int64(int32(v >> 32)))
}

func (d *dword) load() (lo, hi uint64) {
	return unpack(d.v.Load())
}

func (d *dword) store(lo, hi uint64) {
	d.v.Store(pack(lo, hi))
}

func (d *dword) swap(lo, hi uint64) (prevLo, prevHi uint64) {
	return unpack(d.v.Swap(pack(lo, hi)))
}

func (d *dword) compareAndSwap(oldLo, oldHi, newLo, newHi uint64) (prevLo, prevHi uint64, swapped bool) {
	old := pack(oldLo, oldHi)
	if d.v.CompareAndSwap(old, pack(newLo, newHi)) {
		return oldLo, oldHi, true
	}
	// The double word is strong: loop until the mismatch is observed.
	for {
		prev := d.v.Load()
		if prev != old {
			prevLo, prevHi = unpack(prev)
			return prevLo, prevHi, false
		}
		if d.v.CompareAndSwap(old, pack(newLo, newHi)) {
			return oldLo, oldHi, true
		}
	}
}

func (d *dword) lockFree() bool {
	return true
}
