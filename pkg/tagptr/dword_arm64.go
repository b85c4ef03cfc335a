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

package tagptr

// load128 returns the 16 bytes at addr. addr must be 16-byte aligned.
//
//go:noescape
func load128(addr *[2]uint64) (lo, hi uint64)

// swap128 replaces the 16 bytes at addr and returns the previous contents.
// addr must be 16-byte aligned.
//
//go:noescape
func swap128(addr *[2]uint64, lo, hi uint64) (prevLo, prevHi uint64)

// cas128 compares the 16 bytes at addr with (oldLo, oldHi) and replaces them
// with (newLo, newHi) on a match. It returns the contents observed at addr.
// addr must be 16-byte aligned.
//
//go:noescape
func cas128(addr *[2]uint64, oldLo, oldHi, newLo, newHi uint64) (prevLo, prevHi uint64, swapped bool)

func (d *dword) load() (lo, hi uint64) {
	return load128(d.window())
}

func (d *dword) store(lo, hi uint64) {
	swap128(d.window(), lo, hi)
}

func (d *dword) swap(lo, hi uint64) (prevLo, prevHi uint64) {
	return swap128(d.window(), lo, hi)
}

func (d *dword) compareAndSwap(oldLo, oldHi, newLo, newHi uint64) (prevLo, prevHi uint64, swapped bool) {
	return cas128(d.window(), oldLo, oldHi, newLo, newHi)
}

// The exclusive pair instructions are part of the base ARMv8.0 ISA.
func (d *dword) lockFree() bool {
	return true
}
