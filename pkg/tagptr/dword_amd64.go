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

//go:build amd64
// +build amd64

package tagptr

import "golang.org/x/sys/cpu"

// useCX16 is set if the processor implements CMPXCHG16B. Without it, double
// words are lock-emulated.
var useCX16 = cpu.X86.HasCX16

// cas128 compares the 16 bytes at addr with (oldLo, oldHi) and replaces them
// with (newLo, newHi) on a match. It returns the contents observed at addr.
// addr must be 16-byte aligned.
//
//go:noescape
func cas128(addr *[2]uint64, oldLo, oldHi, newLo, newHi uint64) (prevLo, prevHi uint64, swapped bool)

func (d *dword) load() (lo, hi uint64) {
	w := d.window()
	if !useCX16 {
		return emulatedLoad(w)
	}
	// A compare-and-swap of (0, 0) with itself leaves the contents intact
	// and returns them atomically.
	lo, hi, _ = cas128(w, 0, 0, 0, 0)
	return lo, hi
}

func (d *dword) store(lo, hi uint64) {
	d.swap(lo, hi)
}

func (d *dword) swap(lo, hi uint64) (prevLo, prevHi uint64) {
	w := d.window()
	if !useCX16 {
		return emulatedSwap(w, lo, hi)
	}
	for {
		var ok bool
		if prevLo, prevHi, ok = cas128(w, prevLo, prevHi, lo, hi); ok {
			return prevLo, prevHi
		}
	}
}

func (d *dword) compareAndSwap(oldLo, oldHi, newLo, newHi uint64) (prevLo, prevHi uint64, swapped bool) {
	w := d.window()
	if !useCX16 {
		return emulatedCompareAndSwap(w, oldLo, oldHi, newLo, newHi)
	}
	return cas128(w, oldLo, oldHi, newLo, newHi)
}

func (d *dword) lockFree() bool {
	return useCX16
}
