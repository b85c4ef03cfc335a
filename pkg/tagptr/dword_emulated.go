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

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
	"gvisor.dev/atomics/pkg/sync"
)

// emulationStripes is the number of locks guarding emulated double words.
const emulationStripes = 64

// emulationLocks guard double words on processors without a native
// double-word compare-and-swap. A word pair is mapped to a lock by address.
var emulationLocks [emulationStripes]struct {
	held atomic.Uint32
	_    cpu.CacheLinePad
}

func lockWords(w *[2]uint64) *atomic.Uint32 {
	l := &emulationLocks[(uintptr(unsafe.Pointer(w))>>4)%emulationStripes].held
	var sw sync.SpinWait
	for {
		if l.Load() == 0 && l.CompareAndSwap(0, 1) {
			return l
		}
		sw.Spin()
	}
}

func emulatedLoad(w *[2]uint64) (lo, hi uint64) {
	l := lockWords(w)
	lo, hi = w[LowWord], w[HighWord]
	l.Store(0)
	return lo, hi
}

func emulatedSwap(w *[2]uint64, lo, hi uint64) (prevLo, prevHi uint64) {
	l := lockWords(w)
	prevLo, prevHi = w[LowWord], w[HighWord]
	w[LowWord], w[HighWord] = lo, hi
	l.Store(0)
	return prevLo, prevHi
}

func emulatedCompareAndSwap(w *[2]uint64, oldLo, oldHi, newLo, newHi uint64) (prevLo, prevHi uint64, swapped bool) {
	l := lockWords(w)
	prevLo, prevHi = w[LowWord], w[HighWord]
	if prevLo == oldLo && prevHi == oldHi {
		w[LowWord], w[HighWord] = newLo, newHi
		swapped = true
	}
	l.Store(0)
	return prevLo, prevHi, swapped
}

// emulatedDword is a double word that is always lock-emulated.
type emulatedDword struct {
	w [2]uint64
}

func (d *emulatedDword) load() (lo, hi uint64) {
	return emulatedLoad(&d.w)
}

func (d *emulatedDword) store(lo, hi uint64) {
	emulatedSwap(&d.w, lo, hi)
}

func (d *emulatedDword) swap(lo, hi uint64) (prevLo, prevHi uint64) {
	return emulatedSwap(&d.w, lo, hi)
}

func (d *emulatedDword) compareAndSwap(oldLo, oldHi, newLo, newHi uint64) (prevLo, prevHi uint64, swapped bool) {
	return emulatedCompareAndSwap(&d.w, oldLo, oldHi, newLo, newHi)
}

func (d *emulatedDword) lockFree() bool {
	return false
}
