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

package atomicbitops

import "sync/atomic"

// update atomically replaces the value at addr with f applied to it and
// returns the previous value.
func update(addr *atomic.Uint64, f func(uint64) uint64) uint64 {
	for {
		o := addr.Load()
		if addr.CompareAndSwap(o, f(o)) {
			return o
		}
	}
}

// update32 is update for a 32-bit word.
func update32(addr *atomic.Uint32, f func(uint32) uint32) uint32 {
	for {
		o := addr.Load()
		if addr.CompareAndSwap(o, f(o)) {
			return o
		}
	}
}

// compareExchange is like atomic.Uint64.CompareAndSwap, but also returns the
// value observed at addr.
//
// A strong attempt loops until it either swaps or observes a value other
// than old. A weak attempt makes one hardware attempt and reports failure
// if it did not swap, even when the value re-read afterwards equals old.
func compareExchange(addr *atomic.Uint64, old, new uint64, t CASType) (prev uint64, swapped bool) {
	for {
		if addr.CompareAndSwap(old, new) {
			return old, true
		}
		prev = addr.Load()
		if prev != old || t == Weak {
			return prev, false
		}
	}
}

// compareExchange32 is compareExchange for a 32-bit word.
func compareExchange32(addr *atomic.Uint32, old, new uint32, t CASType) (prev uint32, swapped bool) {
	for {
		if addr.CompareAndSwap(old, new) {
			return old, true
		}
		prev = addr.Load()
		if prev != old || t == Weak {
			return prev, false
		}
	}
}
