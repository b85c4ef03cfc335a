// Copyright 2023 The gVisor Authors.
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

import (
	"math"

	"gvisor.dev/atomics/pkg/sync"
)

// Float64 is an atomic 64-bit floating-point number.
type Float64 struct {
	_ sync.NoCopy
	// bits stores the bit of a 64-bit floating point number.
	// It is not (and should not be interpreted as) a real uint64.
	bits Uint64
}

// Init sets the value. It must be called before the cell is shared.
func (f *Float64) Init(v float64) {
	f.bits.Init(math.Float64bits(v))
}

// Load loads the floating-point value.
func (f *Float64) Load(o LoadOrder) float64 {
	return math.Float64frombits(f.bits.Load(o))
}

// Store stores the given floating-point value in the Float64.
func (f *Float64) Store(v float64, o StoreOrder) {
	f.bits.Store(math.Float64bits(v), o)
}

// Swap stores the given value and returns the previously-stored one.
func (f *Float64) Swap(v float64, o MemoryOrder) float64 {
	return math.Float64frombits(f.bits.Swap(math.Float64bits(v), o))
}

// CompareAndSwap does a compare-and-swap operation on the float64 value.
// Note that unlike typical IEEE 754 semantics, this function will treat NaN
// as equal to itself if all of its bits exactly match.
func (f *Float64) CompareAndSwap(oldVal, newVal float64, t CASType, o MemoryOrder) bool {
	return f.bits.CompareAndSwap(math.Float64bits(oldVal), math.Float64bits(newVal), t, o)
}

// Add increments the float by the given value and returns the previous one.
// Note that unlike an atomic integer, this requires spin-looping until we win
// the compare-and-swap race, so this may take an indeterminate amount of time.
func (f *Float64) Add(v float64, o MemoryOrder) float64 {
	c := o.CAS()
	old := f.bits.Load(o.Load())
	for {
		prev, ok := f.bits.CompareExchange(old, math.Float64bits(math.Float64frombits(old)+v), Weak, c)
		if ok {
			return math.Float64frombits(old)
		}
		old = prev
	}
}
