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

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/exp/constraints"
	"gvisor.dev/atomics/pkg/sync"
)

// Int is an atomic integer of any width and signedness.
//
// The value is kept sign- or zero-extended in a single 64-bit word, so an
// Int is 8 bytes and 8-byte aligned whatever T is, including on 32-bit
// platforms. Arithmetic wraps at the width of T.
//
// The zero value is zero.
type Int[T constraints.Integer] struct {
	_ sync.NoCopy
	v atomic.Uint64
}

// Aliases for every fixed width. The platform int is Int[int].
type (
	Int8    = Int[int8]
	Int16   = Int[int16]
	Int32   = Int[int32]
	Int64   = Int[int64]
	Uint8   = Int[uint8]
	Uint16  = Int[uint16]
	Uint32  = Int[uint32]
	Uint64  = Int[uint64]
	Uint    = Int[uint]
	Uintptr = Int[uintptr]
)

// wide returns true if T occupies the whole backing word, in which case the
// native 64-bit arithmetic already wraps at the right width.
func wide[T constraints.Integer]() bool {
	var zero T
	return unsafe.Sizeof(zero) == 8
}

// Init sets the value. It must be called before the cell is shared.
func (i *Int[T]) Init(v T) {
	i.v.Store(uint64(v))
}

// Load returns the value.
func (i *Int[T]) Load(o LoadOrder) T {
	CheckLoad(o)
	return T(i.v.Load())
}

// Store sets the value.
func (i *Int[T]) Store(v T, o StoreOrder) {
	CheckStore(o)
	i.v.Store(uint64(v))
}

// Swap sets the value and returns the previous one.
func (i *Int[T]) Swap(v T, o MemoryOrder) T {
	CheckOrder(o)
	return T(i.v.Swap(uint64(v)))
}

// Add adds d and returns the previous value.
func (i *Int[T]) Add(d T, o MemoryOrder) T {
	CheckOrder(o)
	if wide[T]() {
		return T(i.v.Add(uint64(d)) - uint64(d))
	}
	return T(update(&i.v, func(x uint64) uint64 { return uint64(T(x) + d) }))
}

// Sub subtracts d and returns the previous value.
func (i *Int[T]) Sub(d T, o MemoryOrder) T {
	CheckOrder(o)
	if wide[T]() {
		return T(i.v.Add(-uint64(d)) + uint64(d))
	}
	return T(update(&i.v, func(x uint64) uint64 { return uint64(T(x) - d) }))
}

// And applies a bitwise and with d and returns the previous value.
func (i *Int[T]) And(d T, o MemoryOrder) T {
	CheckOrder(o)
	// Bitwise operations commute with sign and zero extension.
	return T(i.v.And(uint64(d)))
}

// Or applies a bitwise or with d and returns the previous value.
func (i *Int[T]) Or(d T, o MemoryOrder) T {
	CheckOrder(o)
	return T(i.v.Or(uint64(d)))
}

// Xor applies a bitwise xor with d and returns the previous value.
func (i *Int[T]) Xor(d T, o MemoryOrder) T {
	CheckOrder(o)
	return T(update(&i.v, func(x uint64) uint64 { return x ^ uint64(d) }))
}

// CompareExchange replaces the value with desired if it equals expected.
// It returns the value observed and whether the replacement happened.
//
// A Weak attempt may report failure while returning expected as the
// observed value; the caller retries with the returned value.
func (i *Int[T]) CompareExchange(expected, desired T, t CASType, o CASOrder) (actual T, swapped bool) {
	CheckCAS(t, o)
	prev, ok := compareExchange(&i.v, uint64(expected), uint64(desired), t)
	return T(prev), ok
}

// CompareAndSwap is CompareExchange with the failure ordering derived from
// o, discarding the observed value.
func (i *Int[T]) CompareAndSwap(old, new T, t CASType, o MemoryOrder) bool {
	_, ok := i.CompareExchange(old, new, t, o.CAS())
	return ok
}

// IncUnlessZero increments the value and returns true, unless the value is
// zero, in which case it is left unmodified and false is returned.
func (i *Int[T]) IncUnlessZero(o MemoryOrder) bool {
	CheckOrder(o)
	for {
		v := i.v.Load()
		if v == 0 {
			return false
		}
		if i.v.CompareAndSwap(v, uint64(T(v)+1)) {
			return true
		}
	}
}

// DecUnlessOne decrements the value and returns true, unless the value is
// one, in which case it is left unmodified and false is returned.
func (i *Int[T]) DecUnlessOne(o MemoryOrder) bool {
	CheckOrder(o)
	for {
		v := i.v.Load()
		if v == 1 {
			return false
		}
		if i.v.CompareAndSwap(v, uint64(T(v)-1)) {
			return true
		}
	}
}
