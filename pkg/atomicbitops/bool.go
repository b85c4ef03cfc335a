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

	"gvisor.dev/atomics/pkg/sync"
)

// Bool is an atomic Boolean.
//
// It is implemented by a 32-bit word, with value 0 indicating false, and 1
// indicating true.
type Bool struct {
	_ sync.NoCopy
	v atomic.Uint32
}

func b32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Init sets the value. It must be called before the cell is shared.
func (b *Bool) Init(val bool) {
	b.v.Store(b32(val))
}

// Load returns the value.
func (b *Bool) Load(o LoadOrder) bool {
	CheckLoad(o)
	return b.v.Load() == 1
}

// Store sets the value.
func (b *Bool) Store(val bool, o StoreOrder) {
	CheckStore(o)
	b.v.Store(b32(val))
}

// Swap sets the value and returns the previous one.
func (b *Bool) Swap(val bool, o MemoryOrder) bool {
	CheckOrder(o)
	return b.v.Swap(b32(val)) == 1
}

// And applies a logical and with val and returns the previous value.
func (b *Bool) And(val bool, o MemoryOrder) bool {
	CheckOrder(o)
	return b.v.And(b32(val)) == 1
}

// Or applies a logical or with val and returns the previous value.
func (b *Bool) Or(val bool, o MemoryOrder) bool {
	CheckOrder(o)
	return b.v.Or(b32(val)) == 1
}

// Xor applies a logical xor with val and returns the previous value.
func (b *Bool) Xor(val bool, o MemoryOrder) bool {
	CheckOrder(o)
	x := b32(val)
	return update32(&b.v, func(u uint32) uint32 { return u ^ x }) == 1
}

// CompareExchange replaces the value with desired if it equals expected,
// returning the value observed and whether the replacement happened.
func (b *Bool) CompareExchange(expected, desired bool, t CASType, o CASOrder) (actual bool, swapped bool) {
	CheckCAS(t, o)
	prev, ok := compareExchange32(&b.v, b32(expected), b32(desired), t)
	return prev == 1, ok
}

// CompareAndSwap is CompareExchange with the failure ordering derived from
// o.
func (b *Bool) CompareAndSwap(old, new bool, t CASType, o MemoryOrder) bool {
	_, ok := b.CompareExchange(old, new, t, o.CAS())
	return ok
}
