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

	"gvisor.dev/atomics/pkg/sync"
)

// Pointer is an atomic pointer to a T. The referent is kept alive by the
// cell.
//
// The zero value is nil.
type Pointer[T any] struct {
	_ sync.NoCopy
	v atomic.Pointer[T]
}

// Init sets the value. It must be called before the cell is shared.
func (p *Pointer[T]) Init(v *T) {
	p.v.Store(v)
}

// Load returns the value.
func (p *Pointer[T]) Load(o LoadOrder) *T {
	CheckLoad(o)
	return p.v.Load()
}

// Store sets the value.
func (p *Pointer[T]) Store(v *T, o StoreOrder) {
	CheckStore(o)
	p.v.Store(v)
}

// Swap sets the value and returns the previous one.
func (p *Pointer[T]) Swap(v *T, o MemoryOrder) *T {
	CheckOrder(o)
	return p.v.Swap(v)
}

// CompareExchange replaces the value with desired if it equals expected,
// returning the value observed and whether the replacement happened.
func (p *Pointer[T]) CompareExchange(expected, desired *T, t CASType, o CASOrder) (actual *T, swapped bool) {
	CheckCAS(t, o)
	for {
		if p.v.CompareAndSwap(expected, desired) {
			return expected, true
		}
		actual = p.v.Load()
		if actual != expected || t == Weak {
			return actual, false
		}
	}
}

// CompareAndSwap is CompareExchange with the failure ordering derived from
// o.
func (p *Pointer[T]) CompareAndSwap(old, new *T, t CASType, o MemoryOrder) bool {
	_, ok := p.CompareExchange(old, new, t, o.CAS())
	return ok
}

// UnsafePointer is an atomic unsafe.Pointer. It is the storage of cells
// that need an untyped address, such as a slot encoding a lock state among
// its pointer values.
//
// The zero value is nil.
type UnsafePointer struct {
	_ sync.NoCopy
	v unsafe.Pointer
}

// Init sets the value. It must be called before the cell is shared.
func (p *UnsafePointer) Init(v unsafe.Pointer) {
	atomic.StorePointer(&p.v, v)
}

// Load returns the value.
func (p *UnsafePointer) Load(o LoadOrder) unsafe.Pointer {
	CheckLoad(o)
	return atomic.LoadPointer(&p.v)
}

// Store sets the value.
func (p *UnsafePointer) Store(v unsafe.Pointer, o StoreOrder) {
	CheckStore(o)
	atomic.StorePointer(&p.v, v)
}

// Swap sets the value and returns the previous one.
func (p *UnsafePointer) Swap(v unsafe.Pointer, o MemoryOrder) unsafe.Pointer {
	CheckOrder(o)
	return atomic.SwapPointer(&p.v, v)
}

// CompareExchange replaces the value with desired if it equals expected,
// returning the value observed and whether the replacement happened.
func (p *UnsafePointer) CompareExchange(expected, desired unsafe.Pointer, t CASType, o CASOrder) (actual unsafe.Pointer, swapped bool) {
	CheckCAS(t, o)
	for {
		if atomic.CompareAndSwapPointer(&p.v, expected, desired) {
			return expected, true
		}
		actual = atomic.LoadPointer(&p.v)
		if actual != expected || t == Weak {
			return actual, false
		}
	}
}

// CompareAndSwap is CompareExchange with the failure ordering derived from
// o.
func (p *UnsafePointer) CompareAndSwap(old, new unsafe.Pointer, t CASType, o MemoryOrder) bool {
	_, ok := p.CompareExchange(old, new, t, o.CAS())
	return ok
}
