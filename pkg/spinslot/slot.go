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

// Package spinslot provides a pointer slot that doubles as its own spin
// lock.
//
// A Slot holds nil (Empty), a payload pointer (Occupied) or a reserved
// sentinel address (Locked). The sentinel is the address of a variable
// private to this package, so no *T a caller can form without package
// unsafe is equal to it, and no sentinel is ever returned as a *T.
//
// Goroutines that find the slot Locked busy-wait with sync.SpinWait. The
// lock must only be held for short, non-blocking critical sections.
package spinslot

import (
	"fmt"
	"unsafe"

	"gvisor.dev/atomics/pkg/atomicbitops"
)

// lockedByte provides the Locked sentinel address.
var lockedByte byte

var sentinel = unsafe.Pointer(&lockedByte)

// SentinelAddr returns the address stored in a Locked slot, for code that
// inspects the raw word of a slot. It is constant for the life of the
// process.
func SentinelAddr() uintptr {
	return uintptr(sentinel)
}

// State is the logical state of a Slot.
type State int

const (
	// Empty is a slot holding nil.
	Empty State = iota

	// Occupied is a slot holding a payload.
	Occupied

	// Locked is a slot whose payload has been taken by a lock holder.
	Locked
)

// String implements fmt.Stringer.String.
func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Occupied:
		return "Occupied"
	case Locked:
		return "Locked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Slot is a spin-locked pointer to a T, one word wide.
//
// The zero value is Empty.
type Slot[T any] struct {
	p atomicbitops.UnsafePointer
}

func checkPayload[T any](v *T) {
	if atomicbitops.DebugChecks && unsafe.Pointer(v) == sentinel {
		panic("spinslot: the Locked sentinel passed as a payload")
	}
}

// addr identifies the slot in log messages.
func (s *Slot[T]) addr() uintptr {
	return uintptr(unsafe.Pointer(s))
}

// await spins while the slot is Locked and returns the first other value
// observed.
func (s *Slot[T]) await(o atomicbitops.LoadOrder, w *waiter) unsafe.Pointer {
	for {
		p := s.p.Load(o)
		if p != sentinel {
			return p
		}
		w.spin(s.addr())
	}
}

// Init sets the value. It must be called before the slot is shared.
func (s *Slot[T]) Init(v *T) {
	checkPayload(v)
	s.p.Init(unsafe.Pointer(v))
}

// Load returns the state of the slot and, if Occupied, its payload.
func (s *Slot[T]) Load(o atomicbitops.LoadOrder) (State, *T) {
	switch p := s.p.Load(o); p {
	case nil:
		return Empty, nil
	case sentinel:
		return Locked, nil
	default:
		return Occupied, (*T)(p)
	}
}

// IsLocked returns true if the slot is Locked.
func (s *Slot[T]) IsLocked(o atomicbitops.LoadOrder) bool {
	return s.p.Load(o) == sentinel
}

// LockAndTake spins while the slot is Locked. If the slot is then Empty it
// returns nil without taking the lock. Otherwise it locks the slot and
// returns the payload; the caller must call Unlock.
func (s *Slot[T]) LockAndTake(o atomicbitops.LoadOrder) *T {
	var w waiter
	c := atomicbitops.NewCASOrder(o.Strengthen(), o)
	for {
		p := s.await(o, &w)
		if p == nil {
			w.done()
			return nil
		}
		if _, ok := s.p.CompareExchange(p, sentinel, atomicbitops.Strong, c); ok {
			w.done()
			stats.acquisitions.Add(1, atomicbitops.Relaxed)
			return (*T)(p)
		}
		w.spin(s.addr())
	}
}

// Unlock stores v in a slot locked by LockAndTake. v may be the payload
// taken, another payload, or nil to leave the slot Empty.
func (s *Slot[T]) Unlock(v *T, o atomicbitops.StoreOrder) {
	checkPayload(v)
	if atomicbitops.DebugChecks && !s.IsLocked(atomicbitops.LoadRelaxed) {
		panic("spinslot: Unlock of a slot that is not Locked")
	}
	s.p.Store(unsafe.Pointer(v), o)
}

// Take spins while the slot is Locked, then empties it and returns the
// payload, or nil if it was Empty. No lock is held on return.
func (s *Slot[T]) Take(o atomicbitops.LoadOrder) *T {
	var w waiter
	c := atomicbitops.NewCASOrder(o.Strengthen(), o)
	for {
		p := s.await(o, &w)
		if p == nil {
			w.done()
			return nil
		}
		if _, ok := s.p.CompareExchange(p, nil, atomicbitops.Strong, c); ok {
			w.done()
			return (*T)(p)
		}
		w.spin(s.addr())
	}
}

// SpinSwap spins while the slot is Locked, then replaces its contents with
// v and returns the previous payload, which may be nil. It never replaces
// the Locked sentinel.
func (s *Slot[T]) SpinSwap(v *T, o atomicbitops.MemoryOrder) *T {
	checkPayload(v)
	var w waiter
	c := o.CAS()
	p := s.await(c.Failure(), &w)
	for {
		actual, ok := s.p.CompareExchange(p, unsafe.Pointer(v), atomicbitops.Strong, c)
		if ok {
			w.done()
			return (*T)(p)
		}
		if actual == sentinel {
			p = s.await(c.Failure(), &w)
			continue
		}
		p = actual
	}
}

// SafeStore spins while the slot is Locked. If the slot is then Empty it
// stores v and returns true. If it holds a payload, the slot is left
// untouched and SafeStore returns false.
func (s *Slot[T]) SafeStore(v *T, o atomicbitops.MemoryOrder) bool {
	checkPayload(v)
	var w waiter
	c := o.CAS()
	for {
		if p := s.await(c.Failure(), &w); p != nil {
			w.done()
			return false
		}
		actual, ok := s.p.CompareExchange(nil, unsafe.Pointer(v), atomicbitops.Strong, c)
		if ok {
			w.done()
			return true
		}
		if actual != sentinel {
			w.done()
			return false
		}
		// Locked between the load and the compare-and-swap.
		w.spin(s.addr())
	}
}

// CompareExchange replaces current with future. Locked is a transient
// state, not a value: a Strong attempt that finds the slot Locked waits for
// the unlock and tries again, while a Weak attempt fails at once.
func (s *Slot[T]) CompareExchange(current, future *T, t atomicbitops.CASType, o atomicbitops.MemoryOrder) bool {
	checkPayload(current)
	checkPayload(future)
	var w waiter
	c := o.CAS()
	for {
		actual, ok := s.p.CompareExchange(unsafe.Pointer(current), unsafe.Pointer(future), t, c)
		if ok {
			w.done()
			return true
		}
		if actual != sentinel || t == atomicbitops.Weak {
			w.done()
			return false
		}
		s.await(c.Failure(), &w)
	}
}
