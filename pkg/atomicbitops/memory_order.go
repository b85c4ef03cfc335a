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

// Package atomicbitops provides atomic cells for integers of every width,
// booleans and pointers. Every operation takes an explicit memory ordering.
//
// The orderings follow the C11 model and their values equal the C11
// __ATOMIC_* constants. The operations are built on sync/atomic, which is
// sequentially consistent, so every ordering request is satisfied by a
// stronger one. The argument still documents the synchronization the caller
// relies on, and it is validated when DebugChecks is set.
package atomicbitops

import "fmt"

// MemoryOrder is an ordering for exchanges, read-modify-write operations and
// the success path of a compare-and-swap.
type MemoryOrder int32

// Full orderings. Consume (1) is not offered.
const (
	Relaxed MemoryOrder = 0
	Acquire MemoryOrder = 2
	Release MemoryOrder = 3
	AcqRel  MemoryOrder = 4
	SeqCst  MemoryOrder = 5
)

// LoadOrder is an ordering for loads and the failure path of a
// compare-and-swap.
type LoadOrder int32

// Load orderings.
const (
	LoadRelaxed = LoadOrder(Relaxed)
	LoadAcquire = LoadOrder(Acquire)
	LoadSeqCst  = LoadOrder(SeqCst)
)

// StoreOrder is an ordering for stores.
type StoreOrder int32

// Store orderings.
const (
	StoreRelaxed = StoreOrder(Relaxed)
	StoreRelease = StoreOrder(Release)
	StoreSeqCst  = StoreOrder(SeqCst)
)

var orderNames = map[int32]string{
	0: "relaxed",
	2: "acquire",
	3: "release",
	4: "acq_rel",
	5: "seq_cst",
}

func orderName(o int32) string {
	if s, ok := orderNames[o]; ok {
		return s
	}
	return fmt.Sprintf("order(%d)", o)
}

// Valid returns true if o is one of the full orderings.
func (o MemoryOrder) Valid() bool {
	switch o {
	case Relaxed, Acquire, Release, AcqRel, SeqCst:
		return true
	}
	return false
}

// String implements fmt.Stringer.String.
func (o MemoryOrder) String() string { return orderName(int32(o)) }

// Load returns the load component of o. It is the strongest ordering that
// may be used for the failure path of a compare-and-swap whose success
// ordering is o.
func (o MemoryOrder) Load() LoadOrder {
	switch o {
	case Acquire, AcqRel:
		return LoadAcquire
	case SeqCst:
		return LoadSeqCst
	default:
		return LoadRelaxed
	}
}

// Store returns the store component of o.
func (o MemoryOrder) Store() StoreOrder {
	switch o {
	case Release, AcqRel:
		return StoreRelease
	case SeqCst:
		return StoreSeqCst
	default:
		return StoreRelaxed
	}
}

// CAS returns the compare-and-swap ordering with success ordering o and the
// strongest failure ordering legal for it.
func (o MemoryOrder) CAS() CASOrder {
	return NewCASOrder(o, o.Load())
}

// Valid returns true if o is one of the load orderings.
func (o LoadOrder) Valid() bool {
	switch o {
	case LoadRelaxed, LoadAcquire, LoadSeqCst:
		return true
	}
	return false
}

// String implements fmt.Stringer.String.
func (o LoadOrder) String() string { return orderName(int32(o)) }

// Strengthen returns o as a full ordering.
func (o LoadOrder) Strengthen() MemoryOrder { return MemoryOrder(o) }

// Valid returns true if o is one of the store orderings.
func (o StoreOrder) Valid() bool {
	switch o {
	case StoreRelaxed, StoreRelease, StoreSeqCst:
		return true
	}
	return false
}

// String implements fmt.Stringer.String.
func (o StoreOrder) String() string { return orderName(int32(o)) }

// Strengthen returns o as a full ordering.
func (o StoreOrder) Strengthen() MemoryOrder { return MemoryOrder(o) }

// CASType selects between a strong and a weak compare-and-swap.
type CASType int32

const (
	// Strong never fails unless the comparison fails.
	Strong CASType = 0

	// Weak may fail even when the comparison succeeds, and must be retried
	// in a loop.
	Weak CASType = 1
)

// String implements fmt.Stringer.String.
func (t CASType) String() string {
	switch t {
	case Strong:
		return "strong"
	case Weak:
		return "weak"
	default:
		return fmt.Sprintf("CASType(%d)", int32(t))
	}
}

// CASOrder is a (success, failure) ordering pair for a compare-and-swap.
//
// The failure ordering is never stronger than the success ordering, and a
// Release success ordering has a Relaxed failure ordering. A CASOrder can
// only be obtained from NewCASOrder or the predeclared pairs, so every value
// in circulation is valid. The zero value is (Relaxed, Relaxed).
type CASOrder struct {
	success MemoryOrder
	failure LoadOrder
}

// Predeclared ordering pairs, each with the strongest legal failure
// ordering.
var (
	CASRelaxed = CASOrder{Relaxed, LoadRelaxed}
	CASAcquire = CASOrder{Acquire, LoadAcquire}
	CASRelease = CASOrder{Release, LoadRelaxed}
	CASAcqRel  = CASOrder{AcqRel, LoadAcquire}
	CASSeqCst  = CASOrder{SeqCst, LoadSeqCst}
)

// ValidCASOrder returns true if (success, failure) is a legal pair.
func ValidCASOrder(success MemoryOrder, failure LoadOrder) bool {
	// LoadRelaxed < LoadAcquire < LoadSeqCst numerically, and
	// success.Load() is the strongest failure ordering success permits.
	return success.Valid() && failure.Valid() && failure <= success.Load()
}

// NewCASOrder returns the ordering pair (success, failure). It panics if the
// pair is not legal.
func NewCASOrder(success MemoryOrder, failure LoadOrder) CASOrder {
	if !ValidCASOrder(success, failure) {
		panic(fmt.Sprintf("invalid compare-and-swap ordering (%v, %v)", success, failure))
	}
	return CASOrder{success: success, failure: failure}
}

// Success returns the ordering applied when the comparison succeeds.
func (c CASOrder) Success() MemoryOrder { return c.success }

// Failure returns the ordering applied when the comparison fails.
func (c CASOrder) Failure() LoadOrder { return c.failure }

// String implements fmt.Stringer.String.
func (c CASOrder) String() string {
	return fmt.Sprintf("(%v, %v)", c.success, c.failure)
}
