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
	"gvisor.dev/atomics/pkg/atomicbitops"
	"gvisor.dev/atomics/pkg/sync"
)

// Layout of the raw representation of a Cell: the pointer occupies the low
// machine word and the tag the high machine word.
const (
	LowWord  = 0
	HighWord = 1
)

// Cell is an atomic TaggedPointer. The unit of atomicity is the whole pair.
//
// Depending on the platform the pair is updated with a native double-word
// compare-and-swap or through a lock-emulated fallback; IsLockFree reports
// which. Both give the same results. As with the atomicbitops cells, each
// ordering request is satisfied by sequential consistency.
//
// On amd64 and arm64 the record is three words wide, with the LowWord and
// HighWord pair placed in its 16-byte aligned window.
//
// The zero value holds (nil, 0).
type Cell struct {
	_ sync.NoCopy
	d dword
}

// Init sets the value. It must be called before the cell is shared.
func (c *Cell) Init(v TaggedPointer) {
	c.d.store(v.words())
}

// Load returns the value.
func (c *Cell) Load(o atomicbitops.LoadOrder) TaggedPointer {
	atomicbitops.CheckLoad(o)
	return fromWords(c.d.load())
}

// Store sets the value.
func (c *Cell) Store(v TaggedPointer, o atomicbitops.StoreOrder) {
	atomicbitops.CheckStore(o)
	c.d.store(v.words())
}

// Swap sets the value and returns the previous one.
func (c *Cell) Swap(v TaggedPointer, o atomicbitops.MemoryOrder) TaggedPointer {
	atomicbitops.CheckOrder(o)
	return fromWords(c.d.swap(v.words()))
}

// CompareExchange replaces the value with desired if both the pointer and
// the tag equal those of expected. It returns the value observed and whether
// the replacement happened.
//
// The double-word compare-and-swap is strong on every platform, so a Weak
// attempt only fails on a genuine mismatch; callers still retry in a loop.
func (c *Cell) CompareExchange(expected, desired TaggedPointer, t atomicbitops.CASType, o atomicbitops.CASOrder) (actual TaggedPointer, swapped bool) {
	atomicbitops.CheckCAS(t, o)
	oldLo, oldHi := expected.words()
	newLo, newHi := desired.words()
	lo, hi, ok := c.d.compareAndSwap(oldLo, oldHi, newLo, newHi)
	return fromWords(lo, hi), ok
}

// CompareAndSwap is CompareExchange discarding the observed value.
func (c *Cell) CompareAndSwap(old, new TaggedPointer, t atomicbitops.CASType, o atomicbitops.MemoryOrder) bool {
	_, ok := c.CompareExchange(old, new, t, o.CAS())
	return ok
}

// IsLockFree returns true if the cell uses a native double-word
// compare-and-swap.
func (c *Cell) IsLockFree() bool {
	return c.d.lockFree()
}
