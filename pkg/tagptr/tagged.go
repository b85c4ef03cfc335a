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

// Package tagptr provides a pointer paired with a generation tag, and a
// double-word atomic cell holding such a pair.
//
// Lock-free algorithms that free and reuse nodes can observe the same
// address twice with different meanings between a read and a later
// compare-and-swap. Advancing the tag on every publication makes the second
// observation distinct, so the compare-and-swap fails.
//
// Tags wrap. An algorithm relying on them must bound the number of
// modifications between a read and the dependent compare-and-swap to fewer
// than 2^W, where W is the width of int.
package tagptr

import (
	"fmt"
	"unsafe"
)

// TaggedPointer is an immutable (pointer, tag) pair. Two values are equal
// iff both fields are equal, so TaggedPointer may be compared with ==.
//
// The pointer is kept as an address. A TaggedPointer does not keep its
// referent alive; the owner of the algorithm is responsible for that, as
// with any address that may be freed and reused.
type TaggedPointer struct {
	ptr uintptr
	tag int
}

// New returns the pair (ptr, tag).
func New(ptr unsafe.Pointer, tag int) TaggedPointer {
	return TaggedPointer{ptr: uintptr(ptr), tag: tag}
}

// FromPointer returns the pair (ptr, 0).
func FromPointer(ptr unsafe.Pointer) TaggedPointer {
	return New(ptr, 0)
}

// FromAddr returns the pair (addr, tag).
func FromAddr(addr uintptr, tag int) TaggedPointer {
	return TaggedPointer{ptr: addr, tag: tag}
}

// Pointer returns the address.
func (t TaggedPointer) Pointer() uintptr {
	return t.ptr
}

// Tag returns the tag.
func (t TaggedPointer) Tag() int {
	return t.tag
}

// IsNil returns true if the address is zero, whatever the tag.
func (t TaggedPointer) IsNil() bool {
	return t.ptr == 0
}

// Incremented returns t with the tag advanced by one. The tag wraps.
func (t TaggedPointer) Incremented() TaggedPointer {
	return TaggedPointer{ptr: t.ptr, tag: t.tag + 1}
}

// WithPointer returns a pair holding ptr with the tag advanced by one, for
// publishing a new node in place of t.
func (t TaggedPointer) WithPointer(ptr unsafe.Pointer) TaggedPointer {
	return TaggedPointer{ptr: uintptr(ptr), tag: t.tag + 1}
}

// String implements fmt.Stringer.String.
func (t TaggedPointer) String() string {
	return fmt.Sprintf("%#x/%d", t.ptr, t.tag)
}

// words returns the raw double-word representation of t.
func (t TaggedPointer) words() (lo, hi uint64) {
	return uint64(t.ptr), uint64(int64(t.tag))
}

func fromWords(lo, hi uint64) TaggedPointer {
	return TaggedPointer{ptr: uintptr(lo), tag: int(int64(hi))}
}
