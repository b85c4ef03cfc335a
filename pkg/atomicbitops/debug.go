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

import "fmt"

// The Check functions panic on an out-of-range ordering argument. They
// compile to nothing unless DebugChecks is set, and are exported for cells
// built outside this package.

// CheckLoad validates a load ordering.
func CheckLoad(o LoadOrder) {
	if DebugChecks && !o.Valid() {
		panic(fmt.Sprintf("invalid load ordering %v", o))
	}
}

// CheckStore validates a store ordering.
func CheckStore(o StoreOrder) {
	if DebugChecks && !o.Valid() {
		panic(fmt.Sprintf("invalid store ordering %v", o))
	}
}

// CheckOrder validates a full ordering.
func CheckOrder(o MemoryOrder) {
	if DebugChecks && !o.Valid() {
		panic(fmt.Sprintf("invalid ordering %v", o))
	}
}

// CheckCAS validates a compare-and-swap type and ordering pair.
func CheckCAS(t CASType, o CASOrder) {
	if !DebugChecks {
		return
	}
	if t != Strong && t != Weak {
		panic(fmt.Sprintf("invalid compare-and-swap type %v", t))
	}
	if !ValidCASOrder(o.success, o.failure) {
		panic(fmt.Sprintf("invalid compare-and-swap ordering %v", o))
	}
}
