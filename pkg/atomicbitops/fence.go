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

// fenceWord is the target of the read-modify-write issued by Fence.
var fenceWord atomic.Uint32

// Fence orders the memory operations around it as o requires. Any ordering
// other than Relaxed issues a full barrier; Relaxed is a no-op.
func Fence(o MemoryOrder) {
	CheckOrder(o)
	if o == Relaxed {
		return
	}
	fenceWord.Add(0)
}
