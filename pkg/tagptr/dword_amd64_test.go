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

//go:build amd64
// +build amd64

package tagptr

import (
	"testing"

	"golang.org/x/sys/cpu"
	"gvisor.dev/atomics/pkg/atomicbitops"
)

func TestIsLockFree(t *testing.T) {
	var c Cell
	if got, want := c.IsLockFree(), cpu.X86.HasCX16; got != want {
		t.Errorf("IsLockFree = %t, want %t", got, want)
	}
}

func TestWithoutCX16(t *testing.T) {
	defer func(v bool) { useCX16 = v }(useCX16)
	useCX16 = false

	var c Cell
	if c.IsLockFree() {
		t.Errorf("IsLockFree = true without CMPXCHG16B")
	}
	v := FromAddr(0x80, 1)
	c.Store(v, atomicbitops.StoreRelease)
	if !c.CompareAndSwap(v, v.Incremented(), atomicbitops.Strong, atomicbitops.AcqRel) {
		t.Errorf("CompareAndSwap failed on the emulated path")
	}
	if got := c.Load(atomicbitops.LoadAcquire); got != v.Incremented() {
		t.Errorf("Load = %v, want %v", got, v.Incremented())
	}
}
