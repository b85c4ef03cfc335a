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

package workload

import (
	"context"
	"runtime"
	"unsafe"

	"golang.org/x/sys/cpu"
	"gvisor.dev/atomics/pkg/atomicbitops"
	"gvisor.dev/atomics/pkg/tagptr"
)

// node is an element of the tagged stack. Nodes are addressed by their
// index in the pool; next is the index of the successor, or -1.
type node struct {
	next atomicbitops.Int32
	_    cpu.CacheLinePad
}

// stack is a Treiber stack over a fixed pool. Every pop and push advances
// the tag of the head, so a pop delayed across a pop-pop-push of the same
// node fails instead of installing a stale successor.
type stack struct {
	head tagptr.Cell
	pool []node
	base uintptr
}

func newStack(n int) *stack {
	s := &stack{pool: make([]node, n)}
	s.base = uintptr(unsafe.Pointer(&s.pool[0]))
	for i := range s.pool {
		s.push(int32(i))
	}
	return s
}

func (s *stack) addr(i int32) unsafe.Pointer {
	if i < 0 {
		return nil
	}
	return unsafe.Pointer(&s.pool[i])
}

func (s *stack) index(p uintptr) int32 {
	if p == 0 {
		return -1
	}
	return int32((p - s.base) / unsafe.Sizeof(node{}))
}

func (s *stack) push(i int32) (retries uint64) {
	cur := s.head.Load(atomicbitops.LoadRelaxed)
	for {
		s.pool[i].next.Store(s.index(cur.Pointer()), atomicbitops.StoreRelaxed)
		actual, ok := s.head.CompareExchange(cur, cur.WithPointer(s.addr(i)), atomicbitops.Weak, atomicbitops.CASRelease)
		if ok {
			return retries
		}
		cur = actual
		retries++
	}
}

// pop returns -1 if the stack is empty.
func (s *stack) pop() (i int32, retries uint64) {
	cur := s.head.Load(atomicbitops.LoadAcquire)
	for !cur.IsNil() {
		i = s.index(cur.Pointer())
		next := s.pool[i].next.Load(atomicbitops.LoadRelaxed)
		actual, ok := s.head.CompareExchange(cur, cur.WithPointer(s.addr(next)), atomicbitops.Weak, atomicbitops.CASAcqRel)
		if ok {
			return i, retries
		}
		cur = actual
		retries++
	}
	return -1, retries
}

// check walks the stack and verifies that it holds every node once and
// that the head tag counts every successful update.
func (s *stack) check(wantTag int) error {
	head := s.head.Load(atomicbitops.LoadSeqCst)
	if head.Tag() != wantTag {
		return violationf("head tag = %d, want %d", head.Tag(), wantTag)
	}
	seen := make([]bool, len(s.pool))
	n := 0
	for i := s.index(head.Pointer()); i >= 0; i = s.pool[i].next.Load(atomicbitops.LoadRelaxed) {
		if int(i) >= len(s.pool) || seen[i] {
			return violationf("stack is corrupt at node %d after %d nodes", i, n)
		}
		seen[i] = true
		n++
	}
	if n != len(s.pool) {
		return violationf("stack holds %d nodes, want %d", n, len(s.pool))
	}
	return nil
}

// Tagged pops and pushes back nodes of a shared stack from all workers. The
// same addresses are reused continuously, so the stack survives only if
// the tagged head defeats ABA.
func Tagged(ctx context.Context, o Options) (Result, error) {
	return run(ctx, "tagged", o, func(ctx context.Context, c []counts) error {
		s := newStack(o.Goroutines + 1)
		err := parallel(ctx, o.Goroutines, func(ctx context.Context, id int) error {
			for k := 0; k < o.Iterations; k++ {
				if k%ctxCheckInterval == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				i, r := s.pop()
				c[id].retries += r
				if i < 0 {
					// Every other node is held by a worker.
					runtime.Gosched()
					k--
					continue
				}
				c[id].retries += s.push(i)
				c[id].ops += 2
			}
			return nil
		})
		if err != nil {
			return err
		}
		return s.check(len(s.pool) + 2*o.Goroutines*o.Iterations)
	})
}
