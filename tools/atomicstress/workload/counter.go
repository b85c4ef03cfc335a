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

	"gvisor.dev/atomics/pkg/atomicbitops"
)

// Counter increments cells of every width from all workers and checks that
// no increment is lost, modulo the width of each cell.
func Counter(ctx context.Context, o Options) (Result, error) {
	return run(ctx, "counter", o, func(ctx context.Context, c []counts) error {
		var (
			i8  atomicbitops.Int8
			u16 atomicbitops.Uint16
			i32 atomicbitops.Int32
			u64 atomicbitops.Uint64
			n   atomicbitops.Int[int]
		)
		err := parallel(ctx, o.Goroutines, func(ctx context.Context, id int) error {
			for k := 0; k < o.Iterations; k++ {
				if k%ctxCheckInterval == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				i8.Add(1, atomicbitops.Relaxed)
				u16.Add(1, atomicbitops.Relaxed)
				i32.Add(1, atomicbitops.AcqRel)
				u64.Add(1, atomicbitops.SeqCst)
				n.Sub(-1, atomicbitops.Relaxed)
				c[id].ops += 5
			}
			return nil
		})
		if err != nil {
			return err
		}

		total := o.Goroutines * o.Iterations
		if got := i8.Load(atomicbitops.LoadSeqCst); got != int8(total) {
			return violationf("Int8 = %d, want %d", got, int8(total))
		}
		if got := u16.Load(atomicbitops.LoadSeqCst); got != uint16(total) {
			return violationf("Uint16 = %d, want %d", got, uint16(total))
		}
		if got := i32.Load(atomicbitops.LoadSeqCst); got != int32(total) {
			return violationf("Int32 = %d, want %d", got, int32(total))
		}
		if got := u64.Load(atomicbitops.LoadSeqCst); got != uint64(total) {
			return violationf("Uint64 = %d, want %d", got, total)
		}
		if got := n.Load(atomicbitops.LoadSeqCst); got != total {
			return violationf("Int[int] = %d, want %d", got, total)
		}
		return nil
	})
}

// CAS increments one cell through compare-and-swap loops, half of the
// workers using weak and half strong attempts, and checks that both reach
// the same total as plain increments would.
func CAS(ctx context.Context, o Options) (Result, error) {
	return run(ctx, "cas", o, func(ctx context.Context, c []counts) error {
		var v atomicbitops.Uint64
		var flag atomicbitops.Bool
		err := parallel(ctx, o.Goroutines, func(ctx context.Context, id int) error {
			t := atomicbitops.Strong
			if id%2 == 1 {
				t = atomicbitops.Weak
			}
			for k := 0; k < o.Iterations; k++ {
				if k%ctxCheckInterval == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				old := v.Load(atomicbitops.LoadRelaxed)
				for {
					actual, ok := v.CompareExchange(old, old+1, t, atomicbitops.CASAcqRel)
					if ok {
						break
					}
					old = actual
					c[id].retries++
				}
				flag.Xor(true, atomicbitops.AcqRel)
				c[id].ops++
			}
			return nil
		})
		if err != nil {
			return err
		}

		total := uint64(o.Goroutines * o.Iterations)
		if got := v.Load(atomicbitops.LoadSeqCst); got != total {
			return violationf("value = %d, want %d", got, total)
		}
		if got, want := flag.Load(atomicbitops.LoadSeqCst), total%2 == 1; got != want {
			return violationf("flag toggled %d times is %t, want %t", total, got, want)
		}
		return nil
	})
}
