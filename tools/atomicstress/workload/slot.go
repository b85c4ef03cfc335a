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
	"gvisor.dev/atomics/pkg/spinslot"
)

type payload struct {
	owner int
	count int
}

// Slot has all workers lock a shared slot, update its payload and unlock
// it, checking that at most one worker holds the lock at a time and that
// no update is lost. Every fourth unlock publishes a copy of the payload in
// place of the one taken.
func Slot(ctx context.Context, o Options) (Result, error) {
	return run(ctx, "slot", o, func(ctx context.Context, c []counts) error {
		var s spinslot.Slot[payload]
		s.Init(&payload{owner: -1})
		var holders atomicbitops.Int32
		err := parallel(ctx, o.Goroutines, func(ctx context.Context, id int) error {
			for k := 0; k < o.Iterations; k++ {
				if k%ctxCheckInterval == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				p := s.LockAndTake(atomicbitops.LoadAcquire)
				if p == nil {
					return violationf("LockAndTake returned nil from an Occupied slot")
				}
				if n := holders.Add(1, atomicbitops.Acquire); n != 0 {
					holders.Sub(1, atomicbitops.Release)
					s.Unlock(p, atomicbitops.StoreRelease)
					return violationf("worker %d holds the lock with %d others", id, n)
				}
				p.count++
				p.owner = id
				holders.Sub(1, atomicbitops.Release)
				if k%4 == 3 {
					cp := *p
					s.Unlock(&cp, atomicbitops.StoreRelease)
				} else {
					s.Unlock(p, atomicbitops.StoreRelease)
				}
				c[id].ops++
			}
			return nil
		})
		if err != nil {
			return err
		}

		p := s.Take(atomicbitops.LoadAcquire)
		if p == nil {
			return violationf("slot is Empty after the run")
		}
		if want := o.Goroutines * o.Iterations; p.count != want {
			return violationf("payload count = %d, want %d", p.count, want)
		}
		if s.SpinSwap(p, atomicbitops.AcqRel) != nil {
			return violationf("slot refilled after Take")
		}
		return nil
	})
}

// SafeStore races all workers storing into an Empty slot and checks that
// exactly one succeeds and that its payload is the one left in the slot.
// Each round runs Iterations/Goroutines races, at least one.
func SafeStore(ctx context.Context, o Options) (Result, error) {
	races := max(o.Iterations/o.Goroutines, 1)
	return run(ctx, "safestore", o, func(ctx context.Context, c []counts) error {
		for r := 0; r < races; r++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			var s spinslot.Slot[payload]
			payloads := make([]payload, o.Goroutines)
			won := make([]bool, o.Goroutines)
			err := parallel(ctx, o.Goroutines, func(ctx context.Context, id int) error {
				payloads[id].owner = id
				won[id] = s.SafeStore(&payloads[id], atomicbitops.AcqRel)
				c[id].ops++
				return nil
			})
			if err != nil {
				return err
			}
			winner := -1
			for id, w := range won {
				if !w {
					continue
				}
				if winner >= 0 {
					return violationf("workers %d and %d both stored", winner, id)
				}
				winner = id
			}
			if winner < 0 {
				return violationf("no worker stored into an Empty slot")
			}
			if st, p := s.Load(atomicbitops.LoadAcquire); st != spinslot.Occupied || p != &payloads[winner] {
				return violationf("slot is %v holding %p, want the payload of worker %d", st, p, winner)
			}
		}
		return nil
	})
}
