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

package spinslot

import (
	"time"

	"golang.org/x/sys/cpu"
	"gvisor.dev/atomics/pkg/atomicbitops"
	"gvisor.dev/atomics/pkg/log"
	"gvisor.dev/atomics/pkg/sync"
)

// stats are shared by all slots, so that a Slot stays one word.
var stats struct {
	acquisitions atomicbitops.Uint64
	_            cpu.CacheLinePad
	contended    atomicbitops.Uint64
	spins        atomicbitops.Uint64
	yields       atomicbitops.Uint64
	waiters      atomicbitops.Int64
}

// stuckLog reports goroutines that have been spinning for a long time.
var stuckLog = log.BasicRateLimitedLogger(10 * time.Second)

// Stats is a snapshot of the contention counters of all slots.
type Stats struct {
	// Acquisitions is the number of locks taken by LockAndTake.
	Acquisitions uint64

	// Contended is the number of operations that found a slot Locked or
	// lost a race and had to wait.
	Contended uint64

	// Spins is the number of backoff steps taken.
	Spins uint64

	// Yields is the number of backoff steps that yielded the processor.
	Yields uint64

	// Waiters is the number of goroutines spinning at the time of the
	// snapshot.
	Waiters int64
}

// ReadStats returns the current counters.
func ReadStats() Stats {
	return Stats{
		Acquisitions: stats.acquisitions.Load(atomicbitops.LoadRelaxed),
		Contended:    stats.contended.Load(atomicbitops.LoadRelaxed),
		Spins:        stats.spins.Load(atomicbitops.LoadRelaxed),
		Yields:       stats.yields.Load(atomicbitops.LoadRelaxed),
		Waiters:      stats.waiters.Load(atomicbitops.LoadRelaxed),
	}
}

// Sub returns the counter increments from prev to s. Waiters is taken from
// s.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		Acquisitions: s.Acquisitions - prev.Acquisitions,
		Contended:    s.Contended - prev.Contended,
		Spins:        s.Spins - prev.Spins,
		Yields:       s.Yields - prev.Yields,
		Waiters:      s.Waiters,
	}
}

// waiter is the backoff state of one slot operation.
type waiter struct {
	sw      sync.SpinWait
	waiting bool
}

func (w *waiter) spin(slot uintptr) {
	if !w.waiting {
		w.waiting = true
		stats.waiters.Add(1, atomicbitops.Relaxed)
	}
	yields := w.sw.Yields()
	w.sw.Spin()
	stats.spins.Add(1, atomicbitops.Relaxed)
	if w.sw.Yields() == yields {
		return
	}
	stats.yields.Add(1, atomicbitops.Relaxed)
	if w.sw.Stuck() {
		stuckLog.Warningf("Slot %#x has been locked for %d yields", slot, w.sw.Yields())
	}
}

func (w *waiter) done() {
	if w.waiting {
		w.waiting = false
		stats.waiters.Add(-1, atomicbitops.Relaxed)
		stats.contended.Add(1, atomicbitops.Relaxed)
	}
}
