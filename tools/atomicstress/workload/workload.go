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

// Package workload implements the concurrent workloads run by atomicstress.
// Each workload checks a property of the primitives and returns an error
// wrapping ErrViolation when it does not hold.
package workload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"
	"gvisor.dev/atomics/pkg/log"
	"gvisor.dev/atomics/pkg/spinslot"
)

// ErrViolation is wrapped by the errors reporting a violated property.
var ErrViolation = errors.New("property violated")

func violationf(format string, v ...any) error {
	return fmt.Errorf("%w: %s", ErrViolation, fmt.Sprintf(format, v...))
}

// Options sizes a workload.
type Options struct {
	// Goroutines is the number of concurrent workers.
	Goroutines int

	// Iterations is the number of operations per worker per round.
	Iterations int

	// Rounds is the number of repetitions on fresh cells.
	Rounds int
}

// Result summarizes a workload run.
type Result struct {
	// Name is the workload name.
	Name string

	// Rounds is the number of rounds completed.
	Rounds int

	// Ops is the number of successful operations.
	Ops uint64

	// Retries is the number of failed compare-and-swap attempts.
	Retries uint64

	// Violations is the number of rounds that violated the property.
	Violations uint64

	// Slot holds the slot contention counters accumulated during the run.
	Slot spinslot.Stats

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Func is the signature shared by all workloads.
type Func func(ctx context.Context, o Options) (Result, error)

// counts are the per-worker counters, padded to avoid false sharing.
type counts struct {
	ops     uint64
	retries uint64
	_       cpu.CacheLinePad
}

// ctxCheckInterval is the number of iterations between context checks.
const ctxCheckInterval = 256

// parallel runs fn on n goroutines and returns the first error.
func parallel(ctx context.Context, n int, fn func(ctx context.Context, id int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for id := 0; id < n; id++ {
		g.Go(func() error {
			return fn(ctx, id)
		})
	}
	return g.Wait()
}

// run calls round o.Rounds times and accumulates the per-worker counters.
func run(ctx context.Context, name string, o Options, round func(ctx context.Context, c []counts) error) (Result, error) {
	res := Result{Name: name}
	start := time.Now()
	before := spinslot.ReadStats()
	finish := func() {
		res.Elapsed = time.Since(start)
		res.Slot = spinslot.ReadStats().Sub(before)
	}
	for i := 0; i < o.Rounds; i++ {
		if err := ctx.Err(); err != nil {
			finish()
			return res, fmt.Errorf("%s: round %d: %w", name, i, err)
		}
		c := make([]counts, o.Goroutines)
		err := round(ctx, c)
		for _, w := range c {
			res.Ops += w.ops
			res.Retries += w.retries
		}
		if err != nil {
			if errors.Is(err, ErrViolation) {
				res.Violations++
			}
			finish()
			return res, fmt.Errorf("%s: round %d: %w", name, i, err)
		}
		res.Rounds++
		log.Debugf("%s: round %d done", name, i)
	}
	finish()
	return res, nil
}
