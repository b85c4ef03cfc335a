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

// Package cmd holds implementations of the atomicstress commands.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/atomics/pkg/log"
	"gvisor.dev/atomics/tools/atomicstress/config"
	"gvisor.dev/atomics/tools/atomicstress/metrics"
	"gvisor.dev/atomics/tools/atomicstress/workload"
)

// ErrorLogger is where error messages are written to, in addition to the
// debug log. Nil means os.Stderr.
var ErrorLogger io.Writer

// Errorf logs an error and writes it to ErrorLogger. It returns
// subcommands.ExitFailure for convenience with Execute methods:
//
//	return Errorf("Danger! Danger!")
func Errorf(format string, args ...any) subcommands.ExitStatus {
	writeError(format, args...)
	return subcommands.ExitFailure
}

func writeError(format string, args ...any) {
	log.Warningf("FATAL ERROR: "+format, args...)
	w := ErrorLogger
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Env is passed as the first argument to every Execute method.
type Env struct {
	// Conf is the effective configuration.
	Conf *config.Config

	// Metrics receives the counters of the workloads run.
	Metrics *metrics.Registry

	// Stdout receives the summaries.
	Stdout io.Writer
}

// workloadFlags override the sizes from the configuration file.
type workloadFlags struct {
	goroutines int
	iterations int
	rounds     int
}

func (w *workloadFlags) setFlags(f *flag.FlagSet) {
	f.IntVar(&w.goroutines, "goroutines", 0, "number of concurrent workers; 0 uses the configuration.")
	f.IntVar(&w.iterations, "iterations", 0, "operations per worker per round; 0 uses the configuration.")
	f.IntVar(&w.rounds, "rounds", 0, "number of rounds; 0 uses the configuration.")
}

func (w *workloadFlags) options(conf *config.Config) workload.Options {
	o := workload.Options{
		Goroutines: conf.Goroutines,
		Iterations: conf.Iterations,
		Rounds:     conf.Rounds,
	}
	if w.goroutines > 0 {
		o.Goroutines = w.goroutines
	}
	if w.iterations > 0 {
		o.Iterations = w.iterations
	}
	if w.rounds > 0 {
		o.Rounds = w.rounds
	}
	return o
}

// record adds the result of a workload to the registry.
func record(r *metrics.Registry, res workload.Result) {
	name := res.Name
	r.Counter("rounds_total", "Workload rounds completed.", name).Add(uint64(res.Rounds))
	r.Counter("ops_total", "Successful operations performed.", name).Add(res.Ops)
	r.Counter("retries_total", "Failed compare-and-swap attempts.", name).Add(res.Retries)
	r.Counter("violations_total", "Rounds that violated the checked property.", name).Add(res.Violations)
	r.Counter("slot_acquisitions_total", "Locks taken on spin-locked slots.", name).Add(res.Slot.Acquisitions)
	r.Counter("slot_contended_total", "Slot operations that had to wait.", name).Add(res.Slot.Contended)
	r.Counter("slot_spins_total", "Backoff steps taken on Locked slots.", name).Add(res.Slot.Spins)
	r.Counter("slot_yields_total", "Backoff steps that yielded the processor.", name).Add(res.Slot.Yields)
}

// runWorkload runs fn with the sizes from conf and w, and reports the
// result.
func runWorkload(ctx context.Context, env *Env, w *workloadFlags, fn workload.Func) subcommands.ExitStatus {
	o := w.options(env.Conf)
	if o.Goroutines < 1 || o.Iterations < 1 || o.Rounds < 1 {
		return Errorf("invalid workload size %+v", o)
	}
	if env.Conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, env.Conf.Timeout)
		defer cancel()
	}

	res, err := fn(ctx, o)
	record(env.Metrics, res)
	if err != nil {
		return Errorf("%v", err)
	}
	log.Infof("%s: %+v", res.Name, res)
	fmt.Fprintf(env.Stdout, "%s: ok, %d rounds, %d ops, %d retries, %d slot spins in %v\n",
		res.Name, res.Rounds, res.Ops, res.Retries, res.Slot.Spins, res.Elapsed)
	return subcommands.ExitSuccess
}

// workloadCmd implements subcommands.Command for a single workload.
type workloadCmd struct {
	name     string
	synopsis string
	fn       workload.Func
	flags    workloadFlags
}

// Name implements subcommands.Command.Name.
func (c *workloadCmd) Name() string {
	return c.name
}

// Synopsis implements subcommands.Command.Synopsis.
func (c *workloadCmd) Synopsis() string {
	return c.synopsis
}

// Usage implements subcommands.Command.Usage.
func (c *workloadCmd) Usage() string {
	return fmt.Sprintf("%s [-goroutines=N] [-iterations=N] [-rounds=N] - %s\n", c.name, c.synopsis)
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *workloadCmd) SetFlags(f *flag.FlagSet) {
	c.flags.setFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (c *workloadCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)
	return runWorkload(ctx, env, &c.flags, c.fn)
}

// NewCounter returns the "counter" command.
func NewCounter() subcommands.Command {
	return &workloadCmd{
		name:     "counter",
		synopsis: "check that concurrent increments of cells of every width are never lost",
		fn:       workload.Counter,
	}
}

// NewCAS returns the "cas" command.
func NewCAS() subcommands.Command {
	return &workloadCmd{
		name:     "cas",
		synopsis: "check that weak and strong compare-and-swap loops reach the same totals",
		fn:       workload.CAS,
	}
}

// NewSlot returns the "slot" command.
func NewSlot() subcommands.Command {
	return &workloadCmd{
		name:     "slot",
		synopsis: "check mutual exclusion of a spin-locked slot",
		fn:       workload.Slot,
	}
}

// NewSafeStore returns the "safestore" command.
func NewSafeStore() subcommands.Command {
	return &workloadCmd{
		name:     "safestore",
		synopsis: "check that exactly one racing SafeStore into an empty slot wins",
		fn:       workload.SafeStore,
	}
}
