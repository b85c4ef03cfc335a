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

package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
	"gvisor.dev/atomics/pkg/spinslot"
	"gvisor.dev/atomics/tools/atomicstress/config"
	"gvisor.dev/atomics/tools/atomicstress/metrics"
	"gvisor.dev/atomics/tools/atomicstress/workload"
)

func newEnv() (*Env, *bytes.Buffer) {
	conf := config.Default()
	conf.Goroutines = 4
	conf.Iterations = 100
	conf.Rounds = 2
	var out bytes.Buffer
	return &Env{Conf: conf, Metrics: metrics.NewRegistry(), Stdout: &out}, &out
}

func execute(t *testing.T, c subcommands.Command, env *Env, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parsing %v: %v", args, err)
	}
	return c.Execute(context.Background(), fs, env)
}

func TestWorkloadFlagsOverride(t *testing.T) {
	conf := config.Default()
	for _, tc := range []struct {
		name  string
		flags workloadFlags
		want  workload.Options
	}{
		{
			name: "none",
			want: workload.Options{Goroutines: conf.Goroutines, Iterations: conf.Iterations, Rounds: conf.Rounds},
		},
		{
			name:  "all",
			flags: workloadFlags{goroutines: 2, iterations: 3, rounds: 4},
			want:  workload.Options{Goroutines: 2, Iterations: 3, Rounds: 4},
		},
		{
			name:  "some",
			flags: workloadFlags{iterations: 7},
			want:  workload.Options{Goroutines: conf.Goroutines, Iterations: 7, Rounds: conf.Rounds},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, tc.flags.options(conf)); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWorkloadCommands(t *testing.T) {
	for _, c := range []subcommands.Command{
		NewCounter(),
		NewCAS(),
		new(Tagged),
		NewSlot(),
		NewSafeStore(),
	} {
		t.Run(c.Name(), func(t *testing.T) {
			env, out := newEnv()
			if status := execute(t, c, env, "-rounds=3"); status != subcommands.ExitSuccess {
				t.Fatalf("Execute = %v, want %v", status, subcommands.ExitSuccess)
			}
			if want := c.Name() + ": ok, 3 rounds"; !strings.Contains(out.String(), want) {
				t.Errorf("output %q does not contain %q", out.String(), want)
			}
			if got := env.Metrics.Counter("rounds_total", "", c.Name()).Value(); got != 3 {
				t.Errorf("rounds_total = %d, want 3", got)
			}
			if got := env.Metrics.Counter("ops_total", "", c.Name()).Value(); got == 0 {
				t.Errorf("ops_total = 0, want > 0")
			}
		})
	}
}

func TestAll(t *testing.T) {
	env, _ := newEnv()
	if status := execute(t, new(All), env, "-rounds=1"); status != subcommands.ExitSuccess {
		t.Fatalf("Execute = %v, want %v", status, subcommands.ExitSuccess)
	}
	for _, name := range []string{"counter", "cas", "tagged", "slot", "safestore"} {
		if got := env.Metrics.Counter("rounds_total", "", name).Value(); got != 1 {
			t.Errorf("rounds_total{workload=%q} = %d, want 1", name, got)
		}
	}
}

func TestExtraArgs(t *testing.T) {
	env, _ := newEnv()
	c := NewCounter()
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	c.SetFlags(fs)
	if err := fs.Parse([]string{"extra"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if status := c.Execute(context.Background(), fs, env); status != subcommands.ExitUsageError {
		t.Errorf("Execute = %v, want %v", status, subcommands.ExitUsageError)
	}
}

func TestFailureRecorded(t *testing.T) {
	var errOut bytes.Buffer
	ErrorLogger = &errOut
	defer func() { ErrorLogger = nil }()

	env, _ := newEnv()
	failing := func(ctx context.Context, o workload.Options) (workload.Result, error) {
		return workload.Result{Name: "failing", Rounds: 1, Violations: 1}, errors.New("round 1: lost update")
	}
	status := runWorkload(context.Background(), env, &workloadFlags{}, failing)
	if status != subcommands.ExitFailure {
		t.Errorf("runWorkload = %v, want %v", status, subcommands.ExitFailure)
	}
	if got := env.Metrics.Counter("violations_total", "", "failing").Value(); got != 1 {
		t.Errorf("violations_total = %d, want 1", got)
	}
	if !strings.Contains(errOut.String(), "lost update") {
		t.Errorf("error output %q does not contain the failure", errOut.String())
	}
}

func TestRecordSlotStats(t *testing.T) {
	r := metrics.NewRegistry()
	record(r, workload.Result{
		Name: "slot",
		Slot: spinslot.Stats{Acquisitions: 5, Contended: 4, Spins: 3, Yields: 2},
	})
	for name, want := range map[string]uint64{
		"slot_acquisitions_total": 5,
		"slot_contended_total":    4,
		"slot_spins_total":        3,
		"slot_yields_total":       2,
	} {
		if got := r.Counter(name, "", "slot").Value(); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestConfigCommand(t *testing.T) {
	env, out := newEnv()
	if status := execute(t, new(Config), env); status != subcommands.ExitSuccess {
		t.Fatalf("Execute = %v, want %v", status, subcommands.ExitSuccess)
	}
	if !strings.Contains(out.String(), "goroutines = 4") {
		t.Errorf("effective config %q does not contain goroutines = 4", out.String())
	}

	out.Reset()
	if status := execute(t, new(Config), env, "-defaults"); status != subcommands.ExitSuccess {
		t.Fatalf("Execute = %v, want %v", status, subcommands.ExitSuccess)
	}
	if !strings.Contains(out.String(), "goroutines = 64") {
		t.Errorf("default config %q does not contain goroutines = 64", out.String())
	}
}
