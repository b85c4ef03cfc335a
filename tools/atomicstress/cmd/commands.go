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
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"gvisor.dev/atomics/pkg/log"
	"gvisor.dev/atomics/pkg/tagptr"
	"gvisor.dev/atomics/tools/atomicstress/config"
	"gvisor.dev/atomics/tools/atomicstress/workload"
)

// Tagged implements subcommands.Command for the "tagged" command.
type Tagged struct {
	flags workloadFlags
}

// Name implements subcommands.Command.Name.
func (*Tagged) Name() string {
	return "tagged"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Tagged) Synopsis() string {
	return "check that a tagged stack head survives continuous node reuse"
}

// Usage implements subcommands.Command.Usage.
func (*Tagged) Usage() string {
	return `tagged [-goroutines=N] [-iterations=N] [-rounds=N] - pop and push back nodes of a shared stack whose head is a tagged pointer
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (t *Tagged) SetFlags(f *flag.FlagSet) {
	t.flags.setFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (t *Tagged) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)

	var c tagptr.Cell
	lockFree := c.IsLockFree()
	log.Infof("Tagged cells are lock-free: %t", lockFree)
	fmt.Fprintf(env.Stdout, "tagged: double-word compare-and-swap is lock-free: %t\n", lockFree)

	return runWorkload(ctx, env, &t.flags, workload.Tagged)
}

// All implements subcommands.Command for the "all" command.
type All struct {
	flags workloadFlags
}

// Name implements subcommands.Command.Name.
func (*All) Name() string {
	return "all"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*All) Synopsis() string {
	return "run every workload"
}

// Usage implements subcommands.Command.Usage.
func (*All) Usage() string {
	return `all [-goroutines=N] [-iterations=N] [-rounds=N] - run every workload in turn, stopping at the first failure
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (a *All) SetFlags(f *flag.FlagSet) {
	a.flags.setFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (a *All) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)
	for _, fn := range []workload.Func{
		workload.Counter,
		workload.CAS,
		workload.Tagged,
		workload.Slot,
		workload.SafeStore,
	} {
		if status := runWorkload(ctx, env, &a.flags, fn); status != subcommands.ExitSuccess {
			return status
		}
	}
	return subcommands.ExitSuccess
}

// Config implements subcommands.Command for the "config" command.
type Config struct {
	defaults bool
}

// Name implements subcommands.Command.Name.
func (*Config) Name() string {
	return "config"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Config) Synopsis() string {
	return "print the effective configuration as TOML"
}

// Usage implements subcommands.Command.Usage.
func (*Config) Usage() string {
	return `config [-defaults] - print the configuration in the format read by -config
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Config) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.defaults, "defaults", false, "print the built-in defaults instead of the effective configuration.")
}

// Execute implements subcommands.Command.Execute.
func (c *Config) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)
	conf := env.Conf
	if c.defaults {
		conf = config.Default()
	}
	if err := conf.Write(env.Stdout); err != nil {
		return Errorf("writing configuration: %v", err)
	}
	return subcommands.ExitSuccess
}
