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

// Package cli is the main entrypoint for atomicstress.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/atomics/pkg/log"
	"gvisor.dev/atomics/pkg/sync"
	"gvisor.dev/atomics/tools/atomicstress/cmd"
	"gvisor.dev/atomics/tools/atomicstress/config"
	"gvisor.dev/atomics/tools/atomicstress/metrics"
)

// flags are the global flags, placed before the command name.
type flags struct {
	configPath string
	debug      bool
	logFormat  string
	logPattern string
	metricsOut string
}

func (f *flags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "path to a TOML configuration file.")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging.")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text (default), json, or json-k8s.")
	fs.StringVar(&f.logPattern, "log", "", "file pattern for the log, may contain %TIMESTAMP%, %COMMAND% and %PID%. Logs go to stderr if empty.")
	fs.StringVar(&f.metricsOut, "metrics-out", "", "file to write workload counters to, in Prometheus text format.")
}

// forEachCmd invokes the passed callback for each command supported by
// atomicstress.
func forEachCmd(cb func(c subcommands.Command, group string), cdr *subcommands.Commander) {
	// Help and flags commands are generated automatically.
	help := cdr.HelpCommand()
	helpFlags := cdr.FlagsCommand()
	cb(help, "")
	cb(helpFlags, "")

	const workloadGroup = "workloads"
	cb(cmd.NewCounter(), workloadGroup)
	cb(cmd.NewCAS(), workloadGroup)
	cb(new(cmd.Tagged), workloadGroup)
	cb(cmd.NewSlot(), workloadGroup)
	cb(cmd.NewSafeStore(), workloadGroup)
	cb(new(cmd.All), workloadGroup)

	cb(new(cmd.Config), "")
}

// Main is the main entrypoint.
func Main() {
	os.Exit(int(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)))
}

// Run parses args, runs the selected command and returns its exit status.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) subcommands.ExitStatus {
	fs := flag.NewFlagSet("atomicstress", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f flags
	f.register(fs)

	cdr := subcommands.NewCommander(fs, "atomicstress")
	forEachCmd(cdr.Register, cdr)

	if err := fs.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	cmd.ErrorLogger = stderr

	conf, err := loadConfig(fs, &f)
	if err != nil {
		return cmd.Errorf("%v", err)
	}

	logFile := stderr
	if f.logPattern != "" {
		opts := log.PatternOpts{
			Command: fs.Arg(0),
			Start:   time.Now(),
		}
		file, err := log.OpenFile(f.logPattern, os.O_CREATE|os.O_WRONLY|os.O_APPEND, opts)
		if err != nil {
			return cmd.Errorf("error opening log file %q: %v", f.logPattern, err)
		}
		defer file.Close()
		logFile = file
	}
	e, err := newEmitter(conf.LogFormat, logFile)
	if err != nil {
		return cmd.Errorf("%v", err)
	}
	log.SetTarget(e)
	if conf.Debug {
		log.SetLevel(log.Debug)
	} else {
		log.SetLevel(log.Info)
	}
	sync.SetSpinConfig(conf.SpinConfig())

	log.Infof("***************************")
	log.Infof("Args: %s", args)
	log.Infof("GOOS: %s, GOARCH: %s, NumCPU: %d", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	log.Infof("PID: %d", os.Getpid())
	conf.Log()
	log.Infof("***************************")

	env := &cmd.Env{
		Conf:    conf,
		Metrics: metrics.NewRegistry(),
		Stdout:  stdout,
	}
	status := cdr.Execute(ctx, env)

	if f.metricsOut != "" {
		if _, err := env.Metrics.WriteFile(f.metricsOut); err != nil {
			return cmd.Errorf("writing metrics to %q: %v", f.metricsOut, err)
		}
	}
	log.Infof("Exiting with status: %v", status)
	return status
}

// loadConfig reads the configuration file, if any, and applies the global
// flags that were set explicitly on top of it.
func loadConfig(fs *flag.FlagSet, f *flags) (*config.Config, error) {
	conf := config.Default()
	if f.configPath != "" {
		var err error
		if conf, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			conf.Debug = f.debug
		case "log-format":
			conf.LogFormat = f.logFormat
		}
	})
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return conf, nil
}

func newEmitter(format string, logFile io.Writer) (log.Emitter, error) {
	switch format {
	case "text":
		return log.GoogleEmitter{&log.Writer{Next: logFile}}, nil
	case "json":
		return log.JSONEmitter{&log.Writer{Next: logFile}}, nil
	case "json-k8s":
		return log.K8sJSONEmitter{&log.Writer{Next: logFile}}, nil
	}
	return nil, fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", format)
}
