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

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/prometheus/common/expfmt"
	"gvisor.dev/atomics/pkg/log"
	"gvisor.dev/atomics/pkg/sync"
)

func run(t *testing.T, args ...string) (subcommands.ExitStatus, string, string) {
	t.Helper()
	old := log.Log()
	defer func() {
		log.SetTarget(old.Emitter)
		log.SetLevel(old.Level)
		sync.SetSpinConfig(sync.DefaultSpinConfig)
	}()
	var stdout, stderr bytes.Buffer
	status := Run(context.Background(), args, &stdout, &stderr)
	return status, stdout.String(), stderr.String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atomicstress.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const smallConfig = `
goroutines = 4
iterations = 200
rounds = 2

[spin]
pause_spins = 4
pause_cycles = 10
warn_yields = 0
`

func TestRunWritesMetrics(t *testing.T) {
	conf := writeConfig(t, smallConfig)
	out := filepath.Join(t.TempDir(), "metrics.txt")

	status, stdout, _ := run(t, "-config", conf, "-metrics-out", out, "counter")
	if status != subcommands.ExitSuccess {
		t.Fatalf("Run = %v, want %v", status, subcommands.ExitSuccess)
	}
	if !strings.Contains(stdout, "counter: ok, 2 rounds") {
		t.Errorf("stdout %q does not report the run", stdout)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	families, err := (&expfmt.TextParser{}).TextToMetricFamilies(f)
	if err != nil {
		t.Fatalf("TextToMetricFamilies: %v", err)
	}
	mf, ok := families["atomicstress_ops_total"]
	if !ok {
		t.Fatalf("atomicstress_ops_total missing from %v", families)
	}
	if got, want := mf.GetMetric()[0].GetCounter().GetValue(), float64(5*4*200*2); got != want {
		t.Errorf("ops_total = %v, want %v", got, want)
	}
}

func TestRunAppliesSpinConfig(t *testing.T) {
	conf := writeConfig(t, smallConfig)
	old := log.Log()
	defer func() {
		log.SetTarget(old.Emitter)
		log.SetLevel(old.Level)
		sync.SetSpinConfig(sync.DefaultSpinConfig)
	}()
	var stdout, stderr bytes.Buffer
	if status := Run(context.Background(), []string{"-config", conf, "config"}, &stdout, &stderr); status != subcommands.ExitSuccess {
		t.Fatalf("Run = %v, want %v", status, subcommands.ExitSuccess)
	}
	got := sync.CurrentSpinConfig()
	want := sync.SpinConfig{PauseSpins: 4, PauseCycles: 10, WarnYields: 0}
	if got != want {
		t.Errorf("CurrentSpinConfig() = %+v, want %+v", got, want)
	}
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	conf := writeConfig(t, smallConfig)
	status, stdout, stderr := run(t, "-config", conf, "-debug", "-log-format", "json", "config")
	if status != subcommands.ExitSuccess {
		t.Fatalf("Run = %v, want %v", status, subcommands.ExitSuccess)
	}
	for _, want := range []string{"debug = true", `log_format = "json"`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config %q does not contain %q", stdout, want)
		}
	}
	if !strings.Contains(stderr, `"level":"debug"`) {
		t.Errorf("stderr %q has no JSON debug line", stderr)
	}
}

func TestRunLogFile(t *testing.T) {
	dir := t.TempDir()
	status, _, stderr := run(t, "-log", filepath.Join(dir, "%COMMAND%.log"), "config")
	if status != subcommands.ExitSuccess {
		t.Fatalf("Run = %v, want %v", status, subcommands.ExitSuccess)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want logs in the file", stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "Config: goroutines=64") {
		t.Errorf("log %q does not contain the configuration", data)
	}
}

func TestRunErrors(t *testing.T) {
	// A regular file where the log directory should be.
	notDir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notDir, nil, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	for _, tc := range []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"unknown flag", []string{"-nope", "counter"}, subcommands.ExitUsageError},
		{"missing config", []string{"-config", "/nonexistent/atomicstress.toml", "counter"}, subcommands.ExitFailure},
		{"bad log format", []string{"-log-format", "xml", "counter"}, subcommands.ExitFailure},
		{"unknown command", []string{"nope"}, subcommands.ExitUsageError},
		{"bad log file", []string{"-log", filepath.Join(notDir, "%COMMAND%.log"), "config"}, subcommands.ExitFailure},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if status, _, _ := run(t, tc.args...); status != tc.want {
				t.Errorf("Run(%v) = %v, want %v", tc.args, status, tc.want)
			}
		})
	}
}

func TestNewEmitter(t *testing.T) {
	for _, format := range []string{"text", "json", "json-k8s"} {
		if _, err := newEmitter(format, &bytes.Buffer{}); err != nil {
			t.Errorf("newEmitter(%q): %v", format, err)
		}
	}
	if _, err := newEmitter("xml", &bytes.Buffer{}); err == nil {
		t.Errorf("newEmitter(%q) succeeded, want error", "xml")
	}
}
