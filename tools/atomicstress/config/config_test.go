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

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atomicstress.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
goroutines = 8
iterations = 100
timeout = "30s"
log_format = "json"

[spin]
pause_spins = 4
warn_yields = 0
`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Goroutines = 8
	want.Iterations = 100
	want.Timeout = 30 * time.Second
	want.LogFormat = "json"
	want.Spin.PauseSpins = 4
	want.Spin.WarnYields = 0
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
		wantErr  string
	}{
		{"unknown key", "goroutine = 3\n", "unknown keys"},
		{"bad syntax", "goroutines = \n", "decoding"},
		{"zero goroutines", "goroutines = 0\n", "goroutines must be positive"},
		{"bad log format", "log_format = \"xml\"\n", "invalid log format"},
		{"bad spin", "[spin]\npause_cycles = 0\n", "invalid spin configuration"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.contents))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Load error = %v, want one containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("Load of a missing file succeeded")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	c := Default()
	c.Rounds = 3
	c.Spin.PauseCycles = 7
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := &Config{}
	if _, err := toml.Decode(buf.String(), got); err != nil {
		t.Fatalf("decoding %q: %v", buf.String(), err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSpinConfig(t *testing.T) {
	c := Default()
	c.Spin = Spin{PauseSpins: 1, PauseCycles: 2, WarnYields: 3}
	s := c.SpinConfig()
	if s.PauseSpins != 1 || s.PauseCycles != 2 || s.WarnYields != 3 {
		t.Errorf("SpinConfig = %+v, want {1 2 3}", s)
	}
}
