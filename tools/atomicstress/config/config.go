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

// Package config holds the configuration of the atomicstress tool.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"gvisor.dev/atomics/pkg/log"
	"gvisor.dev/atomics/pkg/sync"
)

// Spin mirrors sync.SpinConfig in the configuration file.
type Spin struct {
	// PauseSpins is the number of backoff steps that only pause.
	PauseSpins int32 `toml:"pause_spins"`

	// PauseCycles is the number of pause instructions per pausing step.
	PauseCycles int32 `toml:"pause_cycles"`

	// WarnYields is the number of yields after which a spinning goroutine
	// is reported. Zero disables reports.
	WarnYields int32 `toml:"warn_yields"`
}

// Config is the configuration shared by all workloads.
type Config struct {
	// Goroutines is the number of concurrent workers.
	Goroutines int `toml:"goroutines"`

	// Iterations is the number of operations per worker per round.
	Iterations int `toml:"iterations"`

	// Rounds is the number of times each workload is repeated on fresh
	// cells.
	Rounds int `toml:"rounds"`

	// Timeout bounds a whole workload. Zero means no limit.
	Timeout time.Duration `toml:"timeout"`

	// Debug enables debug logging.
	Debug bool `toml:"debug"`

	// LogFormat is one of "text", "json" or "json-k8s".
	LogFormat string `toml:"log_format"`

	// Spin tunes the spin-wait of contended slots.
	Spin Spin `toml:"spin"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	d := sync.DefaultSpinConfig
	return &Config{
		Goroutines: 64,
		Iterations: 10000,
		Rounds:     10,
		Timeout:    5 * time.Minute,
		LogFormat:  "text",
		Spin: Spin{
			PauseSpins:  d.PauseSpins,
			PauseCycles: d.PauseCycles,
			WarnYields:  d.WarnYields,
		},
	}
}

// Load reads the configuration file at path on top of the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("unknown keys in %q: %v", path, undec)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %q: %w", path, err)
	}
	return c, nil
}

// Validate checks that the configuration can run.
func (c *Config) Validate() error {
	if c.Goroutines < 1 {
		return fmt.Errorf("goroutines must be positive, got %d", c.Goroutines)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	switch c.LogFormat {
	case "text", "json", "json-k8s":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", c.LogFormat)
	}
	if c.Spin.PauseSpins < 0 || c.Spin.PauseCycles < 1 || c.Spin.WarnYields < 0 {
		return fmt.Errorf("invalid spin configuration %+v", c.Spin)
	}
	return nil
}

// SpinConfig returns the spin configuration for sync.SetSpinConfig.
func (c *Config) SpinConfig() sync.SpinConfig {
	return sync.SpinConfig{
		PauseSpins:  c.Spin.PauseSpins,
		PauseCycles: c.Spin.PauseCycles,
		WarnYields:  c.Spin.WarnYields,
	}
}

// Write encodes the configuration as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Log logs the configuration.
func (c *Config) Log() {
	log.Infof("Config: goroutines=%d iterations=%d rounds=%d timeout=%v", c.Goroutines, c.Iterations, c.Rounds, c.Timeout)
	log.Infof("Spin: pause_spins=%d pause_cycles=%d warn_yields=%d", c.Spin.PauseSpins, c.Spin.PauseCycles, c.Spin.WarnYields)
	log.Debugf("Log: format=%s debug=%t", c.LogFormat, c.Debug)
}
