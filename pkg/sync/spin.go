// Copyright 2020 The gVisor Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sync

import (
	"runtime"
	"sync/atomic"
)

// SpinConfig tunes the backoff of SpinWait.
//
// A spin-wait first issues processor pause hints. After PauseSpins
// iterations it yields the processor on every iteration instead.
type SpinConfig struct {
	// PauseSpins is the number of iterations that only pause.
	PauseSpins int32

	// PauseCycles is the number of pause instructions issued per pausing
	// iteration. Values below 1 are treated as 1.
	PauseCycles int32

	// WarnYields is the number of scheduler yields after which a spinning
	// caller is considered stuck and may report it. Zero disables reports.
	WarnYields int32
}

// DefaultSpinConfig is the configuration in effect until SetSpinConfig is
// called. The pause cycle count matches the runtime's active_spin_cnt.
var DefaultSpinConfig = SpinConfig{
	PauseSpins:  16,
	PauseCycles: 30,
	WarnYields:  1 << 20,
}

var (
	pauseSpins  atomic.Int32
	pauseCycles atomic.Int32
	warnYields  atomic.Int32
)

func init() {
	SetSpinConfig(DefaultSpinConfig)
}

// SetSpinConfig replaces the spin configuration. Loops already running may
// observe a mix of old and new values.
func SetSpinConfig(c SpinConfig) {
	if c.PauseSpins < 0 {
		c.PauseSpins = 0
	}
	if c.PauseCycles < 1 {
		c.PauseCycles = 1
	}
	if c.WarnYields < 0 {
		c.WarnYields = 0
	}
	pauseSpins.Store(c.PauseSpins)
	pauseCycles.Store(c.PauseCycles)
	warnYields.Store(c.WarnYields)
}

// CurrentSpinConfig returns the configuration in effect.
func CurrentSpinConfig() SpinConfig {
	return SpinConfig{
		PauseSpins:  pauseSpins.Load(),
		PauseCycles: pauseCycles.Load(),
		WarnYields:  warnYields.Load(),
	}
}

// Pause hints to the processor that the caller is in a spin-wait loop.
//
//go:nosplit
func Pause() {
	procyield(1)
}

// Yield yields the processor to other runnable goroutines.
func Yield() {
	runtime.Gosched()
}

// SpinWait is the backoff state of one spin-wait loop. The zero value is
// ready to use; a SpinWait must not be shared between goroutines.
//
// Example usage:
//
//	var sw sync.SpinWait
//	for !tryAcquire() {
//		sw.Spin()
//	}
type SpinWait struct {
	spins  int32
	yields int32
}

// Spin performs one backoff step.
func (s *SpinWait) Spin() {
	if s.spins < pauseSpins.Load() {
		s.spins++
		procyield(uint32(pauseCycles.Load()))
		return
	}
	if s.yields < 1<<30 {
		s.yields++
	}
	runtime.Gosched()
}

// Spins returns the number of pausing iterations performed so far.
func (s *SpinWait) Spins() int32 {
	return s.spins
}

// Yields returns the number of scheduler yields performed so far.
func (s *SpinWait) Yields() int32 {
	return s.yields
}

// Stuck returns true once every WarnYields yields.
func (s *SpinWait) Stuck() bool {
	w := warnYields.Load()
	return w > 0 && s.yields > 0 && s.yields%w == 0
}

// Reset returns s to its initial state.
func (s *SpinWait) Reset() {
	*s = SpinWait{}
}
