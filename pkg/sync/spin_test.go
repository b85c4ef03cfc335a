// Copyright 2020 The gVisor Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sync

import (
	"testing"
)

func withSpinConfig(t *testing.T, c SpinConfig) {
	t.Helper()
	old := CurrentSpinConfig()
	SetSpinConfig(c)
	t.Cleanup(func() { SetSpinConfig(old) })
}

func TestSpinWaitPausesThenYields(t *testing.T) {
	withSpinConfig(t, SpinConfig{PauseSpins: 3, PauseCycles: 2, WarnYields: 0})

	var sw SpinWait
	for i := 0; i < 3; i++ {
		sw.Spin()
	}
	if got := sw.Spins(); got != 3 {
		t.Errorf("Spins: got %d, wanted 3", got)
	}
	if got := sw.Yields(); got != 0 {
		t.Errorf("Yields before pause budget is spent: got %d, wanted 0", got)
	}
	sw.Spin()
	sw.Spin()
	if got := sw.Yields(); got != 2 {
		t.Errorf("Yields: got %d, wanted 2", got)
	}
	sw.Reset()
	if sw.Spins() != 0 || sw.Yields() != 0 {
		t.Errorf("Reset: got %+v, wanted zero value", sw)
	}
}

func TestSpinWaitStuck(t *testing.T) {
	withSpinConfig(t, SpinConfig{PauseSpins: 0, PauseCycles: 1, WarnYields: 4})

	var sw SpinWait
	var reports int
	for i := 0; i < 12; i++ {
		sw.Spin()
		if sw.Stuck() {
			reports++
		}
	}
	if reports != 3 {
		t.Errorf("Stuck reports: got %d, wanted 3", reports)
	}
}

func TestSetSpinConfigClamps(t *testing.T) {
	withSpinConfig(t, SpinConfig{PauseSpins: -1, PauseCycles: 0, WarnYields: -5})

	want := SpinConfig{PauseSpins: 0, PauseCycles: 1, WarnYields: 0}
	if got := CurrentSpinConfig(); got != want {
		t.Errorf("CurrentSpinConfig: got %+v, wanted %+v", got, want)
	}
}

func TestPause(t *testing.T) {
	// Pause must return; it is a hint, not a wait.
	for i := 0; i < 100; i++ {
		Pause()
	}
}

func BenchmarkSpinWaitPause(b *testing.B) {
	var sw SpinWait
	for i := 0; i < b.N; i++ {
		sw.Spin()
		if sw.Yields() > 0 {
			sw.Reset()
		}
	}
}
