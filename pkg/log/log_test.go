// Copyright 2018 The gVisor Authors.
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

package log

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(expected, tw.lines); diff != "" {
		t.Errorf("Writer lines mismatch (-want +got):\n%s", diff)
	}
}

func TestWriterAppendsNewline(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("no newline")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}
	if diff := cmp.Diff([]string{"no newline", "\n"}, tw.lines); diff != "" {
		t.Errorf("Writer lines mismatch (-want +got):\n%s", diff)
	}
}

type recordingEmitter struct {
	levels []Level
	msgs   []string
}

func (r *recordingEmitter) Emit(_ int, level Level, _ time.Time, format string, v ...any) {
	r.levels = append(r.levels, level)
	r.msgs = append(r.msgs, fmt.Sprintf(format, v...))
}

func TestBasicLoggerLevels(t *testing.T) {
	for _, tc := range []struct {
		level Level
		want  []string
	}{
		{Warning, []string{"w"}},
		{Info, []string{"i", "w"}},
		{Debug, []string{"d", "i", "w"}},
	} {
		t.Run(tc.level.String(), func(t *testing.T) {
			r := &recordingEmitter{}
			l := &BasicLogger{Level: tc.level, Emitter: r}
			l.Debugf("d")
			l.Infof("i")
			l.Warningf("w")
			if diff := cmp.Diff(tc.want, r.msgs); diff != "" {
				t.Errorf("emitted messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	l := &BasicLogger{Level: Warning, Emitter: &recordingEmitter{}}
	if l.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) at Warning: got true, wanted false")
	}
	l.SetLevel(Debug)
	if !l.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) after SetLevel(Debug): got false, wanted true")
	}
}

func TestGoogleEmitterFormat(t *testing.T) {
	tw := &testWriter{}
	e := GoogleEmitter{&Writer{Next: tw}}
	ts := time.Date(2026, time.May, 7, 13, 4, 5, 6000, time.UTC)
	e.Emit(0, Warning, ts, "spun %d times", 3)

	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, wanted 1: %q", len(tw.lines), tw.lines)
	}
	re := regexp.MustCompile(`^W0507 13:04:05\.000006 +\d+ log_test\.go:\d+\] spun 3 times\n$`)
	if !re.MatchString(tw.lines[0]) {
		t.Errorf("line %q does not match %v", tw.lines[0], re)
	}
}

func TestMultiEmitter(t *testing.T) {
	a, b := &recordingEmitter{}, &recordingEmitter{}
	m := MultiEmitter{a, b}
	m.Emit(0, Info, time.Now(), "hello %s", "world")
	for _, r := range []*recordingEmitter{a, b} {
		if diff := cmp.Diff([]string{"hello world"}, r.msgs); diff != "" {
			t.Errorf("emitted messages mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRateLimitedLogger(t *testing.T) {
	r := &recordingEmitter{}
	l := RateLimitedLogger(&BasicLogger{Level: Debug, Emitter: r}, time.Hour)
	for i := 0; i < 10; i++ {
		l.Warningf("stuck %d", i)
	}
	// The limiter has a burst of one and refills once per hour.
	if diff := cmp.Diff([]string{"stuck 0"}, r.msgs); diff != "" {
		t.Errorf("emitted messages mismatch (-want +got):\n%s", diff)
	}
	if !l.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug): got false, wanted true")
	}
}

func TestPatternOpts(t *testing.T) {
	o := PatternOpts{Command: "slot", Start: time.Unix(0, 42)}
	got := o.Build("/tmp/atomics/%COMMAND%-%TIMESTAMP%.log")
	if want := "/tmp/atomics/slot-42.log"; got != want {
		t.Errorf("Build: got %q, wanted %q", got, want)
	}
	if got := o.Build("%PID%"); got != strconv.Itoa(os.Getpid()) {
		t.Errorf("Build(%%PID%%): got %q, wanted %d", got, os.Getpid())
	}
}

func TestBasicRateLimitedLoggerFollowsTarget(t *testing.T) {
	l := BasicRateLimitedLogger(time.Hour)

	old := Log()
	defer log.Store(old)
	r := &recordingEmitter{}
	SetTarget(r)

	l.Warningf("after %s", "SetTarget")
	if diff := cmp.Diff([]string{"after SetTarget"}, r.msgs); diff != "" {
		t.Errorf("emitted messages mismatch (-want +got):\n%s", diff)
	}
}
