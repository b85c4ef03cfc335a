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

// Package metrics collects the counters of a stress run and writes them in
// the Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"os"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
	"gvisor.dev/atomics/pkg/atomicbitops"
	"gvisor.dev/atomics/pkg/sync"
)

// Prefix is prepended to every metric name.
const Prefix = "atomicstress_"

// Counter is a monotonic counter with an optional workload label.
type Counter struct {
	name     string
	help     string
	workload string
	v        atomicbitops.Uint64
}

// Add increments the counter by n.
func (c *Counter) Add(n uint64) {
	c.v.Add(n, atomicbitops.Relaxed)
}

// Value returns the current count.
func (c *Counter) Value() uint64 {
	return c.v.Load(atomicbitops.LoadRelaxed)
}

// Registry holds the counters of one run.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counter)}
}

// Counter returns the counter name{workload="workload"}, creating it on
// first use. An empty workload omits the label.
func (r *Registry) Counter(name, help, workload string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := name + "\x00" + workload
	if c, ok := r.counters[key]; ok {
		return c
	}
	c := &Counter{name: name, help: help, workload: workload}
	r.counters[key] = c
	return c
}

// families groups the counters into metric families sorted by name.
func (r *Registry) families() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()
	byName := make(map[string]*dto.MetricFamily)
	for _, c := range r.counters {
		mf, ok := byName[c.name]
		if !ok {
			mf = &dto.MetricFamily{
				Name: proto.String(Prefix + c.name),
				Help: proto.String(c.help),
				Type: dto.MetricType_COUNTER.Enum(),
			}
			byName[c.name] = mf
		}
		m := &dto.Metric{
			Counter: &dto.Counter{Value: proto.Float64(float64(c.Value()))},
		}
		if c.workload != "" {
			m.Label = []*dto.LabelPair{{
				Name:  proto.String("workload"),
				Value: proto.String(c.workload),
			}}
		}
		mf.Metric = append(mf.Metric, m)
	}
	families := make([]*dto.MetricFamily, 0, len(byName))
	for _, mf := range byName {
		sort.Slice(mf.Metric, func(i, j int) bool {
			return labelOf(mf.Metric[i]) < labelOf(mf.Metric[j])
		})
		families = append(families, mf)
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	return families
}

func labelOf(m *dto.Metric) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == "workload" {
			return l.GetValue()
		}
	}
	return ""
}

// Write writes every counter to w and returns the number of bytes written.
func (r *Registry) Write(w io.Writer) (int, error) {
	written := 0
	for _, mf := range r.families() {
		n, err := expfmt.MetricFamilyToText(w, mf)
		written += n
		if err != nil {
			return written, fmt.Errorf("writing %s: %w", mf.GetName(), err)
		}
	}
	return written, nil
}

// WriteFile writes every counter to the file at path, replacing it.
func (r *Registry) WriteFile(path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating metrics file: %w", err)
	}
	n, err := r.Write(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing metrics file: %w", cerr)
	}
	return n, err
}
