// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metric

import (
	"errors"

	"github.com/ncollectd/ncollectd-core/cdtime"
)

// ErrTypeMismatch is returned by Family.Append when value's type does not
// match the family's declared Type. The family is left unmutated.
var ErrTypeMismatch = errors.New("metric: value type does not match family type")

// Metric is a single labelled sample.
type Metric struct {
	Labels   LabelSet
	Value    Value
	Time     cdtime.Time
	Interval cdtime.Time
}

// Family is a named, typed bundle of label-keyed samples, constructed by a
// collector during one read and consumed by the write path.
type Family struct {
	Name    string
	Help    string
	Unit    string
	Type    Type
	Metrics []Metric
}

// NewFamily creates an empty family of the given type.
func NewFamily(name string, t Type) *Family {
	return &Family{Name: name, Type: t}
}

// Append adds one metric to the family. baseLabels and extra are folded
// together (extra wins on conflicting names, matching "duplicate names take
// the last value"); empty-valued pairs are dropped by LabelSet.Add. The
// value's type must match the family's type or ErrTypeMismatch is returned
// and the family is left unchanged.
func (f *Family) Append(v Value, baseLabels LabelSet, extra ...Label) error {
	if v.Type() != f.Type {
		return ErrTypeMismatch
	}
	labels := baseLabels.Clone()
	for _, l := range extra {
		labels.Add(true, l.Name, l.Value)
	}
	f.Metrics = append(f.Metrics, Metric{Labels: labels, Value: v})
	return nil
}

// Dispatcher is implemented by the write path (plugin.Registry in this
// module); Family.Dispatch is a thin convenience wrapper that fills in
// defaults before handing off.
type Dispatcher interface {
	Dispatch(f *Family) error
}

// Filter rewrites or drops metrics from a family before dispatch; see
// package plugin/filter for the concrete implementation.
type Filter interface {
	Apply(f *Family)
}

// Dispatch fills in each metric's Time (defaulting to now) and Interval
// (defaulting to interval) if unset, optionally runs filter, and hands the
// family to disp. A family with zero metrics is a valid no-op.
func (f *Family) Dispatch(disp Dispatcher, filter Filter, now, interval cdtime.Time) error {
	if len(f.Metrics) == 0 {
		return nil
	}
	if now == cdtime.Zero {
		now = cdtime.Now()
	}
	for i := range f.Metrics {
		if f.Metrics[i].Time == cdtime.Zero {
			f.Metrics[i].Time = now
		}
		if f.Metrics[i].Interval == cdtime.Zero {
			f.Metrics[i].Interval = interval
		}
	}
	if filter != nil {
		filter.Apply(f)
	}
	if len(f.Metrics) == 0 {
		return nil
	}
	return disp.Dispatch(f)
}

// Clone returns a deep, independent copy of the family.
func (f *Family) Clone() *Family {
	out := &Family{Name: f.Name, Help: f.Help, Unit: f.Unit, Type: f.Type}
	out.Metrics = make([]Metric, len(f.Metrics))
	for i, m := range f.Metrics {
		out.Metrics[i] = Metric{Labels: m.Labels.Clone(), Value: m.Value, Time: m.Time, Interval: m.Interval}
	}
	return out
}

// UpFamily builds the "up=0/1" style convention collectors use to report
// the reachability of their external resource.
func UpFamily(name string, ok bool) *Family {
	f := NewFamily(name, TypeGauge)
	v := Gauge(0)
	if ok {
		v = Gauge(1)
	}
	_ = f.Append(v, LabelSet{})
	return f
}
