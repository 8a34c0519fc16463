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

package metric_test

import (
	"errors"
	"testing"

	"github.com/ncollectd/ncollectd-core/metric"
	"gotest.tools/v3/assert"
)

func TestLabelIdempotence(t *testing.T) {
	var ls metric.LabelSet
	ls.Add(true, "k", "v")
	ls.Add(true, "k", "v")
	var once metric.LabelSet
	once.Add(true, "k", "v")
	assert.Assert(t, ls.Equal(once))
}

func TestLabelRemoveOnEmpty(t *testing.T) {
	var ls metric.LabelSet
	ls.Add(true, "k", "v")
	ls.Add(true, "k", "")
	_, ok := ls.Get("k")
	assert.Assert(t, !ok)
}

func TestLabelOrderDeterministic(t *testing.T) {
	ls := metric.NewLabelSet(
		metric.Label{Name: "z", Value: "1"},
		metric.Label{Name: "a", Value: "2"},
		metric.Label{Name: "m", Value: "3"},
	)
	var got []string
	ls.Range(func(l metric.Label) { got = append(got, l.Name) })
	assert.DeepEqual(t, []string{"a", "m", "z"}, got)
}

func TestLabelClone(t *testing.T) {
	ls := metric.NewLabelSet(metric.Label{Name: "a", Value: "1"})
	clone := ls.Clone()
	clone.Add(true, "b", "2")
	assert.Equal(t, 1, ls.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestFamilyAppendTypeSafety(t *testing.T) {
	f := metric.NewFamily("test", metric.TypeGauge)
	err := f.Append(metric.Counter(1), metric.LabelSet{})
	assert.Assert(t, errors.Is(err, metric.ErrTypeMismatch))
	assert.Equal(t, 0, len(f.Metrics))
}

func TestFamilyAppendOK(t *testing.T) {
	f := metric.NewFamily("test", metric.TypeGauge)
	err := f.Append(metric.Gauge(1.5), metric.NewLabelSet(metric.Label{Name: "host", Value: "h1"}))
	assert.NilError(t, err)
	assert.Equal(t, 1, len(f.Metrics))
	v, ok := f.Metrics[0].Labels.Get("host")
	assert.Assert(t, ok)
	assert.Equal(t, "h1", v)
}

func TestFamilyAppendDuplicateNameTakesLast(t *testing.T) {
	f := metric.NewFamily("test", metric.TypeGauge)
	base := metric.NewLabelSet(metric.Label{Name: "method", Value: "GET"})
	err := f.Append(metric.Gauge(1), base, metric.Label{Name: "method", Value: "POST"})
	assert.NilError(t, err)
	v, _ := f.Metrics[0].Labels.Get("method")
	assert.Equal(t, "POST", v)
}

type fakeDispatcher struct {
	got *metric.Family
}

func (d *fakeDispatcher) Dispatch(f *metric.Family) error {
	d.got = f
	return nil
}

func TestDispatchEmptyFamilyIsNoOp(t *testing.T) {
	f := metric.NewFamily("empty", metric.TypeGauge)
	d := &fakeDispatcher{}
	assert.NilError(t, f.Dispatch(d, nil, 0, 0))
	assert.Assert(t, d.got == nil)
}

func TestDispatchFillsDefaults(t *testing.T) {
	f := metric.NewFamily("test", metric.TypeGauge)
	assert.NilError(t, f.Append(metric.Gauge(1), metric.LabelSet{}))
	d := &fakeDispatcher{}
	assert.NilError(t, f.Dispatch(d, nil, 0, 0))
	assert.Assert(t, d.got != nil)
	assert.Assert(t, d.got.Metrics[0].Time != 0)
}
