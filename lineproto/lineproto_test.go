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

package lineproto_test

import (
	"testing"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/lineproto"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
	"gotest.tools/v3/assert"
)

type fakeDispatcher struct {
	families []*metric.Family
}

func (d *fakeDispatcher) Dispatch(f *metric.Family) error {
	d.families = append(d.families, f.Clone())
	return nil
}

type fakeNotifier struct {
	events []notification.Event
}

func (n *fakeNotifier) DispatchNotification(e notification.Event) error {
	n.events = append(n.events, e)
	return nil
}

func TestTextParseHappyPath(t *testing.T) {
	disp := &fakeDispatcher{}
	var warned []string
	acc := lineproto.NewAccumulator(nil, func(line string, err error) { warned = append(warned, line) })

	baseLabels := metric.NewLabelSet(metric.Label{Name: "host", Value: "h1"})
	now := cdtime.FromUnixSeconds(1700000000)
	err := lineproto.ParseLine(acc, disp, nil, "", baseLabels, now, cdtime.FromFloat64(10),
		`http_total{method="GET"} 42 1700000000.5`)
	assert.NilError(t, err)
	assert.Equal(t, 0, len(warned))

	assert.NilError(t, acc.Flush(disp, nil, now, cdtime.FromFloat64(10)))
	assert.Equal(t, 1, len(disp.families))
	fam := disp.families[0]
	assert.Equal(t, "http_total", fam.Name)
	assert.Equal(t, metric.TypeUnknown, fam.Type)
	assert.Equal(t, 1, len(fam.Metrics))
	m := fam.Metrics[0]
	assert.Equal(t, metric.Unknown(42), m.Value)
	v, ok := m.Labels.Get("host")
	assert.Assert(t, ok)
	assert.Equal(t, "h1", v)
	v, ok = m.Labels.Get("method")
	assert.Assert(t, ok)
	assert.Equal(t, "GET", v)
	assert.Equal(t, cdtime.FromFloat64(1700000000.5), m.Time)
}

func TestHeaderChangeFlushes(t *testing.T) {
	disp := &fakeDispatcher{}
	acc := lineproto.NewAccumulator(nil, nil)
	now := cdtime.Now()

	assert.NilError(t, lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now, `a_total 1`))
	assert.NilError(t, lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now, `a_total 2`))
	assert.Equal(t, 0, len(disp.families), "same-header lines must not flush early")

	assert.NilError(t, lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now, `b_total 3`))
	assert.Equal(t, 1, len(disp.families))
	assert.Equal(t, "a_total", disp.families[0].Name)
	assert.Equal(t, 2, len(disp.families[0].Metrics))

	assert.NilError(t, acc.Flush(disp, nil, now, now))
	assert.Equal(t, 2, len(disp.families))
	assert.Equal(t, "b_total", disp.families[1].Name)
}

func TestMalformedLineWarnsAndContinues(t *testing.T) {
	disp := &fakeDispatcher{}
	var warned int
	acc := lineproto.NewAccumulator(nil, func(line string, err error) { warned++ })
	now := cdtime.Now()

	assert.NilError(t, lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now, `not a valid line {{{`))
	assert.Equal(t, 1, warned)
	assert.NilError(t, lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now, `good_metric 7`))
	assert.NilError(t, acc.Flush(disp, nil, now, now))
	assert.Equal(t, 1, len(disp.families))
	assert.Equal(t, "good_metric", disp.families[0].Name)
}

func TestBlankAndCommentLinesIgnored(t *testing.T) {
	disp := &fakeDispatcher{}
	acc := lineproto.NewAccumulator(nil, func(string, error) { t.Fatal("must not warn on blank/comment lines") })
	now := cdtime.Now()
	assert.NilError(t, lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now, ""))
	assert.NilError(t, lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now, "   "))
	assert.NilError(t, lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now, "# a comment"))
}

func TestPutvalDirective(t *testing.T) {
	disp := &fakeDispatcher{}
	acc := lineproto.NewAccumulator(nil, nil)
	now := cdtime.Now()
	err := lineproto.ParseLine(acc, disp, nil, "", metric.LabelSet{}, now, now,
		`PUTVAL name=disk_used value=123 unit=bytes`)
	assert.NilError(t, err)
	assert.NilError(t, acc.Flush(disp, nil, now, now))
	assert.Equal(t, 1, len(disp.families))
	fam := disp.families[0]
	assert.Equal(t, "disk_used", fam.Name)
	v, ok := fam.Metrics[0].Labels.Get("unit")
	assert.Assert(t, ok)
	assert.Equal(t, "bytes", v)
}

func TestPutnotifDirective(t *testing.T) {
	notifier := &fakeNotifier{}
	acc := lineproto.NewAccumulator(notifier, nil)
	now := cdtime.Now()
	err := lineproto.ParseLine(acc, nil, nil, "", metric.LabelSet{}, now, now,
		`PUTNOTIF name=disk_full severity=FAILURE label_path=/var summary="disk is full"`)
	assert.NilError(t, err)
	assert.Equal(t, 1, len(notifier.events))
	e := notifier.events[0]
	assert.Equal(t, "disk_full", e.Name)
	assert.Equal(t, notification.Failure, e.Severity)
	v, ok := e.Labels.Get("path")
	assert.Assert(t, ok)
	assert.Equal(t, "/var", v)
	v, ok = e.Annotations.Get("summary")
	assert.Assert(t, ok)
	assert.Equal(t, "disk is full", v)
}

func TestPutnotifWithoutDispatcherWarns(t *testing.T) {
	var warned int
	acc := lineproto.NewAccumulator(nil, func(string, error) { warned++ })
	now := cdtime.Now()
	err := lineproto.ParseLine(acc, nil, nil, "", metric.LabelSet{}, now, now, `PUTNOTIF name=x`)
	assert.NilError(t, err)
	assert.Equal(t, 1, warned)
}
