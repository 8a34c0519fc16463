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

package openmetrics_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ncollectd/ncollectd-core/format/openmetrics"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/metric/histogram"
	"gotest.tools/v3/assert"
)

func TestWriteGaugeFamily(t *testing.T) {
	f := metric.NewFamily("cpu_temperature_celsius", metric.TypeGauge)
	assert.NilError(t, f.Append(metric.Gauge(42.5), metric.NewLabelSet(metric.Label{Name: "core", Value: "0"})))

	var buf bytes.Buffer
	assert.NilError(t, openmetrics.Write(&buf, []*metric.Family{f}))
	assert.Assert(t, strings.Contains(buf.String(), "cpu_temperature_celsius"))
	assert.Assert(t, strings.Contains(buf.String(), "42.5"))
}

func TestWriteHistogramFamily(t *testing.T) {
	h := histogram.NewLinear(0, 10, 3)
	h.Update(5)
	h.Update(15)

	f := metric.NewFamily("request_latency", metric.TypeHistogram)
	assert.NilError(t, f.Append(metric.Histogram{Histogram: h}, metric.LabelSet{}))

	var buf bytes.Buffer
	assert.NilError(t, openmetrics.Write(&buf, []*metric.Family{f}))
	assert.Assert(t, strings.Contains(buf.String(), "request_latency"))
}

func TestConvertRejectsUnsupportedValue(t *testing.T) {
	f := &metric.Family{Name: "broken", Type: metric.TypeUnknown}
	f.Metrics = append(f.Metrics, metric.Metric{Value: nil})
	_, err := openmetrics.Convert(f)
	assert.ErrorContains(t, err, "unsupported value type")
}
