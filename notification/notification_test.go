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

package notification_test

import (
	"testing"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
	"github.com/ncollectd/ncollectd-core/strbuf"
	"gotest.tools/v3/assert"
)

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "FAILURE", notification.Failure.String())
	assert.Equal(t, "WARNING", notification.Warning.String())
	assert.Equal(t, "OKAY", notification.Okay.String())
	assert.Equal(t, "UNKNOW", notification.Severity(99).String())
}

func TestInitMetricAndClone(t *testing.T) {
	m := metric.Metric{Labels: metric.NewLabelSet(metric.Label{Name: "host", Value: "h1"})}
	e := notification.InitMetric(notification.Failure, "up", m)
	assert.Equal(t, "up", e.Name)

	clone := e.Clone()
	clone.LabelSet().Add(true, "extra", "1")
	_, ok := e.Labels.Get("extra")
	assert.Assert(t, !ok, "clone must be independent")
}

func TestMarshal(t *testing.T) {
	e := notification.Event{
		Severity: notification.Failure,
		Time:     cdtime.FromUnixSeconds(1700000000),
		Name:     "disk_full",
		Labels:   metric.NewLabelSet(metric.Label{Name: "path", Value: "/var"}),
	}
	var buf strbuf.Buffer
	assert.NilError(t, notification.Marshal(&buf, e))
	assert.Equal(t, `disk_full{path="/var"}{} FAILURE 2023-11-14T22:13:20Z`, buf.String())
}
