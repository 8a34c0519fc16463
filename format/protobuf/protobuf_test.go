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

package protobuf_test

import (
	"testing"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/format/protobuf"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
	"gotest.tools/v3/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := notification.Event{
		Severity: notification.Failure,
		Time:     cdtime.FromUnixSeconds(1700000000),
		Name:     "disk_full",
		Labels:   metric.NewLabelSet(metric.Label{Name: "path", Value: "/var"}),
	}
	e.Annotations.Add(true, "summary", "disk is full")

	wire := protobuf.Encode(e)
	got, err := protobuf.Decode(wire)
	assert.NilError(t, err)

	assert.Equal(t, e.Severity, got.Severity)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.Time.ToUnixNano(), got.Time.ToUnixNano())
	v, ok := got.Labels.Get("path")
	assert.Assert(t, ok)
	assert.Equal(t, "/var", v)
	v, ok = got.Annotations.Get("summary")
	assert.Assert(t, ok)
	assert.Equal(t, "disk is full", v)
}

func TestEncodeDelimitedFraming(t *testing.T) {
	e := notification.Event{Name: "x", Severity: notification.Okay}
	framed := protobuf.EncodeDelimited(e)
	body := protobuf.Encode(e)
	assert.Assert(t, len(framed) > len(body))
}
