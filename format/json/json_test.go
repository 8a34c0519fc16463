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

package json_test

import (
	"encoding/json"
	"testing"

	fmtjson "github.com/ncollectd/ncollectd-core/format/json"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
	"gotest.tools/v3/assert"
)

func TestEncodeFieldShape(t *testing.T) {
	e := notification.Event{
		Severity: notification.Warning,
		Name:     "http_total",
		Labels:   metric.NewLabelSet(metric.Label{Name: "method", Value: "GET"}),
	}
	b, err := fmtjson.Encode(e)
	assert.NilError(t, err)

	var got map[string]any
	assert.NilError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "WARNING", got["severity"])
	assert.Equal(t, "http_total", got["name"])
	labels := got["labels"].(map[string]any)
	assert.Equal(t, "GET", labels["method"])
	_, hasAnnotations := got["annotations"]
	assert.Assert(t, hasAnnotations)
}
