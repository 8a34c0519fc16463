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
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ncollectd/ncollectd-core/format/openmetrics"
	"github.com/ncollectd/ncollectd-core/metric"
	"gotest.tools/v3/assert"
)

func TestCacheServeHTTP(t *testing.T) {
	c := openmetrics.NewCache()
	f := metric.NewFamily("up", metric.TypeGauge)
	assert.NilError(t, f.Append(metric.Gauge(1), metric.LabelSet{}))
	assert.NilError(t, c.Write(context.Background(), f, nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Assert(t, strings.Contains(rec.Body.String(), "up"))
}

func TestCacheSnapshotSortedByName(t *testing.T) {
	c := openmetrics.NewCache()
	fz := metric.NewFamily("zzz", metric.TypeGauge)
	fa := metric.NewFamily("aaa", metric.TypeGauge)
	assert.NilError(t, c.Write(context.Background(), fz, nil))
	assert.NilError(t, c.Write(context.Background(), fa, nil))

	snap := c.Snapshot()
	assert.Equal(t, 2, len(snap))
	assert.Equal(t, "aaa", snap[0].Name)
	assert.Equal(t, "zzz", snap[1].Name)
}
