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

package filter_test

import (
	"testing"

	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/plugin/filter"
	"gotest.tools/v3/assert"
)

func buildFamily(t *testing.T) *metric.Family {
	t.Helper()
	f := metric.NewFamily("http_total", metric.TypeCounter)
	assert.NilError(t, f.Append(metric.Counter(1), metric.NewLabelSet(metric.Label{Name: "method", Value: "GET"})))
	assert.NilError(t, f.Append(metric.Counter(1), metric.NewLabelSet(metric.Label{Name: "method", Value: "DELETE"})))
	return f
}

func TestDropByLabel(t *testing.T) {
	f := buildFamily(t)
	chain := filter.NewBuilder().
		Rule(filter.MatchLabel("method", "DELETE"), filter.Drop).
		Rule(filter.MatchAll, filter.Keep).
		Build()
	chain.Apply(f)
	assert.Equal(t, 1, len(f.Metrics))
	v, _ := f.Metrics[0].Labels.Get("method")
	assert.Equal(t, "GET", v)
}

func TestRelabelAndRename(t *testing.T) {
	f := buildFamily(t)
	chain := filter.NewBuilder().
		Rule(filter.MatchAll, filter.Relabel("env", "prod")).
		Rule(filter.MatchFamilyName("http_total"), filter.RewriteName("http_requests_total")).
		Build()
	chain.Apply(f)
	assert.Equal(t, "http_requests_total", f.Name)
	for _, m := range f.Metrics {
		v, ok := m.Labels.Get("env")
		assert.Assert(t, ok)
		assert.Equal(t, "prod", v)
	}
}

func TestNilChainIsNoOp(t *testing.T) {
	f := buildFamily(t)
	var chain *filter.Chain
	chain.Apply(f)
	assert.Equal(t, 2, len(f.Metrics))
}
