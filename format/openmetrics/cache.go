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

package openmetrics

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/plugin"
)

// Cache is a write destination that keeps the most recently dispatched
// family for each name, for serving over HTTP. It is registered with
// plugin.Registry.RegisterWrite the same way any other write plugin is, so
// the debug exporter is an ordinary write destination rather than a
// special case wired into the registry itself.
type Cache struct {
	mu       sync.Mutex
	families map[string]*metric.Family
}

// NewCache builds an empty Cache.
func NewCache() *Cache {
	return &Cache{families: make(map[string]*metric.Family)}
}

// Write implements plugin.WriteFunc.
func (c *Cache) Write(_ context.Context, f *metric.Family, _ *plugin.UserData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.families[f.Name] = f.Clone()
	return nil
}

// Snapshot returns every cached family, sorted by name for deterministic
// output.
func (c *Cache) Snapshot() []*metric.Family {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*metric.Family, 0, len(c.families))
	for _, f := range c.families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ServeHTTP renders the cache's current contents as Prometheus text,
// matching client_golang's promhttp.Handler contract closely enough that
// this can sit behind the same reverse proxies/scrape configs.
func (c *Cache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := Write(w, c.Snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
