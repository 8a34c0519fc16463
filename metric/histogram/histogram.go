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

// Package histogram implements the cumulative-bucket histogram carried by
// metric families: the OpenMetrics quantile/sum/count shape, not the
// client_golang in-process histogram. Bucket-boundary generation reuses
// prometheus.LinearBuckets/ExponentialBuckets; the cumulative update loop
// is this package's own.
package histogram

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
)

// Histogram is a fixed-bucket-boundary cumulative histogram.
//
// Invariant: for any sequence of Update calls, Buckets[i] is
// non-decreasing over time and Buckets[i] <= Buckets[i+1] at all times.
type Histogram struct {
	Bounds  []float64 // ascending, exclusive of the final +Inf bucket
	Buckets []uint64  // len(Bounds)+1; Buckets[i] counts observations <= Bounds[i]
	Sum     float64
	Count   uint64
}

// New builds a histogram with explicit, ascending bucket boundaries.
func New(bounds []float64) *Histogram {
	b := make([]float64, len(bounds))
	copy(b, bounds)
	return &Histogram{
		Bounds:  b,
		Buckets: make([]uint64, len(b)+1),
	}
}

// NewLinear builds count equal-width buckets starting at start with the
// given step, matching prometheus.LinearBuckets's boundary generation.
func NewLinear(start, step float64, count int) *Histogram {
	return New(prometheus.LinearBuckets(start, step, count))
}

// NewExponential builds count exponentially-growing buckets starting at
// start and growing by factor each step, matching
// prometheus.ExponentialBuckets's boundary generation.
func NewExponential(start, factor float64, count int) *Histogram {
	return New(prometheus.ExponentialBuckets(start, factor, count))
}

// Update records a single observation. A NaN observation is a no-op.
func (h *Histogram) Update(x float64) {
	if math.IsNaN(x) {
		return
	}
	for i, bound := range h.Bounds {
		if x <= bound {
			h.Buckets[i]++
		}
	}
	// The final, unbounded bucket always counts every observation.
	h.Buckets[len(h.Buckets)-1]++
	h.Sum += x
	h.Count++
}

// Reset zeroes all counts and the sum, keeping the configured boundaries.
func (h *Histogram) Reset() {
	for i := range h.Buckets {
		h.Buckets[i] = 0
	}
	h.Sum = 0
	h.Count = 0
}

// Clone returns an independent copy.
func (h *Histogram) Clone() *Histogram {
	out := &Histogram{
		Bounds:  make([]float64, len(h.Bounds)),
		Buckets: make([]uint64, len(h.Buckets)),
		Sum:     h.Sum,
		Count:   h.Count,
	}
	copy(out.Bounds, h.Bounds)
	copy(out.Buckets, h.Buckets)
	return out
}
