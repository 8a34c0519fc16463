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

package metric

import "github.com/ncollectd/ncollectd-core/metric/histogram"

// Type enumerates the family-level metric type, which every metric
// appended to a family must match.
type Type int

const (
	TypeUnknown Type = iota
	TypeGauge
	TypeCounter
	TypeInfo
	TypeStateSet
	TypeHistogram
	TypeGaugeHistogram
)

func (t Type) String() string {
	switch t {
	case TypeGauge:
		return "gauge"
	case TypeCounter:
		return "counter"
	case TypeInfo:
		return "info"
	case TypeStateSet:
		return "state_set"
	case TypeHistogram:
		return "histogram"
	case TypeGaugeHistogram:
		return "gauge_histogram"
	default:
		return "unknown"
	}
}

// Value is the tagged variant a metric carries. It is a sealed interface
// (unexported marker method) rather than an `any`, so a mismatched type is
// caught at the Family.Append boundary instead of by runtime type
// assertion scattered through the codebase.
type Value interface {
	Type() Type
	value()
}

// Gauge is a sample of a continuously-varying quantity. NaN is a valid
// "value absent" marker.
type Gauge float64

func (Gauge) Type() Type { return TypeGauge }
func (Gauge) value()     {}

// Counter is monotonically non-decreasing; wraparound is a legitimate
// source event and is not corrected for here. Rate computation belongs
// downstream.
type Counter uint64

func (Counter) Type() Type { return TypeCounter }
func (Counter) value()     {}

// Unknown is a type-unspecified numeric sample.
type Unknown float64

func (Unknown) Type() Type { return TypeUnknown }
func (Unknown) value()     {}

// Info carries no numeric payload; the metric exists to attach labels.
type Info struct{}

func (Info) Type() Type { return TypeInfo }
func (Info) value()     {}

// StateSet is a set of named boolean flags. Exactly-one-true is not
// required.
type StateSet map[string]bool

func (StateSet) Type() Type { return TypeStateSet }
func (StateSet) value()     {}

// Clone returns an independent copy.
func (s StateSet) Clone() StateSet {
	out := make(StateSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Histogram wraps *histogram.Histogram as a metric Value.
type Histogram struct {
	*histogram.Histogram
}

func (Histogram) Type() Type { return TypeHistogram }
func (Histogram) value()     {}

// GaugeHistogram is a histogram whose buckets are themselves gauges
// (instantaneous distributions that can shrink).
type GaugeHistogram struct {
	*histogram.Histogram
}

func (GaugeHistogram) Type() Type { return TypeGaugeHistogram }
func (GaugeHistogram) value()     {}
