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

// Package openmetrics renders metric.Family values in the Prometheus text
// exposition format (version 0.0.4), for local debugging over HTTP (cmd/ncollectd-debug-
// exporter). The histogram Value already follows the quantile/sum/count
// model of OpenMetrics histograms, so this package converts directly to
// github.com/prometheus/client_model's wire shape and reuses
// github.com/prometheus/common/expfmt's encoder rather than hand-rolling
// the text grammar a second time (package format/text owns the unrelated
// *notification* text grammar).
package openmetrics

import (
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/metric/histogram"
)

func strp(s string) *string { return &s }
func f64p(f float64) *float64 { return &f }
func u64p(u uint64) *uint64 { return &u }

func labelPairs(labels metric.LabelSet) []*dto.LabelPair {
	out := make([]*dto.LabelPair, 0, labels.Len())
	labels.Range(func(l metric.Label) {
		out = append(out, &dto.LabelPair{Name: strp(l.Name), Value: strp(l.Value)})
	})
	return out
}

func dtoType(t metric.Type) dto.MetricType {
	switch t {
	case metric.TypeCounter:
		return dto.MetricType_COUNTER
	case metric.TypeGauge, metric.TypeInfo, metric.TypeStateSet:
		return dto.MetricType_GAUGE
	case metric.TypeHistogram, metric.TypeGaugeHistogram:
		return dto.MetricType_HISTOGRAM
	default:
		return dto.MetricType_UNTYPED
	}
}

// Convert builds a *dto.MetricFamily from f, one dto.Metric per labelled
// sample. A StateSet value flattens to one 0/1 gauge per state, the state
// name carried in a label named after the family; an Info value becomes a
// single gauge of 1 with the metric's own labels.
func Convert(f *metric.Family) (*dto.MetricFamily, error) {
	mf := &dto.MetricFamily{
		Name: strp(f.Name),
		Help: strp(f.Help),
		Type: dtoType(f.Type).Enum(),
	}
	for _, m := range f.Metrics {
		ts := m.Time.ToUnixMilli()
		switch v := m.Value.(type) {
		case metric.Gauge:
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: labelPairs(m.Labels), Gauge: &dto.Gauge{Value: f64p(float64(v))}, TimestampMs: &ts,
			})
		case metric.Counter:
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: labelPairs(m.Labels), Counter: &dto.Counter{Value: f64p(float64(v))}, TimestampMs: &ts,
			})
		case metric.Unknown:
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: labelPairs(m.Labels), Untyped: &dto.Untyped{Value: f64p(float64(v))}, TimestampMs: &ts,
			})
		case metric.Info:
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: labelPairs(m.Labels), Gauge: &dto.Gauge{Value: f64p(1)}, TimestampMs: &ts,
			})
		case metric.StateSet:
			for name, on := range v {
				val := 0.0
				if on {
					val = 1
				}
				labels := append(labelPairs(m.Labels), &dto.LabelPair{Name: strp(f.Name), Value: strp(name)})
				mf.Metric = append(mf.Metric, &dto.Metric{Label: labels, Gauge: &dto.Gauge{Value: f64p(val)}, TimestampMs: &ts})
			}
		case metric.Histogram:
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: labelPairs(m.Labels), Histogram: histogramProto(v.Histogram), TimestampMs: &ts,
			})
		case metric.GaugeHistogram:
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: labelPairs(m.Labels), Histogram: histogramProto(v.Histogram), TimestampMs: &ts,
			})
		default:
			return nil, fmt.Errorf("openmetrics: unsupported value type %T", v)
		}
	}
	return mf, nil
}

func histogramProto(h *histogram.Histogram) *dto.Histogram {
	buckets := make([]*dto.Bucket, len(h.Bounds))
	for i, bound := range h.Bounds {
		buckets[i] = &dto.Bucket{CumulativeCount: u64p(h.Buckets[i]), UpperBound: f64p(bound)}
	}
	return &dto.Histogram{
		SampleCount: u64p(h.Count),
		SampleSum:   f64p(h.Sum),
		Bucket:      buckets,
	}
}

// Write encodes families in the Prometheus text exposition format to w.
func Write(w io.Writer, families []*metric.Family) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, f := range families {
		mf, err := Convert(f)
		if err != nil {
			return err
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("openmetrics: encode %s: %w", f.Name, err)
		}
	}
	return nil
}
