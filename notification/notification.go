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

// Package notification implements the severity-graded event model that
// runs alongside the metric model: emitter -> dispatcher -> sink.
package notification

import (
	"fmt"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/strbuf"
)

// Severity is the three-level event grading.
type Severity int

const (
	Okay Severity = iota
	Warning
	Failure
)

// String renders the severity the way the text formatter and env encoding
// both expect: upper case, with the historical UNKNOW (not UNKNOWN)
// spelling for any unset/invalid value. Consumers parse that exact string,
// so it stays.
func (s Severity) String() string {
	switch s {
	case Okay:
		return "OKAY"
	case Warning:
		return "WARNING"
	case Failure:
		return "FAILURE"
	default:
		return "UNKNOW"
	}
}

// Event is a severity-tagged, labelled notification, distinct from a
// metric. Annotations carry free-form human text (summary, long_output,
// perfdata).
type Event struct {
	Severity    Severity
	Time        cdtime.Time
	Name        string
	Labels      metric.LabelSet
	Annotations metric.LabelSet
}

// InitMetric seeds a notification from a metric's (family, labels) and the
// current time.
func InitMetric(severity Severity, familyName string, m metric.Metric) Event {
	return Event{
		Severity: severity,
		Time:     cdtime.Now(),
		Name:     familyName,
		Labels:   m.Labels.Clone(),
	}
}

// Clone deep-copies an event; the dispatcher owns a cloned copy per sink.
func (e Event) Clone() Event {
	return Event{
		Severity:    e.Severity,
		Time:        e.Time,
		Name:        e.Name,
		Labels:      e.Labels.Clone(),
		Annotations: e.Annotations.Clone(),
	}
}

// LabelSet returns e.Labels, for callers that mutate the set in place.
func (e *Event) LabelSet() *metric.LabelSet { return &e.Labels }

// AnnotationSet returns e.Annotations.
func (e *Event) AnnotationSet() *metric.LabelSet { return &e.Annotations }

// Marshal emits the canonical text form: name{labels}{annotations} severity
// timestamp.
func Marshal(buf *strbuf.Buffer, e Event) error {
	if err := buf.PutString(e.Name); err != nil {
		return err
	}
	if err := marshalSet(buf, e.Labels); err != nil {
		return err
	}
	if err := marshalSet(buf, e.Annotations); err != nil {
		return err
	}
	return buf.Printf(" %s %s", e.Severity, e.Time.RFC3339(cdtime.UTC, cdtime.Second))
}

func marshalSet(buf *strbuf.Buffer, ls metric.LabelSet) error {
	if err := buf.PutByte('{'); err != nil {
		return err
	}
	first := true
	var rangeErr error
	ls.Range(func(l metric.Label) {
		if rangeErr != nil {
			return
		}
		if !first {
			rangeErr = buf.PutByte(',')
			if rangeErr != nil {
				return
			}
		}
		first = false
		rangeErr = buf.Printf(`%s="`, l.Name)
		if rangeErr != nil {
			return
		}
		rangeErr = buf.PutEscaped(l.Value, `"\`, '\\')
		if rangeErr != nil {
			return
		}
		rangeErr = buf.PutByte('"')
	})
	if rangeErr != nil {
		return rangeErr
	}
	return buf.PutByte('}')
}

// String returns the canonical text form, for debugging/logging.
func (e Event) String() string {
	var buf strbuf.Buffer
	if err := Marshal(&buf, e); err != nil {
		return fmt.Sprintf("<notification marshal error: %v>", err)
	}
	return buf.String()
}
