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

// Package json implements the JSON notification encoding: {"severity",
// "time" (epoch nanoseconds), "name", "labels", "annotations"}.
package json

import (
	"encoding/json"

	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
)

type wireEvent struct {
	Severity    string            `json:"severity"`
	Time        int64             `json:"time"`
	Name        string            `json:"name"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

// Encode renders e as its canonical JSON form.
func Encode(e notification.Event) ([]byte, error) {
	w := wireEvent{
		Severity:    e.Severity.String(),
		Time:        e.Time.ToUnixNano(),
		Name:        e.Name,
		Labels:      map[string]string{},
		Annotations: map[string]string{},
	}
	e.Labels.Range(func(l metric.Label) { w.Labels[l.Name] = l.Value })
	e.Annotations.Range(func(l metric.Label) { w.Annotations[l.Name] = l.Value })
	return json.Marshal(w)
}
