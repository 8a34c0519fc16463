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

package notifydispatch

import (
	"github.com/hashicorp/go-multierror"

	"github.com/ncollectd/ncollectd-core/notification"
)

// Sink is one registered notification destination: an optional match gate,
// an optional dedup guard, and the executor that actually delivers the
// (already-matched, already-cloned) event.
type Sink struct {
	Name  string
	Match *MetricMatch
	Dedup *Dedup
	Exec  func(notification.Event) error
}

// Dispatcher fans a notification out to every sink whose match accepts it,
// handing each one its own clone so sinks never share mutable state.
type Dispatcher struct {
	Sinks []Sink
}

// DispatchNotification implements lineproto.NotificationDispatcher.
func (d *Dispatcher) DispatchNotification(e notification.Event) error {
	var result error
	for _, sink := range d.Sinks {
		if !sink.Match.MatchesEvent(e) {
			continue
		}
		if !sink.Dedup.Allow(e) {
			continue
		}
		clone := e.Clone()
		if err := sink.Exec(clone); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
