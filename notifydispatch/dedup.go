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
	"sync"
	"time"

	"github.com/ncollectd/ncollectd-core/notification"
)

// Dedup suppresses repeated delivery of a notification whose (name,
// label_set, severity) hasn't changed since the last delivery within
// RefreshInterval: a sink re-delivers a state change immediately, but not
// a repeat of the same state before the refresh interval elapses.
type Dedup struct {
	RefreshInterval time.Duration

	mu       sync.Mutex
	lastSeen map[string]dedupState
}

type dedupState struct {
	severity notification.Severity
	at       time.Time
}

// Allow reports whether e should be delivered: true the first time a key is
// seen, true whenever the severity changes, and true again once
// RefreshInterval has elapsed since the last delivery of an unchanged
// state.
func (d *Dedup) Allow(e notification.Event) bool {
	if d == nil {
		return true
	}
	key := e.Name + "\x00" + e.Labels.Key()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastSeen == nil {
		d.lastSeen = make(map[string]dedupState)
	}

	now := time.Now()
	prev, ok := d.lastSeen[key]
	if !ok || prev.severity != e.Severity || now.Sub(prev.at) >= d.RefreshInterval {
		d.lastSeen[key] = dedupState{severity: e.Severity, at: now}
		return true
	}
	return false
}
