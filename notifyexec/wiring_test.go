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

package notifyexec_test

import (
	"testing"

	"github.com/ncollectd/ncollectd-core/notification"
	"github.com/ncollectd/ncollectd-core/notifydispatch"
	"github.com/ncollectd/ncollectd-core/notifyexec"
	"github.com/ncollectd/ncollectd-core/subproc"
	"gotest.tools/v3/assert"
)

// TestSinkExecWiresIntoDispatcher exercises notifyexec.Sink.Exec as the
// notifydispatch.Sink.Exec field -- the adapter that actually puts this
// package on the dispatcher's delivery path instead of leaving it as a
// standalone, unreferenced sink implementation.
func TestSinkExecWiresIntoDispatcher(t *testing.T) {
	sink := notifyexec.New(subproc.ChildSpec{Path: "/bin/cat"}, notifyexec.Text)
	sink.AllowRoot = true

	d := notifydispatch.Dispatcher{
		Sinks: []notifydispatch.Sink{{Name: "cat", Exec: sink.Exec}},
	}

	err := d.DispatchNotification(notification.Event{Name: "up", Severity: notification.Okay})
	assert.NilError(t, err)
}
