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

package checkrun_test

import (
	"context"
	"testing"

	"github.com/ncollectd/ncollectd-core/checkrun"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
	"github.com/ncollectd/ncollectd-core/subproc"
	"gotest.tools/v3/assert"
)

// TestRunCriticalMapsToFailure covers the classic critical check: one that
// prints "CRITICAL" and exits 2 is reported as a failure notification with
// a summary annotation carrying the printed text.
func TestRunCriticalMapsToFailure(t *testing.T) {
	spec := subproc.ChildSpec{
		Path: "/bin/sh",
		Argv: []string{"sh", "-c", "echo CRITICAL; exit 2"},
	}
	e, err := checkrun.Run(context.Background(), spec, true, "disk_check",
		metric.NewLabelSet(metric.Label{Name: "host", Value: "h1"}))
	assert.NilError(t, err)
	assert.Equal(t, e.Severity, notification.Failure)
	assert.Equal(t, e.Name, "disk_check")

	summary, ok := e.Annotations.Get("summary")
	assert.Assert(t, ok)
	assert.Equal(t, summary, "CRITICAL")

	host, ok := e.Labels.Get("host")
	assert.Assert(t, ok)
	assert.Equal(t, host, "h1")
}

func TestRunOKMapsToOkay(t *testing.T) {
	spec := subproc.ChildSpec{
		Path: "/bin/sh",
		Argv: []string{"sh", "-c", "echo all good; exit 0"},
	}
	e, err := checkrun.Run(context.Background(), spec, true, "ping_check", metric.LabelSet{})
	assert.NilError(t, err)
	assert.Equal(t, e.Severity, notification.Okay)
	summary, ok := e.Annotations.Get("summary")
	assert.Assert(t, ok)
	assert.Equal(t, summary, "all good")
}

func TestRunWarningMapsToWarning(t *testing.T) {
	spec := subproc.ChildSpec{
		Path: "/bin/sh",
		Argv: []string{"sh", "-c", "echo low disk; exit 1"},
	}
	e, err := checkrun.Run(context.Background(), spec, true, "disk_check", metric.LabelSet{})
	assert.NilError(t, err)
	assert.Equal(t, e.Severity, notification.Warning)
}

func TestRunUnknownMapsToFailure(t *testing.T) {
	spec := subproc.ChildSpec{
		Path: "/bin/sh",
		Argv: []string{"sh", "-c", "exit 3"},
	}
	e, err := checkrun.Run(context.Background(), spec, true, "weird_check", metric.LabelSet{})
	assert.NilError(t, err)
	assert.Equal(t, e.Severity, notification.Failure)
}

func TestSeverityFromExitCodeOutOfRangeMapsToFailure(t *testing.T) {
	assert.Equal(t, checkrun.SeverityFromExitCode(42), notification.Failure)
	assert.Equal(t, checkrun.SeverityFromExitCode(checkrun.StatusOK), notification.Okay)
	assert.Equal(t, checkrun.SeverityFromExitCode(checkrun.StatusWarning), notification.Warning)
}
