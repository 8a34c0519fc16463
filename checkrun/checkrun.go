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

// Package checkrun implements a Nagios-compatible check runner: it drives
// package subproc to execute a check command, maps its exit status onto a
// notification severity, and carries the command's stdout into the
// notification's summary/long_output annotations.
package checkrun

import (
	"context"
	"strings"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
	"github.com/ncollectd/ncollectd-core/subproc"
)

// Nagios exit-code convention: 0 OK, 1 WARNING, 2 FAILURE, 3 UNKNOWN; any
// other status maps to FAILURE.
const (
	StatusOK      = 0
	StatusWarning = 1
	StatusFailure = 2
	StatusUnknown = 3
)

// SeverityFromExitCode maps a check command's exit code to a
// notification.Severity. The notification model has only three severities,
// so both UNKNOWN (3) and any other code fold into Failure.
func SeverityFromExitCode(code int) notification.Severity {
	switch code {
	case StatusOK:
		return notification.Okay
	case StatusWarning:
		return notification.Warning
	default:
		return notification.Failure
	}
}

// Run spawns spec via subproc.ForkExecChild, drains its output, waits for
// it to exit, and returns the resulting notification.Event named name with
// labels cloned from labels. The first line of stdout becomes the
// "summary" annotation; any remaining stdout lines become "long_output";
// any stderr output becomes the "stderr" annotation. A signaled child (no
// exit code to map) is reported as Failure.
func Run(ctx context.Context, spec subproc.ChildSpec, allowRoot bool, name string, labels metric.LabelSet) (notification.Event, error) {
	child, err := subproc.ForkExecChild(ctx, spec, allowRoot)
	if err != nil {
		return notification.Event{}, err
	}

	var stdout, stderr []string
	child.PumpOutput(
		func(line string) { stdout = append(stdout, line) },
		func(line string) { stderr = append(stderr, line) },
	)

	status, err := child.Wait()
	if err != nil {
		return notification.Event{}, err
	}

	severity := notification.Failure
	if !status.Signaled {
		severity = SeverityFromExitCode(status.Code)
	}

	e := notification.Event{
		Severity: severity,
		Time:     cdtime.Now(),
		Name:     name,
		Labels:   labels.Clone(),
	}
	if len(stdout) > 0 {
		e.Annotations.Add(true, "summary", stdout[0])
		if len(stdout) > 1 {
			e.Annotations.Add(true, "long_output", strings.Join(stdout[1:], "\n"))
		}
	}
	if len(stderr) > 0 {
		e.Annotations.Add(true, "stderr", strings.Join(stderr, "\n"))
	}
	return e, nil
}
