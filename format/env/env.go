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

// Package env implements the environment-variable notification encoding:
// NOTIFICATION_TIMESTAMP, NOTIFICATION_SEVERITY, NOTIFICATION_NAME, and
// one NOTIFICATION_LABEL_<UPPER>/NOTIFICATION_ANNOTATION_<UPPER> per pair.
package env

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
)

// ErrEmptyLabelName is returned by Encode when a label or annotation has an
// empty name: an empty suffix would collide with the bare
// NOTIFICATION_LABEL_/NOTIFICATION_ANNOTATION_ prefix.
var ErrEmptyLabelName = errors.New("env: empty label name")

// Encode renders e as a list of "KEY=VALUE" environment entries, appended
// after defaultEnv (which is passed through unmodified, mirroring the C
// function's default_envp prefix).
func Encode(e notification.Event, defaultEnv []string) ([]string, error) {
	out := make([]string, 0, len(defaultEnv)+3+e.Labels.Len()+e.Annotations.Len())
	out = append(out, defaultEnv...)

	out = append(out, "NOTIFICATION_TIMESTAMP="+strconv.FormatInt(e.Time.ToUnixSeconds(), 10))
	out = append(out, "NOTIFICATION_SEVERITY="+e.Severity.String())
	out = append(out, "NOTIFICATION_NAME="+e.Name)

	var rangeErr error
	e.Labels.Range(func(l metric.Label) {
		if rangeErr != nil {
			return
		}
		if l.Name == "" {
			rangeErr = ErrEmptyLabelName
			return
		}
		out = append(out, fmt.Sprintf("NOTIFICATION_LABEL_%s=%s", strings.ToUpper(l.Name), l.Value))
	})
	if rangeErr != nil {
		return nil, rangeErr
	}
	e.Annotations.Range(func(l metric.Label) {
		if rangeErr != nil {
			return
		}
		if l.Name == "" {
			rangeErr = ErrEmptyLabelName
			return
		}
		out = append(out, fmt.Sprintf("NOTIFICATION_ANNOTATION_%s=%s", strings.ToUpper(l.Name), l.Value))
	})
	if rangeErr != nil {
		return nil, rangeErr
	}

	return out, nil
}
