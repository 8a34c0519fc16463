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

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/checkrun"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
	"github.com/ncollectd/ncollectd-core/plugin"
	"gotest.tools/v3/assert"
)

type captureEmitter struct {
	got *metric.Family
}

func (c *captureEmitter) Dispatch(f *metric.Family) error {
	c.got = f
	return nil
}

func TestReadGoroutinesEmitsOneGauge(t *testing.T) {
	var e captureEmitter
	assert.NilError(t, readGoroutines(context.Background(), &e, nil))
	assert.Assert(t, e.got != nil)
	assert.Equal(t, 1, len(e.got.Metrics))
	assert.Equal(t, metric.TypeGauge, e.got.Type)
}

var _ plugin.Emitter = (*captureEmitter)(nil)

func TestStatusGaugeFollowsNagiosCodes(t *testing.T) {
	assert.Equal(t, float64(checkrun.StatusOK), statusGauge(notification.Okay))
	assert.Equal(t, float64(checkrun.StatusWarning), statusGauge(notification.Warning))
	assert.Equal(t, float64(checkrun.StatusFailure), statusGauge(notification.Failure))
}

func TestRegisterCheckRegistersRead(t *testing.T) {
	reg := plugin.New()
	assert.NilError(t, registerCheck(reg, "exit 0", "", cdtime.FromFloat64(10)))

	err := registerCheck(reg, "exit 0", "", cdtime.FromFloat64(10))
	assert.Assert(t, errors.Is(err, plugin.ErrAlreadyRegistered))
}
