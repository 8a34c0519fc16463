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

package cfgutil_test

import (
	"testing"

	"github.com/ncollectd/ncollectd-core/cfgutil"
	"github.com/ncollectd/ncollectd-core/config"
	"gotest.tools/v3/assert"
)

func TestGetString(t *testing.T) {
	ci := &config.Item{Key: "host", Values: []config.Value{config.String("db1")}}
	got, err := cfgutil.GetString(ci)
	assert.NilError(t, err)
	assert.Equal(t, "db1", got)
}

func TestGetStringWrongArgCount(t *testing.T) {
	ci := &config.Item{Key: "host", Values: []config.Value{config.String("a"), config.String("b")}}
	_, err := cfgutil.GetString(ci)
	assert.ErrorIs(t, err, cfgutil.ErrArgCount)
}

func TestGetPortNumberLiteral(t *testing.T) {
	ci := &config.Item{Key: "port", Values: []config.Value{config.Number(8080)}}
	got, err := cfgutil.GetPortNumber(ci)
	assert.NilError(t, err)
	assert.Equal(t, uint16(8080), got)
}

func TestGetPortNumberOutOfRange(t *testing.T) {
	ci := &config.Item{Key: "port", Values: []config.Value{config.Number(70000)}}
	_, err := cfgutil.GetPortNumber(ci)
	assert.ErrorContains(t, err, "out of range")
}

func TestGetCdtime(t *testing.T) {
	ci := &config.Item{Key: "interval", Values: []config.Value{config.Number(2.5)}}
	got, err := cfgutil.GetCdtime(ci)
	assert.NilError(t, err)
	assert.Equal(t, 2.5, got.ToFloat64())
}

func TestGetLabel(t *testing.T) {
	ci := &config.Item{Key: "exec", Children: []*config.Item{
		{Key: "label", Values: []config.Value{config.String("env"), config.String("prod")}},
		{Key: "label", Values: []config.Value{config.String("team"), config.String("infra")}},
	}}
	ls, err := cfgutil.GetLabel(ci)
	assert.NilError(t, err)
	v, ok := ls.Get("env")
	assert.Assert(t, ok)
	assert.Equal(t, "prod", v)
	v, ok = ls.Get("team")
	assert.Assert(t, ok)
	assert.Equal(t, "infra", v)
}

func TestGetFlags(t *testing.T) {
	table := map[string]uint64{"read": 1, "write": 2, "exec": 4}
	ci := &config.Item{Key: "mode", Values: []config.Value{config.String("read"), config.String("exec")}}
	got, err := cfgutil.GetFlags(ci, table)
	assert.NilError(t, err)
	assert.Equal(t, uint64(5), got)
}

func TestGetFlagsUnknown(t *testing.T) {
	table := map[string]uint64{"read": 1}
	ci := &config.Item{Key: "mode", Values: []config.Value{config.String("bogus")}}
	_, err := cfgutil.GetFlags(ci, table)
	assert.ErrorContains(t, err, "unknown flag")
}

func TestGetMetricType(t *testing.T) {
	ci := &config.Item{Key: "type", Values: []config.Value{config.String("counter")}}
	got, err := cfgutil.GetMetricType(ci)
	assert.NilError(t, err)
	assert.Equal(t, "counter", got.String())
}
