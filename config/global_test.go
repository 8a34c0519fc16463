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

package config_test

import (
	"testing"

	"github.com/ncollectd/ncollectd-core/config"
	"gotest.tools/v3/assert"
)

const globalsDoc = `
interval: 15
loglevel: warning
workers: 4
`

func TestDecodeGlobalSettingsValid(t *testing.T) {
	root, err := config.DecodeYAML("globals.yaml", []byte(globalsDoc))
	assert.NilError(t, err)

	g, err := config.DecodeGlobalSettings(root)
	assert.NilError(t, err)
	assert.Equal(t, 15.0, g.Interval)
	assert.Equal(t, "warning", g.LogLevel)
	assert.Equal(t, 4, g.Workers)
}

func TestDecodeGlobalSettingsRejectsBadLogLevel(t *testing.T) {
	root, err := config.DecodeYAML("globals.yaml", []byte("loglevel: chatty\n"))
	assert.NilError(t, err)

	_, err = config.DecodeGlobalSettings(root)
	assert.ErrorContains(t, err, "invalid globals")
}

func TestDecodeGlobalSettingsDefaultsInterval(t *testing.T) {
	root, err := config.DecodeYAML("globals.yaml", []byte("workers: 1\n"))
	assert.NilError(t, err)

	g, err := config.DecodeGlobalSettings(root)
	assert.NilError(t, err)
	assert.Equal(t, 10.0, g.Interval)
}
