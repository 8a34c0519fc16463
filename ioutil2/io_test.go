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

package ioutil2_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ncollectd/ncollectd-core/ioutil2"
	"gotest.tools/v3/assert"
)

func TestReadExact(t *testing.T) {
	buf := make([]byte, 5)
	err := ioutil2.ReadExact(strings.NewReader("hello world"), buf)
	assert.NilError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestReadExactShort(t *testing.T) {
	buf := make([]byte, 5)
	err := ioutil2.ReadExact(strings.NewReader("hi"), buf)
	assert.ErrorIs(t, err, ioutil2.ErrShortRead)
}

func TestWriteAll(t *testing.T) {
	var buf bytes.Buffer
	assert.NilError(t, ioutil2.WriteAll(&buf, []byte("hello")))
	assert.Equal(t, "hello", buf.String())
}
