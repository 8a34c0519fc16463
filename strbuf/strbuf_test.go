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

package strbuf_test

import (
	"testing"

	"github.com/ncollectd/ncollectd-core/strbuf"
	"gotest.tools/v3/assert"
)

func TestPutString(t *testing.T) {
	var b strbuf.Buffer
	assert.NilError(t, b.PutString("hello "))
	assert.NilError(t, b.PutString("world"))
	assert.Equal(t, "hello world", b.String())
	assert.Equal(t, 11, b.Len())
}

func TestPutEscaped(t *testing.T) {
	var b strbuf.Buffer
	assert.NilError(t, b.PutEscaped(`a"b\c`, `"\`, '\\'))
	assert.Equal(t, `a\"b\\c`, b.String())
}

func TestMaxLen(t *testing.T) {
	b := strbuf.Buffer{MaxLen: 4}
	assert.NilError(t, b.PutString("1234"))
	assert.Error(t, b.PutByte('5'), strbuf.ErrTooLarge.Error())
}

func TestResetAndTake(t *testing.T) {
	var b strbuf.Buffer
	assert.NilError(t, b.PutString("x"))
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.NilError(t, b.PutString("y"))
	out := b.Take()
	assert.Equal(t, "y", string(out))
	assert.Equal(t, 0, b.Len())
}
