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

// Package text implements the canonical text notification encoding:
// "name{labels}{annotations} severity timestamp".
package text

import (
	"github.com/ncollectd/ncollectd-core/notification"
	"github.com/ncollectd/ncollectd-core/strbuf"
)

// Encode renders e as its canonical text form.
func Encode(e notification.Event) (string, error) {
	var buf strbuf.Buffer
	if err := notification.Marshal(&buf, e); err != nil {
		return "", err
	}
	return buf.String(), nil
}
