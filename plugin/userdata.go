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

package plugin

import "sync"

// UserData is boxed per-registration state: an opaque value plus a
// destructor the registry guarantees to run exactly once, on unregister or
// shutdown, even if the registration is never explicitly unregistered.
type UserData struct {
	Data    any
	free    func()
	freeOne sync.Once
}

// NewUserData boxes data with an optional destructor. free may be nil if
// data needs no cleanup.
func NewUserData(data any, free func()) *UserData {
	return &UserData{Data: data, free: free}
}

// Free runs the destructor exactly once.
func (u *UserData) Free() {
	if u == nil || u.free == nil {
		return
	}
	u.freeOne.Do(u.free)
}
