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

package notifyexec

import "errors"

// ErrBusy is returned by Sink.Deliver when a prior delivery on the same
// sink has not finished yet; deliveries never pile up behind one another.
var ErrBusy = errors.New("notifyexec: sink busy")

// ErrChildFailed is returned by Sink.Deliver when the spawned child exits
// with a nonzero status.
var ErrChildFailed = errors.New("notifyexec: child exited nonzero")
