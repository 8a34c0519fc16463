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

import "errors"

// The error kinds every collector failure folds into. They are sentinels
// meant to be wrapped with fmt.Errorf("...: %w", ErrX) and unwrapped with
// errors.Is.
var (
	// ErrConfig is returned synchronously from a RegisterConfig callback;
	// it aborts loading of the offending section only.
	ErrConfig = errors.New("plugin: config error")

	// ErrTransientIO marks a single read or subprocess invocation failure.
	// The registration remains scheduled and is retried at its next
	// interval.
	ErrTransientIO = errors.New("plugin: transient I/O error")

	// ErrPermanentIO marks a violated invariant of a collector's external
	// resource (auth rejected, protocol mismatch). The registration
	// remains scheduled; the collector decides when to reconnect.
	ErrPermanentIO = errors.New("plugin: permanent I/O error")

	// ErrProgrammer marks a contract violation: type mismatch on family
	// append, nil user data, double registration. Recovered at the
	// worker-goroutine boundary so one corrupted callback cannot corrupt
	// the registry.
	ErrProgrammer = errors.New("plugin: programmer error")

	// ErrResourceExhaustion marks allocation/fd exhaustion.
	ErrResourceExhaustion = errors.New("plugin: resource exhaustion")

	// ErrAlreadyRegistered is returned by Register* when (group, name) is
	// already taken.
	ErrAlreadyRegistered = errors.New("plugin: already registered")

	// ErrNotRegistered is returned by Unregister* when (group, name) is
	// unknown.
	ErrNotRegistered = errors.New("plugin: not registered")

	// ErrShuttingDown is returned by RegisterRead, RegisterComplexRead,
	// RegisterWrite and RegisterNotification once Shutdown has started.
	ErrShuttingDown = errors.New("plugin: registry is shutting down")
)
