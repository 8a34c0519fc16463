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

//go:build !linux

package plugin

// Capability names the POSIX capabilities collectors may declare they need.
// Outside Linux there is no POSIX capabilities model to query.
type Capability int

const (
	CapSetUID Capability = iota
	CapSetGID
	CapSysAdmin
)

func (c Capability) String() string {
	switch c {
	case CapSetUID:
		return "CAP_SETUID"
	case CapSetGID:
		return "CAP_SETGID"
	case CapSysAdmin:
		return "CAP_SYS_ADMIN"
	default:
		return "CAP_UNKNOWN"
	}
}

// CheckCapabilities is a no-op on platforms without POSIX capabilities:
// nothing can be missing where the concept does not exist.
func CheckCapabilities(caps ...Capability) []Capability {
	return nil
}
