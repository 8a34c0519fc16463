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

//go:build linux

package plugin

import (
	"os"

	"golang.org/x/sys/unix"
)

// Capability names the POSIX capabilities collectors may declare they need.
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

var capBit = map[Capability]uint32{
	CapSetUID:   uint32(unix.CAP_SETUID),
	CapSetGID:   uint32(unix.CAP_SETGID),
	CapSysAdmin: uint32(unix.CAP_SYS_ADMIN),
}

// CheckCapabilities reports which of the requested capabilities the current
// thread's effective set is missing. A missing capability is self-reported
// as a warning at plugin init; it never aborts registration. If the
// running kernel does not expose capabilities (the syscall fails), all
// capabilities are reported missing -- the caller logs that as a warning,
// same as an explicit miss.
func CheckCapabilities(caps ...Capability) []Capability {
	var hdr unix.CapUserHeader
	var data [2]unix.CapUserData
	hdr.Version = unix.LINUX_CAPABILITY_VERSION_3
	hdr.Pid = int32(os.Getpid())

	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return caps
	}

	var missing []Capability
	for _, c := range caps {
		bit := capBit[c]
		word := 0
		idx := bit
		if bit >= 32 {
			word = 1
			idx = bit - 32
		}
		if data[word].Effective&(uint32(1)<<idx) == 0 {
			missing = append(missing, c)
		}
	}
	return missing
}
