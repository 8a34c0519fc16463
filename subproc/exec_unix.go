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

//go:build unix

package subproc

import (
	"os/exec"
	"syscall"
)

// setCredential arranges for the child to drop to uid/gid (+ supplementary
// groups) before execve, mirroring ncollectd's setgroups/setresgid/setresuid
// ordering: groups first, then gid, then uid, so the process never holds a
// combination of privileges wider than its final one. A distinct egid is
// not set as the effective gid: syscall.Credential has no field for it, so
// it only reaches the child as one of the supplementary groups.
func setCredential(cmd *exec.Cmd, uid, gid uint32, groups []uint32, egid *uint32) {
	cred := &syscall.Credential{
		Uid:    uid,
		Gid:    gid,
		Groups: groups,
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = cred
	_ = egid // effective gid folded into Groups by resolveIdentity when distinct
}

// exitStatusFromError extracts a structured ExitStatus from the error
// returned by (*exec.Cmd).Wait, including signal termination detail that
// exec.ExitError only exposes via the platform-specific WaitStatus.
func exitStatusFromError(cmd *exec.Cmd, err error) ExitStatus {
	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		if err != nil {
			return ExitStatus{Code: -1}
		}
		return ExitStatus{Code: 0}
	}
	if ws.Signaled() {
		return ExitStatus{Signaled: true, Signal: ws.Signal().String(), Code: -1}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}
