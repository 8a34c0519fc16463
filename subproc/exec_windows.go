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

//go:build windows

package subproc

import (
	"os/exec"
)

// setCredential is a no-op on Windows: there is no POSIX uid/gid model to
// drop to. Collectors that set ChildSpec.User on Windows get an unmodified
// child process.
func setCredential(cmd *exec.Cmd, uid, gid uint32, groups []uint32, egid *uint32) {}

// setPdeathsig is a no-op on Windows; there is no parent-death-signal
// mechanism to install.
func setPdeathsig(cmd *exec.Cmd) {}

func exitStatusFromError(cmd *exec.Cmd, err error) ExitStatus {
	if cmd.ProcessState == nil {
		if err != nil {
			return ExitStatus{Code: -1}
		}
		return ExitStatus{Code: 0}
	}
	return ExitStatus{Code: cmd.ProcessState.ExitCode()}
}
