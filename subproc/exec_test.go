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

package subproc_test

import (
	"context"
	"os"
	"os/user"
	"strconv"
	"testing"
	"time"

	"github.com/ncollectd/ncollectd-core/subproc"
	"gotest.tools/v3/assert"
)

// TestEchoRoundTrip spawns a trivial child, writes to its stdin, reads the
// echoed line back from stdout, and observes a clean exit status.
func TestEchoRoundTrip(t *testing.T) {
	child, err := subproc.ForkExecChild(context.Background(), subproc.ChildSpec{
		Path: "/bin/cat",
		Argv: []string{"cat"},
	}, true)
	assert.NilError(t, err)

	go func() {
		child.Stdin.Write([]byte("hello ncollectd\n"))
		child.Stdin.(interface{ Close() error }).Close()
	}()

	var lines []string
	child.PumpOutput(func(line string) {
		lines = append(lines, line)
	}, nil)

	status, err := child.Wait()
	assert.NilError(t, err)
	assert.Equal(t, 0, status.Code)
	assert.Assert(t, !status.Signaled)
	assert.Equal(t, 1, len(lines))
	assert.Equal(t, "hello ncollectd", lines[0])
}

func TestNonZeroExitStatus(t *testing.T) {
	child, err := subproc.ForkExecChild(context.Background(), subproc.ChildSpec{
		Path: "/bin/sh",
		Argv: []string{"sh", "-c", "exit 3"},
	}, true)
	assert.NilError(t, err)
	child.PumpOutput(nil, nil)
	status, err := child.Wait()
	assert.NilError(t, err)
	assert.Equal(t, 3, status.Code)
}

func TestMustNotRunAsRootRejectsRootUser(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires running as root to resolve the root user's own identity")
	}
	u, err := user.Lookup("root")
	assert.NilError(t, err)
	uid, err := strconv.Atoi(u.Uid)
	assert.NilError(t, err)
	assert.Equal(t, 0, uid)

	_, err = subproc.ForkExecChild(context.Background(), subproc.ChildSpec{
		Path: "/bin/true",
		User: "root",
	}, false)
	assert.ErrorIs(t, err, subproc.ErrMustNotRunAsRoot)
}

// TestUnsetUserStillGatedWhenRunningAsRoot covers the common case the
// root gate exists for: no explicit User configured, so the child would
// inherit the daemon's identity. With allowRoot=false that must be
// refused when the daemon itself is root.
func TestUnsetUserStillGatedWhenRunningAsRoot(t *testing.T) {
	child, err := subproc.ForkExecChild(context.Background(), subproc.ChildSpec{Path: "/bin/true"}, false)
	if os.Getuid() == 0 {
		assert.ErrorIs(t, err, subproc.ErrMustNotRunAsRoot)
		return
	}
	assert.NilError(t, err)
	child.PumpOutput(nil, nil)
	status, err := child.Wait()
	assert.NilError(t, err)
	assert.Equal(t, 0, status.Code)
}

func TestGuardRejectsReentry(t *testing.T) {
	g := subproc.NewGuard()
	assert.Assert(t, g.TryAcquire())
	assert.Assert(t, !g.TryAcquire(), "a second acquire must fail while the first is in flight")
	g.Release()
	assert.Assert(t, g.TryAcquire())
}

func TestChildGetsCorrelationID(t *testing.T) {
	child, err := subproc.ForkExecChild(context.Background(), subproc.ChildSpec{Path: "/bin/true"}, true)
	assert.NilError(t, err)
	assert.Assert(t, child.CorrelationID != "")
	child.Wait()
}

func TestRetrySpawnRejectsRootPermanently(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires running as root to resolve the root user's own identity")
	}
	_, err := subproc.RetrySpawn(context.Background(), subproc.ChildSpec{
		Path: "/bin/true",
		User: "root",
	}, false, time.Second)
	assert.ErrorIs(t, err, subproc.ErrMustNotRunAsRoot)
}

func TestChildSetTerminatesTrackedChildren(t *testing.T) {
	set := subproc.NewChildSet()
	child, err := subproc.ForkExecChild(context.Background(), subproc.ChildSpec{
		Path: "/bin/sleep",
		Argv: []string{"sleep", "60"},
	}, true)
	assert.NilError(t, err)
	set.Track(child)
	assert.Equal(t, 1, set.Len())

	assert.NilError(t, set.TerminateAll())
	assert.Equal(t, 0, set.Len())

	status, err := child.Wait()
	assert.NilError(t, err)
	assert.Assert(t, status.Signaled)
}

func TestChildSetForget(t *testing.T) {
	set := subproc.NewChildSet()
	child, err := subproc.ForkExecChild(context.Background(), subproc.ChildSpec{Path: "/bin/true"}, true)
	assert.NilError(t, err)
	set.Track(child)
	set.Forget(child)
	assert.Equal(t, 0, set.Len())
	child.Wait()
}

func TestAppendIntervalEnv(t *testing.T) {
	envp := subproc.AppendIntervalEnv([]string{"FOO=bar"}, 10*time.Second)
	assert.DeepEqual(t, []string{"FOO=bar", "NCOLLECTD_INTERVAL=10.000"}, envp)
}

func TestRetrySpawnSucceeds(t *testing.T) {
	child, err := subproc.RetrySpawn(context.Background(), subproc.ChildSpec{
		Path: "/bin/true",
	}, true, time.Second)
	assert.NilError(t, err)
	child.PumpOutput(nil, nil)
	status, err := child.Wait()
	assert.NilError(t, err)
	assert.Equal(t, 0, status.Code)
}
