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

// Package subproc implements the race-free fork/exec pipeline shared by
// exec-style collectors, check runners, and notify_exec: privilege drop
// (uid/gid/egid + supplementary groups), three pipes wired to the child,
// and structured exit-status reaping.
//
// Go does not expose a raw fork(2); os/exec already performs the
// close-every-fd-but-these-three, dup2-onto-0/1/2, and
// credential-switch-before-execve sequence internally on POSIX (see
// syscall.forkExec), so this package does not re-implement
// close_range/closefrom by hand. What it adds on top is allow-root
// gating, the three-pipe handle shape, Pdeathsig against orphaned
// children, and structured exit-status reporting.
package subproc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// ErrMustNotRunAsRoot is returned by ForkExecChild when allowRoot is false
// and the resolved uid is 0, before any fork happens. The resolution
// covers both an explicit ChildSpec.User of root and the unset-User case
// where the child would inherit a root daemon's identity.
var ErrMustNotRunAsRoot = errors.New("subproc: refusing to run as root")

// ChildSpec describes the process to spawn.
type ChildSpec struct {
	Path  string   // executable path
	Argv  []string // full argv; argv[0] defaults to path's basename when empty
	Envp  []string // the child's whole environment; nil inherits the daemon's
	User  string   // optional: resolved via the system user database
	Group string   // optional, only with User: added to the child's supplementary groups; the real and effective gid stay the user's primary group
}

// ExitStatus is the structured result of reaping a child.
type ExitStatus struct {
	Code     int
	Signaled bool
	Signal   string
}

// Child is a spawned subprocess with its three pipes and reentrancy state.
type Child struct {
	cmd    *exec.Cmd
	Pid    int
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	// CorrelationID ties this spawn's log lines together across the
	// stdout/stderr pump goroutines and whatever notification the caller
	// files about its outcome.
	CorrelationID string

	waitOnce sync.Once
	waitErr  error
	status   ExitStatus
}

// guard is the non-blocking single-in-flight gate: at most one in-flight
// child per exec-style collector at a time.
type guard struct {
	inFlight atomic.Bool
}

// TryAcquire returns false without blocking if a prior invocation has not
// finished.
func (g *guard) TryAcquire() bool {
	return g.inFlight.CompareAndSwap(false, true)
}

// Release clears the guard.
func (g *guard) Release() {
	g.inFlight.Store(false)
}

// NewGuard constructs a reentrancy guard for one registration.
func NewGuard() *guard { return &guard{} }

// resolveIdentity looks up spec.User (and spec.Group, if set) the way
// getpwnam_r/getgrnam_r do, returning the uid/gid/egid/supplementary-group
// set the child should run with. When no user is configured the child
// inherits the daemon's own identity, so the daemon's real uid/gid are
// what the allow-root gate must judge.
func resolveIdentity(spec ChildSpec) (uid, gid uint32, groups []uint32, egid *uint32, err error) {
	if spec.User == "" {
		return uint32(os.Getuid()), uint32(os.Getgid()), nil, nil, nil
	}
	u, err := user.Lookup(spec.User)
	if err != nil {
		return 0, 0, nil, nil, fmt.Errorf("subproc: resolve user %q: %w", spec.User, err)
	}
	uid64, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, 0, nil, nil, fmt.Errorf("subproc: parse uid %q: %w", u.Uid, err)
	}
	gid64, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, 0, nil, nil, fmt.Errorf("subproc: parse gid %q: %w", u.Gid, err)
	}
	uid, gid = uint32(uid64), uint32(gid64)
	groups = append(groups, gid)

	gidStrs, err := u.GroupIds()
	if err == nil {
		for _, gs := range gidStrs {
			if n, err := strconv.ParseUint(gs, 10, 32); err == nil {
				groups = append(groups, uint32(n))
			}
		}
	}

	if spec.Group != "" {
		g, err := user.LookupGroup(spec.Group)
		if err != nil {
			return 0, 0, nil, nil, fmt.Errorf("subproc: resolve group %q: %w", spec.Group, err)
		}
		egid64, err := strconv.ParseUint(g.Gid, 10, 32)
		if err != nil {
			return 0, 0, nil, nil, fmt.Errorf("subproc: parse egid %q: %w", g.Gid, err)
		}
		e := uint32(egid64)
		egid = &e
		if e != gid {
			groups = append(groups, e)
		}
	}
	return uid, gid, groups, egid, nil
}

// argv0 returns spec.Argv with argv[0] defaulted to the command's basename
// when the caller did not override it.
func argv0(spec ChildSpec) []string {
	if len(spec.Argv) > 0 {
		return spec.Argv
	}
	return []string{filepath.Base(spec.Path)}
}

// AppendIntervalEnv appends the NCOLLECTD_INTERVAL=<seconds> entry every
// exec-style collector promises its child before exec, so the child can
// pace its own output to the collection interval.
func AppendIntervalEnv(envp []string, interval time.Duration) []string {
	return append(envp, fmt.Sprintf("NCOLLECTD_INTERVAL=%.3f", interval.Seconds()))
}

// ForkExecChild spawns spec, returning a *Child with its three pipes wired
// up, or an error. On any failure every fd opened so far is closed (each
// early-return path below closes the pipes it has already opened).
func ForkExecChild(ctx context.Context, spec ChildSpec, allowRoot bool) (child *Child, err error) {
	uid, gid, groups, egid, err := resolveIdentity(spec)
	if err != nil {
		return nil, err
	}
	// The gate judges the uid the child will actually run with: the
	// configured user's, or the daemon's own when none is configured.
	if uid == 0 && !allowRoot {
		return nil, ErrMustNotRunAsRoot
	}

	args := argv0(spec)
	cmd := exec.CommandContext(ctx, spec.Path, args[1:]...)
	cmd.Args = args
	cmd.Env = spec.Envp

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("subproc: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("subproc: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("subproc: stderr pipe: %w", err)
	}

	if spec.User != "" {
		setCredential(cmd, uid, gid, groups, egid)
	}
	setPdeathsig(cmd)

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("subproc: start %s: %w", spec.Path, err)
	}

	return &Child{
		cmd:           cmd,
		Pid:           cmd.Process.Pid,
		Stdin:         stdin,
		Stdout:        stdout,
		Stderr:        stderr,
		CorrelationID: uuid.NewString(),
	}, nil
}

// RetrySpawn calls ForkExecChild repeatedly with exponential backoff until
// it succeeds, ctx is done, or maxElapsed passes. Collectors that want
// retry-on-spawn-failure opt into this explicitly; the engine itself never
// retries a spawn on the caller's behalf.
func RetrySpawn(ctx context.Context, spec ChildSpec, allowRoot bool, maxElapsed time.Duration) (*Child, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	bctx := backoff.WithContext(b, ctx)

	var child *Child
	err := backoff.Retry(func() error {
		c, err := ForkExecChild(ctx, spec, allowRoot)
		if err != nil {
			if errors.Is(err, ErrMustNotRunAsRoot) {
				return backoff.Permanent(err)
			}
			return err
		}
		child = c
		return nil
	}, bctx)
	return child, err
}

// PumpOutput drives the two-stream demultiplexing loop: onStdout is called
// once per completed stdout line; stderr lines always reach onStderr (the
// caller decides where "logged at error level" goes). PumpOutput returns
// once stdout is fully drained and the stderr reader has also reached EOF;
// there is no timeout on either stream.
func (c *Child) PumpOutput(onStdout, onStderr func(line string)) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanLines(c.Stderr, onStderr)
	}()
	scanLines(c.Stdout, onStdout)
	wg.Wait()
}

func scanLines(r io.Reader, onLine func(string)) {
	if onLine == nil {
		io.Copy(io.Discard, r)
		return
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
}

// Wait reaps the child and returns its structured exit status. Safe to
// call multiple times; only the first call actually waits.
func (c *Child) Wait() (ExitStatus, error) {
	c.waitOnce.Do(func() {
		err := c.cmd.Wait()
		c.status = exitStatusFromError(c.cmd, err)
		if err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				c.waitErr = err
			}
		}
	})
	return c.status, c.waitErr
}

// Signal delivers sig to the child (used to relay SIGTERM on registry
// shutdown).
func (c *Child) Signal(sig os.Signal) error {
	if c.cmd.Process == nil {
		return errors.New("subproc: process not started")
	}
	return c.cmd.Process.Signal(sig)
}
