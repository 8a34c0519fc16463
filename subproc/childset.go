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

package subproc

import (
	"errors"
	"os"
	"sync"
	"syscall"

	"github.com/hashicorp/go-multierror"
)

// ChildSet tracks the in-flight children a daemon owns, so shutdown can
// SIGTERM and reap every one of them instead of leaving orphans behind.
// Collectors Track a child right after a successful spawn and Forget it
// once Wait has returned in the normal path; TerminateAll covers whatever
// is still alive at teardown.
type ChildSet struct {
	mu       sync.Mutex
	children map[int]*Child
}

// NewChildSet returns an empty set.
func NewChildSet() *ChildSet {
	return &ChildSet{children: make(map[int]*Child)}
}

// Track adds c to the set.
func (s *ChildSet) Track(c *Child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[c.Pid] = c
}

// Forget removes c from the set; a no-op if c was never tracked.
func (s *ChildSet) Forget(c *Child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.children, c.Pid)
}

// Len reports how many children are currently tracked.
func (s *ChildSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.children)
}

// TerminateAll sends SIGTERM to every tracked child, reaps each one with
// Wait, and empties the set. Per-child signal/reap failures are collected
// rather than aborting the sweep; a child that exited before the signal
// arrived is not an error.
func (s *ChildSet) TerminateAll() error {
	s.mu.Lock()
	children := make([]*Child, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, c)
	}
	s.children = make(map[int]*Child)
	s.mu.Unlock()

	var result error
	for _, c := range children {
		err := c.Signal(syscall.SIGTERM)
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			result = multierror.Append(result, err)
		}
	}
	for _, c := range children {
		if _, err := c.Wait(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
