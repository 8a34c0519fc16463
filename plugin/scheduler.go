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

import (
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ncollectd/ncollectd-core/cdtime"
)

// readHeap is a min-heap of *readRegistration ordered by nextRun, backing
// the single-threaded dispatch loop.
type readHeap []*readRegistration

func (h readHeap) Len() int            { return len(h) }
func (h readHeap) Less(i, j int) bool  { return h[i].nextRun < h[j].nextRun }
func (h readHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *readHeap) Push(x any) {
	reg := x.(*readRegistration)
	reg.index = len(*h)
	*h = append(*h, reg)
}
func (h *readHeap) Pop() any {
	old := *h
	n := len(old)
	reg := old[n-1]
	old[n-1] = nil
	reg.index = -1
	*h = old[:n-1]
	return reg
}

// scheduler is the single-threaded dispatch loop plus the bounded worker
// pool it feeds. It dequeues the earliest due registration and posts it to
// the pool; workers block on whatever I/O the read callback performs.
type scheduler struct {
	registry *Registry

	mu   sync.Mutex
	heap readHeap

	wake     chan struct{}
	jobs     chan *readRegistration
	wg       sync.WaitGroup
	stopOnce sync.Once
	cancel   context.CancelFunc
}

func newScheduler(r *Registry) *scheduler {
	return &scheduler{registry: r, wake: make(chan struct{}, 1)}
}

func (s *scheduler) add(reg *readRegistration) {
	s.mu.Lock()
	heap.Push(&s.heap, reg)
	s.mu.Unlock()
	s.poke()
}

func (s *scheduler) remove(reg *readRegistration) {
	s.mu.Lock()
	if reg.index >= 0 && reg.index < len(s.heap) && s.heap[reg.index] == reg {
		heap.Remove(&s.heap, reg.index)
	}
	s.mu.Unlock()
}

func (s *scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// defaultWorkers sizes the pool to the number of registered read
// callbacks, bounded above so a host with hundreds of registrations does
// not get hundreds of idle workers.
func defaultWorkers(nReads int) int {
	upper := runtime.NumCPU() * 4
	if upper < 4 {
		upper = 4
	}
	if nReads == 0 {
		return 1
	}
	if nReads > upper {
		return upper
	}
	return nReads
}

func (s *scheduler) start(ctx context.Context, workers int) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.mu.Lock()
	n := len(s.heap)
	s.mu.Unlock()
	if workers <= 0 {
		workers = defaultWorkers(n)
	}

	s.jobs = make(chan *readRegistration)
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	s.wg.Add(1)
	go s.dispatchLoop(ctx)
}

func (s *scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case reg, ok := <-s.jobs:
			if !ok {
				return
			}
			s.runRead(ctx, reg)
		}
	}
}

func (s *scheduler) runRead(ctx context.Context, reg *readRegistration) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.running.Store(true)
	reg.queued.Store(false)
	defer reg.running.Store(false)

	if err := s.callRead(ctx, reg); err != nil {
		s.registry.Log("warning", fmt.Sprintf("read %s failed: %v", reg.key, err))
	}

	s.mu.Lock()
	reg.nextRun = cdtime.Now().Add(reg.interval)
	if reg.index >= 0 && reg.index < len(s.heap) {
		heap.Fix(&s.heap, reg.index)
	}
	s.mu.Unlock()
	s.poke()
}

func (s *scheduler) callRead(ctx context.Context, reg *readRegistration) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read %s panicked: %v: %w", reg.key, rec, ErrProgrammer)
		}
	}()
	return reg.fn(ctx, s.registry, reg.ud)
}

// dispatchLoop is the single-threaded loop that waits for the next due
// registration and posts it to a worker. It never runs a registration that
// is already in flight (reg.running); instead it records a missed read and
// reschedules normally without catching up.
func (s *scheduler) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var next *readRegistration
		if len(s.heap) > 0 {
			next = s.heap[0]
		}
		s.mu.Unlock()

		var wait time.Duration
		if next == nil {
			wait = time.Hour
		} else {
			wait = next.nextRun.ToTime().Sub(time.Now())
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.wake:
			continue
		}

		s.mu.Lock()
		if len(s.heap) == 0 || s.heap[0].nextRun.After(cdtime.Now()) {
			s.mu.Unlock()
			continue
		}
		reg := s.heap[0]
		s.mu.Unlock()

		if reg.running.Load() || reg.queued.Load() {
			// Still running (or handed to a worker that hasn't picked it up
			// yet): skip this fire, record a missed read, and reschedule at
			// the normal interval rather than serializing or catching up.
			s.registry.missedReads.Add(1)
			s.mu.Lock()
			reg.nextRun = cdtime.Now().Add(reg.interval)
			if reg.index >= 0 && reg.index < len(s.heap) {
				heap.Fix(&s.heap, reg.index)
			}
			s.mu.Unlock()
			continue
		}

		// Advance nextRun before handing off, so the loop does not see this
		// registration as still due while a worker is picking it up. The
		// worker recomputes nextRun again once the read finishes, which is
		// what delays a slow read's next fire.
		reg.queued.Store(true)
		s.mu.Lock()
		reg.nextRun = cdtime.Now().Add(reg.interval)
		if reg.index >= 0 && reg.index < len(s.heap) {
			heap.Fix(&s.heap, reg.index)
		}
		s.mu.Unlock()

		select {
		case s.jobs <- reg:
		case <-ctx.Done():
			reg.queued.Store(false)
			return
		}
	}
}

func (s *scheduler) stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}
	})
}
