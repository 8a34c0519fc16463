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

// Package plugin implements the collector framework: registration of read
// callbacks, scheduling at per-collector intervals on a bounded worker
// pool, and the write/notification/log/filter/shutdown callback chains.
//
// All registration state lives in an explicit Registry object passed to
// collectors at init, never in package-level globals; tests construct
// their own.
package plugin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
)

// ReadFunc samples data and emits metric families via the Emitter. It
// returns an error for a failed single read; the scheduler logs it at
// warning and keeps the registration scheduled at its normal interval,
// with no exponential back-off. Collectors manage their own retries.
type ReadFunc func(ctx context.Context, emit Emitter, ud *UserData) error

// Emitter is handed to a read callback so it can dispatch families without
// holding a reference to the whole Registry.
type Emitter interface {
	Dispatch(f *metric.Family) error
}

// WriteFunc consumes a filtered metric family.
type WriteFunc func(ctx context.Context, f *metric.Family, ud *UserData) error

// NotificationFunc consumes a notification event.
type NotificationFunc func(ctx context.Context, e notification.Event, ud *UserData) error

// LogFunc consumes a single log line at the given severity.
type LogFunc func(severity string, msg string, ud *UserData)

// InitFunc runs once at startup, in registration order.
type InitFunc func() error

// ShutdownFunc runs once at shutdown.
type ShutdownFunc func() error

type key struct {
	group, name string
}

func (k key) String() string { return fmt.Sprintf("%s/%s", k.group, k.name) }

// readRegistration is the scheduler's view of a registered read callback.
type readRegistration struct {
	key      key
	fn       ReadFunc
	interval cdtime.Time
	ud       *UserData

	mu      sync.Mutex // serializes this registration's reads
	running atomic.Bool
	queued  atomic.Bool // set while handed to a worker but not yet running
	nextRun cdtime.Time
	index   int // heap index, maintained by container/heap
}

type writeRegistration struct {
	fn WriteFunc
	ud *UserData
}

type notificationRegistration struct {
	fn NotificationFunc
	ud *UserData
}

type logRegistration struct {
	fn LogFunc
	ud *UserData
}

// Registry is the process-wide (but, per the redesign, explicitly
// constructed and passed around) registration table. The zero value is not
// usable; use New.
type Registry struct {
	mu sync.RWMutex // guards the maps below; scheduler/dispatch take RLock

	reads         map[key]*readRegistration
	writes        map[key]*writeRegistration
	notifications map[key]*notificationRegistration
	logs          map[key]*logRegistration
	inits         []namedInit
	shutdowns     []namedShutdown
	configs       map[string]ConfigFunc
	matches       map[string]MatchFunc
	filters       map[string]FilterFunc

	udOrder      []*UserData // registration order, for destructor reverse order
	shuttingDown atomic.Bool
	scheduler    *scheduler
	missedReads  atomic.Uint64
}

type namedInit struct {
	name string
	fn   InitFunc
}

type namedShutdown struct {
	name string
	fn   ShutdownFunc
}

// ConfigFunc parses one configuration section. A ConfigFunc error is
// wrapped in ErrConfig by the caller driving config load; it aborts only
// the offending section.
type ConfigFunc func(ci any) error

// MatchFunc and FilterFunc back RegisterMatch/RegisterFilter. The registry
// stores them by name only; nothing in this package builds them into a
// plugin/filter chain or calls them.
type MatchFunc func(labels metric.LabelSet) bool
type FilterFunc func(f *metric.Family)

// New constructs an empty Registry.
func New() *Registry {
	r := &Registry{
		reads:         make(map[key]*readRegistration),
		writes:        make(map[key]*writeRegistration),
		notifications: make(map[key]*notificationRegistration),
		logs:          make(map[key]*logRegistration),
		configs:       make(map[string]ConfigFunc),
		matches:       make(map[string]MatchFunc),
		filters:       make(map[string]FilterFunc),
	}
	r.scheduler = newScheduler(r)
	return r
}

// RegisterRead registers a read callback at the given interval. (group,
// name) must be unique; double-registration is rejected with
// ErrAlreadyRegistered.
func (r *Registry) RegisterRead(group, name string, fn ReadFunc, interval cdtime.Time, ud *UserData) error {
	return r.registerRead(group, name, fn, interval, ud)
}

// RegisterComplexRead is the same registration surface as RegisterRead; it
// exists as a distinct name for callers porting collectors that
// distinguish "simple" reads (no user data) from "complex" reads
// (arbitrary opaque state). Both paths carry a *UserData here, so the two
// register calls converge on one implementation.
func (r *Registry) RegisterComplexRead(group, name string, fn ReadFunc, interval cdtime.Time, ud *UserData) error {
	return r.registerRead(group, name, fn, interval, ud)
}

func (r *Registry) registerRead(group, name string, fn ReadFunc, interval cdtime.Time, ud *UserData) error {
	if fn == nil {
		return fmt.Errorf("%s/%s: %w: nil read function", group, name, ErrProgrammer)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shuttingDown.Load() {
		return ErrShuttingDown
	}
	k := key{group, name}
	if _, ok := r.reads[k]; ok {
		return fmt.Errorf("%s: %w", k, ErrAlreadyRegistered)
	}
	reg := &readRegistration{key: k, fn: fn, interval: interval, ud: ud, nextRun: cdtime.Now().Add(interval)}
	r.reads[k] = reg
	r.udOrder = append(r.udOrder, ud)
	r.scheduler.add(reg)
	return nil
}

// UnregisterRead removes a read registration, running its UserData
// destructor.
func (r *Registry) UnregisterRead(group, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{group, name}
	reg, ok := r.reads[k]
	if !ok {
		return fmt.Errorf("%s: %w", k, ErrNotRegistered)
	}
	r.scheduler.remove(reg)
	delete(r.reads, k)
	reg.ud.Free()
	return nil
}

// RegisterWrite registers a write sink. formats and buffering knobs are the
// caller's concern above this package (a sink implementation may consult
// them); the registry only owns the callback and its user data.
func (r *Registry) RegisterWrite(group, name string, fn WriteFunc, ud *UserData) error {
	if fn == nil {
		return fmt.Errorf("%s/%s: %w: nil write function", group, name, ErrProgrammer)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shuttingDown.Load() {
		return ErrShuttingDown
	}
	k := key{group, name}
	if _, ok := r.writes[k]; ok {
		return fmt.Errorf("%s: %w", k, ErrAlreadyRegistered)
	}
	r.writes[k] = &writeRegistration{fn: fn, ud: ud}
	r.udOrder = append(r.udOrder, ud)
	return nil
}

// RegisterNotification registers a notification sink.
func (r *Registry) RegisterNotification(group, name string, fn NotificationFunc, ud *UserData) error {
	if fn == nil {
		return fmt.Errorf("%s/%s: %w: nil notification function", group, name, ErrProgrammer)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shuttingDown.Load() {
		return ErrShuttingDown
	}
	k := key{group, name}
	if _, ok := r.notifications[k]; ok {
		return fmt.Errorf("%s: %w", k, ErrAlreadyRegistered)
	}
	r.notifications[k] = &notificationRegistration{fn: fn, ud: ud}
	r.udOrder = append(r.udOrder, ud)
	return nil
}

// RegisterLog registers a log sink.
func (r *Registry) RegisterLog(group, name string, fn LogFunc, ud *UserData) error {
	if fn == nil {
		return fmt.Errorf("%s/%s: %w: nil log function", group, name, ErrProgrammer)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{group, name}
	if _, ok := r.logs[k]; ok {
		return fmt.Errorf("%s: %w", k, ErrAlreadyRegistered)
	}
	r.logs[k] = &logRegistration{fn: fn, ud: ud}
	r.udOrder = append(r.udOrder, ud)
	return nil
}

// RegisterInit registers a callback run once, in registration order, when
// Init is called.
func (r *Registry) RegisterInit(name string, fn InitFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits = append(r.inits, namedInit{name, fn})
	return nil
}

// RegisterShutdown registers a callback run once at Shutdown, in reverse
// registration order.
func (r *Registry) RegisterShutdown(name string, fn ShutdownFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdowns = append(r.shutdowns, namedShutdown{name, fn})
	return nil
}

// RegisterConfig registers a config-section parser.
func (r *Registry) RegisterConfig(section string, fn ConfigFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[section] = fn
	return nil
}

// RegisterMatch registers a named match predicate for use in filter rules.
func (r *Registry) RegisterMatch(name string, fn MatchFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[name] = fn
	return nil
}

// RegisterFilter registers a named filter action for use in filter rules.
func (r *Registry) RegisterFilter(name string, fn FilterFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
	return nil
}

// Init runs every registered init callback in registration order. The
// first error aborts remaining init callbacks and is returned.
func (r *Registry) Init() error {
	r.mu.RLock()
	inits := append([]namedInit(nil), r.inits...)
	r.mu.RUnlock()
	for _, i := range inits {
		if err := i.fn(); err != nil {
			return fmt.Errorf("init %s: %w", i.name, err)
		}
	}
	return nil
}

// Dispatch hands a metric family to every registered write sink. Per-sink
// errors are collected and returned together; one failing sink does not
// block the others (the worker-pool boundary isolates collector failures,
// and write sinks get the same treatment).
func (r *Registry) Dispatch(f *metric.Family) error {
	r.mu.RLock()
	writes := make([]*writeRegistration, 0, len(r.writes))
	for _, w := range r.writes {
		writes = append(writes, w)
	}
	r.mu.RUnlock()

	var result error
	for _, w := range writes {
		if err := r.callWrite(w, f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func (r *Registry) callWrite(w *writeRegistration, f *metric.Family) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("write sink panicked: %v: %w", rec, ErrProgrammer)
		}
	}()
	return w.fn(context.Background(), f, w.ud)
}

// DispatchNotification hands a notification to every registered
// notification sink.
func (r *Registry) DispatchNotification(e notification.Event) error {
	r.mu.RLock()
	sinks := make([]*notificationRegistration, 0, len(r.notifications))
	for _, n := range r.notifications {
		sinks = append(sinks, n)
	}
	r.mu.RUnlock()

	var result error
	for _, s := range sinks {
		if err := s.fn(context.Background(), e.Clone(), s.ud); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Log hands a log line to every registered log sink.
func (r *Registry) Log(severity, msg string) {
	r.mu.RLock()
	sinks := make([]*logRegistration, 0, len(r.logs))
	for _, l := range r.logs {
		sinks = append(sinks, l)
	}
	r.mu.RUnlock()
	for _, s := range sinks {
		s.fn(severity, msg, s.ud)
	}
}

// MissedReads returns the count of reads skipped because a prior invocation
// of the same registration had not finished when the next fire came due.
func (r *Registry) MissedReads() uint64 {
	return r.missedReads.Load()
}

// MissedReadsFamily renders the missed-read counter as a metric family,
// the same shape any collector reports its own resource in.
func (r *Registry) MissedReadsFamily() *metric.Family {
	f := metric.NewFamily("ncollectd_missed_reads_total", metric.TypeCounter)
	f.Help = "Reads skipped because the previous invocation of the same registration was still running."
	_ = f.Append(metric.Counter(r.missedReads.Load()), metric.LabelSet{})
	return f
}

// RegisterSelfMetrics registers the registry's own read callback, which
// emits the counters the registry keeps about its own operation (currently
// ncollectd_missed_reads_total) through the ordinary dispatch path, so
// self-observation reaches write sinks exactly like collector metrics do.
func (r *Registry) RegisterSelfMetrics(interval cdtime.Time) error {
	return r.RegisterRead("ncollectd", "self_metrics", func(ctx context.Context, emit Emitter, _ *UserData) error {
		return emit.Dispatch(r.MissedReadsFamily())
	}, interval, nil)
}

// Start launches the scheduler's worker pool. workers <= 0 picks
// min(len(registered reads), a platform-derived default), and at least 1.
func (r *Registry) Start(ctx context.Context, workers int) {
	r.scheduler.start(ctx, workers)
}

// Shutdown tears the registry down: stop accepting new reads, join worker
// goroutines, then run every RegisterShutdown callback and every UserData
// destructor in reverse-registration order. Terminating and reaping
// subprocess children is their owning collectors' responsibility (this
// package has no subprocess handles of its own; see package subproc for
// SIGTERM+reap).
func (r *Registry) Shutdown(ctx context.Context) error {
	r.shuttingDown.Store(true)
	r.scheduler.stop(ctx)

	r.mu.Lock()
	shutdowns := append([]namedShutdown(nil), r.shutdowns...)
	uds := append([]*UserData(nil), r.udOrder...)
	r.mu.Unlock()

	var result error
	for i := len(shutdowns) - 1; i >= 0; i-- {
		if err := shutdowns[i].fn(); err != nil {
			result = multierror.Append(result, fmt.Errorf("shutdown %s: %w", shutdowns[i].name, err))
		}
	}
	for i := len(uds) - 1; i >= 0; i-- {
		uds[i].Free()
	}
	return result
}
