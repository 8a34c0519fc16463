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

// Command ncollectd-debug-exporter wires an in-process plugin.Registry to
// an OpenMetrics HTTP endpoint, for poking at a handful of collectors
// locally without a full write backend. It registers a self-observation
// read callback plus the registry's own self-metrics, routes all registry
// diagnostics through a structured corelog sink, optionally runs a
// Nagios-style check command, and exposes everything the registry
// dispatches at /metrics.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/checkrun"
	"github.com/ncollectd/ncollectd-core/corelog"
	"github.com/ncollectd/ncollectd-core/format/openmetrics"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
	"github.com/ncollectd/ncollectd-core/plugin"
	"github.com/ncollectd/ncollectd-core/subproc"
)

func main() {
	addr := flag.String("listen", ":9393", "address to serve /metrics on")
	interval := flag.Duration("interval", 10*time.Second, "collector read interval")
	logDest := flag.String("log", "stderr", "structured log destination (stderr, stdout, or a file path)")
	check := flag.String("check", "", "optional shell command run as a Nagios-style check each interval")
	checkUser := flag.String("check-user", "", "user to run the check command as")
	flag.Parse()

	logger := corelog.New(*logDest, 0, 0)
	defer logger.Sync()
	fatalf := func(format string, v ...any) {
		logger.Errorf(format, v...)
		logger.Sync()
		os.Exit(1)
	}

	reg := plugin.New()
	cache := openmetrics.NewCache()

	if err := reg.RegisterLog("debug_exporter", "corelog", logger.LogFunc, nil); err != nil {
		fatalf("register log: %v", err)
	}
	if err := reg.RegisterWrite("debug_exporter", "cache", cache.Write, nil); err != nil {
		fatalf("register write: %v", err)
	}
	if err := reg.RegisterRead("debug_exporter", "goroutines", readGoroutines, cdtime.FromDuration(*interval), nil); err != nil {
		fatalf("register read: %v", err)
	}
	if err := reg.RegisterSelfMetrics(cdtime.FromDuration(*interval)); err != nil {
		fatalf("register self metrics: %v", err)
	}
	if *check != "" {
		if err := registerCheck(reg, *check, *checkUser, cdtime.FromDuration(*interval)); err != nil {
			fatalf("register check: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := reg.Init(); err != nil {
		fatalf("init: %v", err)
	}
	reg.Start(ctx, runtime.NumCPU())

	mux := http.NewServeMux()
	mux.Handle("/metrics", cache)
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		reg.Shutdown(shutdownCtx)
	}()

	logger.Infof("serving OpenMetrics on %s/metrics", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fatalf("listen: %v", err)
	}
}

// readGoroutines is a minimal self-observation collector: one gauge
// sampled at each scheduled read.
func readGoroutines(ctx context.Context, emit plugin.Emitter, ud *plugin.UserData) error {
	f := metric.NewFamily("process_goroutines", metric.TypeGauge)
	if err := f.Append(metric.Gauge(runtime.NumGoroutine()), metric.LabelSet{}); err != nil {
		return err
	}
	return emit.Dispatch(f)
}

// registerCheck registers a read that runs command through the check
// runner and reports its Nagios status as a gauge. When user is set the
// check drops privileges (and refuses to resolve to root), so an init
// callback self-reports any missing setuid/setgid capability as a warning
// without aborting the registration.
func registerCheck(reg *plugin.Registry, command, user string, interval cdtime.Time) error {
	spec := subproc.ChildSpec{Path: "/bin/sh", Argv: []string{"sh", "-c", command}, User: user}
	allowRoot := user == ""
	read := func(ctx context.Context, emit plugin.Emitter, _ *plugin.UserData) error {
		e, err := checkrun.Run(ctx, spec, allowRoot, "debug_check", metric.LabelSet{})
		if err != nil {
			return err
		}
		f := metric.NewFamily("debug_check_status", metric.TypeGauge)
		if err := f.Append(metric.Gauge(statusGauge(e.Severity)), metric.LabelSet{}); err != nil {
			return err
		}
		return emit.Dispatch(f)
	}
	if err := reg.RegisterRead("debug_exporter", "check", read, interval, nil); err != nil {
		return err
	}
	if user == "" {
		return nil
	}
	return reg.RegisterInit("check_capabilities", func() error {
		reg.WarnMissingCapabilities("debug_exporter/check", plugin.CapSetUID, plugin.CapSetGID)
		return nil
	})
}

// statusGauge maps a check severity back onto the Nagios status codes the
// exported gauge carries.
func statusGauge(s notification.Severity) float64 {
	switch s {
	case notification.Okay:
		return float64(checkrun.StatusOK)
	case notification.Warning:
		return float64(checkrun.StatusWarning)
	default:
		return float64(checkrun.StatusFailure)
	}
}
