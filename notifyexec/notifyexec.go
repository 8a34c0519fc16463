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

// Package notifyexec implements the subprocess notification sink: spawn a
// child per notification via package subproc, deliver the event in one of
// four formats, and guard against pileup with a single-in-flight gate per
// sink.
package notifyexec

import (
	"context"
	"fmt"

	"github.com/ncollectd/ncollectd-core/format/env"
	"github.com/ncollectd/ncollectd-core/format/json"
	"github.com/ncollectd/ncollectd-core/format/protobuf"
	"github.com/ncollectd/ncollectd-core/format/text"
	"github.com/ncollectd/ncollectd-core/notification"
	"github.com/ncollectd/ncollectd-core/subproc"
)

// Format selects the encoding used to deliver a notification to the child.
type Format int

const (
	// Text writes the canonical "name{labels}{annotations} severity
	// timestamp" line to the child's stdin.
	Text Format = iota
	// JSON writes the JSON encoding to the child's stdin.
	JSON
	// Protobuf writes the length-delimited protobuf encoding to the
	// child's stdin.
	Protobuf
	// Env encodes the notification as NOTIFICATION_* environment
	// variables; the child receives no stdin in this mode.
	Env
)

// Sink spawns spec per delivered notification, in the requested Format. A
// Sink is safe for concurrent Deliver calls; the reentrancy guard is
// per-sink.
type Sink struct {
	Spec      subproc.ChildSpec
	Format    Format
	AllowRoot bool

	guard chan struct{}
}

// New constructs a Sink. The guard starts unlocked.
func New(spec subproc.ChildSpec, format Format) *Sink {
	return &Sink{Spec: spec, Format: format, guard: make(chan struct{}, 1)}
}

// Deliver spawns the configured child and delivers e to it, returning once
// the child has exited. If a prior Deliver on this sink has not finished,
// Deliver returns ErrBusy immediately rather than piling up children.
func (s *Sink) Deliver(ctx context.Context, e notification.Event) error {
	select {
	case s.guard <- struct{}{}:
	default:
		return ErrBusy
	}
	defer func() { <-s.guard }()

	spec := s.Spec
	if s.Format == Env {
		envp, err := env.Encode(e, spec.Envp)
		if err != nil {
			return fmt.Errorf("notifyexec: encode env: %w", err)
		}
		spec.Envp = envp
	}

	child, err := subproc.ForkExecChild(ctx, spec, s.AllowRoot)
	if err != nil {
		return fmt.Errorf("notifyexec: spawn: %w", err)
	}

	if s.Format != Env {
		payload, err := s.encode(e)
		if err != nil {
			child.Stdin.Close()
			child.Wait()
			return err
		}
		if _, err := child.Stdin.Write(payload); err != nil {
			child.Stdin.Close()
			child.Wait()
			return fmt.Errorf("notifyexec: write stdin: %w", err)
		}
	}
	child.Stdin.Close()

	var stderrLines []string
	child.PumpOutput(nil, func(line string) {
		stderrLines = append(stderrLines, line)
	})

	status, err := child.Wait()
	if err != nil {
		return fmt.Errorf("notifyexec: wait: %w", err)
	}
	if status.Code != 0 {
		return fmt.Errorf("%w: exit %d: %v", ErrChildFailed, status.Code, stderrLines)
	}
	return nil
}

// Exec adapts Sink.Deliver to the notifydispatch.Sink.Exec shape
// (func(notification.Event) error), using context.Background() since the
// dispatcher's call site has none to thread through.
func (s *Sink) Exec(e notification.Event) error {
	return s.Deliver(context.Background(), e)
}

func (s *Sink) encode(e notification.Event) ([]byte, error) {
	switch s.Format {
	case Text:
		line, err := text.Encode(e)
		if err != nil {
			return nil, err
		}
		return append([]byte(line), '\n'), nil
	case JSON:
		return json.Encode(e)
	case Protobuf:
		return protobuf.EncodeDelimited(e), nil
	default:
		return nil, fmt.Errorf("notifyexec: unknown format %d", s.Format)
	}
}
