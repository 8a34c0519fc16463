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

package logtail

import "context"

// Source abstracts one line-producing log origin: a plain rotation-aware
// file (TailSource, wrapping Tail) or a structured-log source (Journal).
// Both a read callback that tails a text file and one that follows the
// systemd journal drive the same lineproto.ParseLine-based parse loop
// through this one interface, regardless of backing transport.
type Source interface {
	// Start prepares the source for reading (opening a file, starting a
	// journal reader subprocess). Calling Start more than once is a no-op.
	Start(ctx context.Context) error
	// ReadLine returns the next available line, ErrNoDataYet if nothing
	// new is ready right now, or a non-nil error.
	ReadLine(ctx context.Context) (string, error)
	// Close releases the source's resources.
	Close() error
}

// TailSource adapts a Tail to the Source interface.
type TailSource struct {
	t *Tail
}

// NewTailSource wraps an already-constructed Tail.
func NewTailSource(t *Tail) *TailSource { return &TailSource{t: t} }

// Start is a no-op: Tail opens lazily on its first ReadLine, which already
// matches Source's "Start then repeatedly ReadLine" contract.
func (s *TailSource) Start(ctx context.Context) error { return nil }

// ReadLine delegates to the wrapped Tail, ignoring ctx since file reads
// here never block (they return ErrNoDataYet instead).
func (s *TailSource) ReadLine(ctx context.Context) (string, error) {
	return s.t.ReadLine()
}

// Close releases the wrapped Tail's file handle.
func (s *TailSource) Close() error { return s.t.Close() }
