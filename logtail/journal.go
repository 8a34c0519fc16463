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

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ncollectd/ncollectd-core/subproc"
)

// Journal is the optional structured-log source: it follows the systemd
// journal by consuming the newline-delimited JSON export format
// ("journalctl --output=json --follow ...") through the subproc engine,
// which already owns the spawn/pump/reap mechanics for anything that must
// consume a log stream through a subprocess.
//
// Each journal entry becomes one ReadLine result, rendered as its MESSAGE
// field (journald's binary-safe fields arrive as a byte array rather than
// a string when they contain non-UTF-8 bytes; that form is decoded here
// too).
type Journal struct {
	spec subproc.ChildSpec

	child  *subproc.Child
	lines  chan string
	errs   chan error
	closed chan struct{}
}

// NewJournal builds a Journal that runs journalctl with extraArgs appended
// after the fixed --output=json --follow --no-pager flags (e.g.
// []string{"-u", "sshd.service"} to scope to one unit).
func NewJournal(extraArgs ...string) *Journal {
	argv := append([]string{"journalctl", "--output=json", "--follow", "--no-pager"}, extraArgs...)
	return &Journal{spec: subproc.ChildSpec{Path: "/usr/bin/journalctl", Argv: argv}}
}

type journalEntry struct {
	Message json.RawMessage `json:"MESSAGE"`
}

func decodeMessage(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	// journald emits non-UTF-8 fields as a JSON array of byte values
	// rather than a string; encoding/json would otherwise treat a []byte
	// destination as base64, so decode through []int first.
	var asInts []int
	if err := json.Unmarshal(raw, &asInts); err == nil {
		buf := make([]byte, len(asInts))
		for i, v := range asInts {
			buf[i] = byte(v)
		}
		return string(buf), nil
	}
	return "", fmt.Errorf("logtail: journal: unrecognized MESSAGE encoding: %s", string(raw))
}

// Start spawns the journalctl child and begins demultiplexing its stdout
// in a background goroutine, one decoded line per journal entry.
func (j *Journal) Start(ctx context.Context) error {
	child, err := subproc.ForkExecChild(ctx, j.spec, true)
	if err != nil {
		return fmt.Errorf("logtail: start journal: %w", err)
	}
	j.child = child
	j.lines = make(chan string, 256)
	j.errs = make(chan error, 1)
	j.closed = make(chan struct{})

	go j.pump()
	return nil
}

func (j *Journal) pump() {
	defer close(j.lines)
	scanner := bufio.NewScanner(j.child.Stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry journalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // malformed entry: skip, matching lineproto's "malformed lines do not abort the stream"
		}
		msg, err := decodeMessage(entry.Message)
		if err != nil {
			continue
		}
		select {
		case j.lines <- msg:
		case <-j.closed:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case j.errs <- err:
		default:
		}
	}
}

// ReadLine returns the next decoded journal message, ErrNoDataYet if none
// is buffered right now, or a terminal error once the journalctl child has
// exited.
func (j *Journal) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-j.lines:
		if !ok {
			select {
			case err := <-j.errs:
				return "", err
			default:
				return "", io.EOF
			}
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		return "", ErrNoDataYet
	}
}

// Close terminates the journalctl child and releases its pipes.
func (j *Journal) Close() error {
	if j.child == nil {
		return nil
	}
	close(j.closed)
	j.child.Stdin.Close()
	_, err := j.child.Wait()
	return err
}
