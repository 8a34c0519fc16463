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

// Package logtail implements rotation-aware log following: open a path,
// read whatever new lines have appeared, and transparently reopen the file
// across truncation (same inode, smaller size) and rotation (replaced
// inode), exactly the way logrotate-adjacent collectors like
// tail_csv/nginx/varnish/postfix expect.
package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoDataYet is returned by ReadLine when the file has no new complete
// line since the last read.
var ErrNoDataYet = errors.New("logtail: no data yet")

// Tail follows one file path, reopening it across rotation/truncation.
//
// Not safe for concurrent use; callers serialize ReadLine calls themselves
// (a read registration's own mutex already does this).
type Tail struct {
	path        string
	forceRewind bool

	f     *os.File
	r     *bufio.Reader
	ino   uint64
	size  int64
	seen  bool   // tail.stat ever populated, mirrors st_ino == 0 sentinel
	carry string // partial line kept until its newline arrives
}

// Open constructs a Tail for path. No file is opened yet; the first
// ReadLine call performs the initial open, seeking to the end of the file
// unless forceRewind is set (so a freshly (re)started collector does not
// replay a log file's entire history by default).
func Open(path string, forceRewind bool) *Tail {
	return &Tail{path: path, forceRewind: forceRewind}
}

// Close releases the underlying file handle, if open.
func (t *Tail) Close() error {
	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	t.r = nil
	return err
}

// reopen stats the path, and either seeks within the already-open file
// (same inode, handles truncation) or opens a fresh handle (first open, or
// the path now refers to a different inode). Returns reset=true when the
// read position moved back to offset 0 -- a truncation rewind or a rotation
// to a new inode -- which tells ReadLine any carried partial line belongs
// to the old content and must be surfaced before reading on.
func (t *Tail) reopen() (reset bool, err error) {
	fi, err := os.Stat(t.path)
	if err != nil {
		return false, fmt.Errorf("logtail: stat %s: %w", t.path, err)
	}
	ino := inodeOf(fi)

	if t.f != nil && ino == t.ino {
		if fi.Size() < t.size {
			if _, err := t.f.Seek(0, io.SeekStart); err != nil {
				t.f.Close()
				t.f = nil
				t.r = nil
				return false, fmt.Errorf("logtail: seek %s: %w", t.path, err)
			}
			t.r = bufio.NewReader(t.f)
			reset = true
		}
		t.size = fi.Size()
		return reset, nil
	}

	// Seek to EOF unless this is the very first open (t.seen == false) or
	// we are reopening the exact same inode after an error, and the caller
	// has not asked to rewind.
	seekEnd := !t.seen || ino == t.ino
	seekEnd = seekEnd && !t.forceRewind

	f, err := os.Open(t.path)
	if err != nil {
		return false, fmt.Errorf("logtail: open %s: %w", t.path, err)
	}
	if seekEnd {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return false, fmt.Errorf("logtail: seek %s: %w", t.path, err)
		}
	}

	reset = t.f != nil // an inode swap under an open handle is a rotation
	if t.f != nil {
		t.f.Close()
	}
	t.f = f
	t.r = bufio.NewReader(f)
	t.ino = ino
	t.size = fi.Size()
	t.seen = true
	return reset, nil
}

// ReadLine returns the next complete line (without its terminating
// newline), ErrNoDataYet if there is nothing new to read right now, or a
// non-nil error if the file could not be stat'd/opened/read.
//
// A trailing partial line is carried internally until its newline shows up
// on a later call, so an in-progress append is never split in two. Hitting
// EOF re-stats the path: a rotation or truncation reopens/rewinds the file
// (flushing the carried partial, which belongs to the old content) and the
// call reports ErrNoDataYet; the next call reads the fresh content.
func (t *Tail) ReadLine() (string, error) {
	if t.f == nil {
		if _, err := t.reopen(); err != nil {
			return "", err
		}
	}

	line, err := t.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		t.f.Close()
		t.f = nil
		t.r = nil
		return "", fmt.Errorf("logtail: read %s: %w", t.path, err)
	}
	if err == nil {
		out := t.carry + line
		t.carry = ""
		return trimNewline(out), nil
	}

	// EOF: keep any partial line, then re-stat the path to detect rotation
	// (new inode) or truncation (same inode, smaller size).
	t.carry += line
	reset, rerr := t.reopen()
	if rerr != nil {
		return "", rerr
	}
	if reset && t.carry != "" {
		out := t.carry
		t.carry = ""
		return out, nil
	}
	return "", ErrNoDataYet
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}
