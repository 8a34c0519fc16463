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

// Package strbuf implements a growable byte-buffer writer used wherever
// this module assembles wire text (the line protocol, notification text
// formatting, env-var encoding). Every mutator returns an error instead of
// silently truncating: callers that must not lose data on buffer
// over-allocation failure check it.
package strbuf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTooLarge is returned when growing the buffer would exceed MaxLen.
var ErrTooLarge = errors.New("strbuf: buffer would exceed maximum length")

// Buffer is a growable byte buffer. The zero value is ready to use with no
// size limit.
type Buffer struct {
	buf    []byte
	MaxLen int // 0 means unlimited
}

func (b *Buffer) checkRoom(n int) error {
	if b.MaxLen > 0 && len(b.buf)+n > b.MaxLen {
		return ErrTooLarge
	}
	return nil
}

// PutString appends s verbatim.
func (b *Buffer) PutString(s string) error {
	if err := b.checkRoom(len(s)); err != nil {
		return err
	}
	b.buf = append(b.buf, s...)
	return nil
}

// PutByte appends a single byte.
func (b *Buffer) PutByte(c byte) error {
	if err := b.checkRoom(1); err != nil {
		return err
	}
	b.buf = append(b.buf, c)
	return nil
}

// PutUint appends the decimal representation of v.
func (b *Buffer) PutUint(v uint64) error {
	return b.PutString(fmt.Sprintf("%d", v))
}

// PutStringUpper appends strings.ToUpper(s).
func (b *Buffer) PutStringUpper(s string) error {
	return b.PutString(strings.ToUpper(s))
}

// PutEscaped appends s with every byte in chars escaped by prefixing it
// with escape. This is used for both the line-protocol label quoting
// ("\"" and "\\") and the notification text formatter.
func (b *Buffer) PutEscaped(s string, chars string, escape byte) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(chars, c) >= 0 {
			if err := b.PutByte(escape); err != nil {
				return err
			}
		}
		if err := b.PutByte(c); err != nil {
			return err
		}
	}
	return nil
}

// Printf appends a formatted string.
func (b *Buffer) Printf(format string, args ...any) error {
	return b.PutString(fmt.Sprintf(format, args...))
}

// Reset empties the buffer without releasing its backing array.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}

// Len returns the number of bytes currently buffered.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// String returns the buffered bytes as a string (copies).
func (b *Buffer) String() string {
	return string(b.buf)
}

// Bytes returns the buffered bytes (no copy; callers must not retain it
// across a further mutation).
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Take returns the buffered bytes and resets the buffer, moving ownership
// of the backing slice to the caller.
func (b *Buffer) Take() []byte {
	out := b.buf
	b.buf = nil
	return out
}
