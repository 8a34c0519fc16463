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

// Package ioutil2 provides the safe read/write loops the subprocess and
// log-tail engines build on: retry-on-EINTR/EAGAIN reads and writes that
// never return a short count without error.
package ioutil2

import (
	"errors"
	"io"
)

// ErrShortRead is returned by ReadExact when the stream is closed (io.EOF)
// before the requested number of bytes have been read.
var ErrShortRead = errors.New("ioutil2: short read before EOF")

// ReadExact reads exactly len(buf) bytes, looping across interrupted and
// short reads. A zero-byte read before the buffer is full is an error.
func ReadExact(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return ErrShortRead
		}
		return err
	}
	if n != len(buf) {
		return ErrShortRead
	}
	return nil
}

// WriteAll writes the whole buffer, looping on short writes.
func WriteAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
	}
	return nil
}
