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

// Package protobuf implements the length-delimited protobuf notification
// encoding: severity enum, time, name, repeated label, repeated
// annotation. The wire format below corresponds to:
//
//	message Notification {
//	  enum Severity { UNKNOWN = 0; OKAY = 1; WARNING = 2; FAILURE = 3; }
//	  Severity severity = 1;
//	  int64 time_unix_nano = 2;
//	  string name = 3;
//	  repeated Label label = 4;       // message Label { string name = 1; string value = 2; }
//	  repeated Label annotation = 5;
//	}
//
// Encoded directly with protowire rather than generated code: this module
// never invokes protoc, so the wire format is produced and parsed by hand
// against the same field numbers/types protoc-gen-go would have emitted.
package protobuf

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
)

const (
	fieldSeverity   = 1
	fieldTimeNano   = 2
	fieldName       = 3
	fieldLabel      = 4
	fieldAnnotation = 5

	labelFieldName  = 1
	labelFieldValue = 2
)

func severityToWire(s notification.Severity) int32 {
	switch s {
	case notification.Okay:
		return 1
	case notification.Warning:
		return 2
	case notification.Failure:
		return 3
	default:
		return 0
	}
}

func severityFromWire(v int32) notification.Severity {
	switch v {
	case 1:
		return notification.Okay
	case 2:
		return notification.Warning
	case 3:
		return notification.Failure
	default:
		return notification.Severity(-1)
	}
}

func appendLabelMessage(dst []byte, fieldNum protowire.Number, name, value string) []byte {
	var msg []byte
	msg = protowire.AppendTag(msg, labelFieldName, protowire.BytesType)
	msg = protowire.AppendString(msg, name)
	msg = protowire.AppendTag(msg, labelFieldValue, protowire.BytesType)
	msg = protowire.AppendString(msg, value)

	dst = protowire.AppendTag(dst, fieldNum, protowire.BytesType)
	dst = protowire.AppendBytes(dst, msg)
	return dst
}

// Encode serializes e into its protobuf wire form (not length-prefixed;
// callers that need framing use EncodeDelimited).
func Encode(e notification.Event) []byte {
	var out []byte
	out = protowire.AppendTag(out, fieldSeverity, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(int64(severityToWire(e.Severity))))

	out = protowire.AppendTag(out, fieldTimeNano, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(e.Time.ToUnixNano()))

	out = protowire.AppendTag(out, fieldName, protowire.BytesType)
	out = protowire.AppendString(out, e.Name)

	e.Labels.Range(func(l metric.Label) {
		out = appendLabelMessage(out, fieldLabel, l.Name, l.Value)
	})
	e.Annotations.Range(func(l metric.Label) {
		out = appendLabelMessage(out, fieldAnnotation, l.Name, l.Value)
	})
	return out
}

// EncodeDelimited prefixes Encode's output with a protobuf-style varint
// length, the framing notifyexec's subprocess sink uses so a reading child
// can tell where one notification ends and the next begins.
func EncodeDelimited(e notification.Event) []byte {
	body := Encode(e)
	out := protowire.AppendVarint(nil, uint64(len(body)))
	return append(out, body...)
}

// Decode parses the wire form produced by Encode. Unknown fields are
// skipped, matching protobuf's forward-compatibility rules.
func Decode(b []byte) (notification.Event, error) {
	var e notification.Event
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, fmt.Errorf("protobuf: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldSeverity:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("protobuf: bad severity: %w", protowire.ParseError(n))
			}
			e.Severity = severityFromWire(int32(v))
			b = b[n:]
		case fieldTimeNano:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("protobuf: bad time: %w", protowire.ParseError(n))
			}
			e.Time = cdtime.FromUnixNano(int64(v))
			b = b[n:]
		case fieldName:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return e, fmt.Errorf("protobuf: bad name: %w", protowire.ParseError(n))
			}
			e.Name = s
			b = b[n:]
		case fieldLabel, fieldAnnotation:
			msg, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, fmt.Errorf("protobuf: bad label: %w", protowire.ParseError(n))
			}
			name, value, err := decodeLabelMessage(msg)
			if err != nil {
				return e, err
			}
			if num == fieldLabel {
				e.Labels.Add(true, name, value)
			} else {
				e.Annotations.Add(true, name, value)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return e, fmt.Errorf("protobuf: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}

func decodeLabelMessage(b []byte) (name, value string, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", "", fmt.Errorf("protobuf: bad label tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case labelFieldName:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", "", fmt.Errorf("protobuf: bad label name: %w", protowire.ParseError(n))
			}
			name = s
			b = b[n:]
		case labelFieldValue:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", "", fmt.Errorf("protobuf: bad label value: %w", protowire.ParseError(n))
			}
			value = s
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", "", fmt.Errorf("protobuf: bad label field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return name, value, nil
}
