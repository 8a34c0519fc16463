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

// Package config implements the resolved configuration tree the core
// consumes: items of typed values and children, each carrying its source
// location for error reporting. This package does not implement a grammar
// of its own -- it is the shape a YAML document (or any other decoder) is
// resolved into before collectors see it.
package config

import "fmt"

// SourceLocation pinpoints where an Item came from, for diagnostics.
type SourceLocation struct {
	File string
	Line int
}

func (s SourceLocation) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// ValueKind tags the type carried by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBoolean
)

// Value is one positional argument of an Item: a string, a number, or a
// boolean.
type Value struct {
	Kind ValueKind

	Str  string
	Num  float64
	Bool bool
}

func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func Boolean(b bool) Value   { return Value{Kind: KindBoolean, Bool: b} }

// Item is one node of the resolved configuration tree: a key, its
// positional values, and its children.
type Item struct {
	Key      string
	Values   []Value
	Children []*Item
	Source   SourceLocation
}

// Child returns the first direct child whose key matches name
// case-insensitively (config keys are case-insensitive), and whether one
// was found.
func (i *Item) Child(name string) (*Item, bool) {
	for _, c := range i.Children {
		if equalFold(c.Key, name) {
			return c, true
		}
	}
	return nil, false
}

// AllChildren returns every direct child whose key matches name, in
// document order -- used for repeatable blocks like "label" or "receiver".
func (i *Item) AllChildren(name string) []*Item {
	var out []*Item
	for _, c := range i.Children {
		if equalFold(c.Key, name) {
			out = append(out, c)
		}
	}
	return out
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
