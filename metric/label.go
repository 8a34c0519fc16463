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

// Package metric implements the in-process metric data model shared by
// every collector: label sets, value variants, and metric families.
package metric

import (
	"regexp"
	"sort"
)

// labelNameRE is the [A-Za-z_][A-Za-z0-9_]* label name grammar.
var labelNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidLabelName reports whether name is a syntactically valid label name.
func ValidLabelName(name string) bool {
	return labelNameRE.MatchString(name)
}

// Label is a single (name, value) pair.
type Label struct {
	Name  string
	Value string
}

// LabelSet is a deduplicated, name-keyed collection of labels, kept sorted
// by name so that iteration order is deterministic and Get is a binary
// search rather than a linear scan.
type LabelSet struct {
	labels []Label
}

// NewLabelSet builds a LabelSet from a list of pairs, applying the same
// add/overwrite/remove-on-empty semantics as repeated calls to Add.
func NewLabelSet(pairs ...Label) LabelSet {
	var ls LabelSet
	for _, p := range pairs {
		ls.Add(true, p.Name, p.Value)
	}
	return ls
}

func (ls *LabelSet) search(name string) (int, bool) {
	i := sort.Search(len(ls.labels), func(i int) bool {
		return ls.labels[i].Name >= name
	})
	if i < len(ls.labels) && ls.labels[i].Name == name {
		return i, true
	}
	return i, false
}

// Get returns the value for name and whether it was present.
func (ls *LabelSet) Get(name string) (string, bool) {
	i, ok := ls.search(name)
	if !ok {
		return "", false
	}
	return ls.labels[i].Value, true
}

// Add inserts or updates name=value. An empty value removes the pair;
// overwrite=false leaves an existing value untouched.
func (ls *LabelSet) Add(overwrite bool, name, value string) {
	if value == "" {
		ls.Remove(name)
		return
	}
	i, ok := ls.search(name)
	if ok {
		if overwrite {
			ls.labels[i].Value = value
		}
		return
	}
	ls.labels = append(ls.labels, Label{})
	copy(ls.labels[i+1:], ls.labels[i:])
	ls.labels[i] = Label{Name: name, Value: value}
}

// Remove deletes name if present. A no-op if absent.
func (ls *LabelSet) Remove(name string) {
	i, ok := ls.search(name)
	if !ok {
		return
	}
	ls.labels = append(ls.labels[:i], ls.labels[i+1:]...)
}

// AddSet folds other into ls, applying Add pairwise in other's (sorted)
// order so the result is deterministic.
func (ls *LabelSet) AddSet(overwrite bool, other LabelSet) {
	for _, l := range other.labels {
		ls.Add(overwrite, l.Name, l.Value)
	}
}

// Len returns the number of labels.
func (ls LabelSet) Len() int { return len(ls.labels) }

// Range calls f for each label in deterministic (lexicographic by name)
// order. f must not mutate ls.
func (ls LabelSet) Range(f func(Label)) {
	for _, l := range ls.labels {
		f(l)
	}
}

// Slice returns a copy of the underlying labels, in order.
func (ls LabelSet) Slice() []Label {
	out := make([]Label, len(ls.labels))
	copy(out, ls.labels)
	return out
}

// Clone produces a structurally equal independent copy.
func (ls LabelSet) Clone() LabelSet {
	return LabelSet{labels: ls.Slice()}
}

// Equal reports whether two label sets contain the same pairs.
func (ls LabelSet) Equal(other LabelSet) bool {
	if len(ls.labels) != len(other.labels) {
		return false
	}
	for i, l := range ls.labels {
		if other.labels[i] != l {
			return false
		}
	}
	return true
}

// Key renders a stable string suitable for use as a map key for dedup and
// matching purposes (e.g. notification dedup, in-flight guards).
func (ls LabelSet) Key() string {
	var out []byte
	for _, l := range ls.labels {
		out = append(out, l.Name...)
		out = append(out, '=')
		out = append(out, l.Value...)
		out = append(out, ',')
	}
	return string(out)
}
