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

// Package filter implements the per-registration filter chain: a tree of
// predicate+action nodes evaluated per-metric on every dispatched family.
// Filters are immutable once built, so no locking is needed on the read
// path -- only the Builder below ever mutates a tree, and it is discarded
// once Build is called.
package filter

import "github.com/ncollectd/ncollectd-core/metric"

// Predicate decides whether a rule's Action applies to one metric.
type Predicate func(f *metric.Family, m *metric.Metric) bool

// Action is the mutation or decision a matching rule performs. Returning
// false drops the metric from the family.
type Action func(f *metric.Family, m *metric.Metric) bool

// node is one predicate+action rule plus the children it falls through to
// when its predicate matches (mirroring the C "filter tree" shape: a chain
// of if/then rules, not a generic expression tree).
type node struct {
	match    Predicate
	action   Action
	children []*node
}

// Chain is an immutable tree of filter nodes, built once via Builder.Build
// and then walked read-only on every dispatch.
type Chain struct {
	root []*node
}

// Builder assembles a Chain. It is not safe for concurrent use; build the
// whole tree on one goroutine, then call Build and share the result.
type Builder struct {
	root []*node
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Rule appends a top-level rule: when match is satisfied, action runs; if
// action returns true (metric kept) and there are children, they evaluate
// in turn against the same metric.
func (b *Builder) Rule(match Predicate, action Action, children ...*Builder) *Builder {
	n := &node{match: match, action: action}
	for _, c := range children {
		n.children = append(n.children, c.root...)
	}
	b.root = append(b.root, n)
	return b
}

// Build freezes the tree into an immutable Chain.
func (b *Builder) Build() *Chain {
	return &Chain{root: append([]*node(nil), b.root...)}
}

// Apply implements metric.Filter: it walks the chain for every metric in
// f, dropping metrics whose matching rule's action rejects them.
func (c *Chain) Apply(f *metric.Family) {
	if c == nil {
		return
	}
	kept := f.Metrics[:0]
	for i := range f.Metrics {
		m := &f.Metrics[i]
		if walk(c.root, f, m) {
			kept = append(kept, *m)
		}
	}
	f.Metrics = kept
}

func walk(nodes []*node, f *metric.Family, m *metric.Metric) bool {
	for _, n := range nodes {
		if !n.match(f, m) {
			continue
		}
		if !n.action(f, m) {
			return false
		}
		if len(n.children) > 0 && !walk(n.children, f, m) {
			return false
		}
	}
	return true
}

// MatchAll is a Predicate that always matches, for a root catch-all rule.
func MatchAll(*metric.Family, *metric.Metric) bool { return true }

// MatchFamilyName matches metrics whose family name equals name.
func MatchFamilyName(name string) Predicate {
	return func(f *metric.Family, _ *metric.Metric) bool { return f.Name == name }
}

// MatchLabel matches metrics carrying label name=value.
func MatchLabel(name, value string) Predicate {
	return func(_ *metric.Family, m *metric.Metric) bool {
		v, ok := m.Labels.Get(name)
		return ok && v == value
	}
}

// Drop is an Action that always rejects the metric.
func Drop(*metric.Family, *metric.Metric) bool { return false }

// Keep is an Action that always accepts the metric unchanged.
func Keep(*metric.Family, *metric.Metric) bool { return true }

// Relabel returns an Action that upserts name=value on the metric's labels
// and keeps it.
func Relabel(name, value string) Action {
	return func(_ *metric.Family, m *metric.Metric) bool {
		m.Labels.Add(true, name, value)
		return true
	}
}

// RewriteName returns an Action that renames the owning family. Because
// every metric shares the family, the rename is idempotent across repeated
// calls within one Apply pass.
func RewriteName(name string) Action {
	return func(f *metric.Family, _ *metric.Metric) bool {
		f.Name = name
		return true
	}
}
