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

// Package notifydispatch implements notification fan-out: match-gated
// sinks, each with a dedup guard and a delivery executor. The matcher is a
// glob+regex+AND/NOT predicate tree built once from config and walked
// per event.
package notifydispatch

import (
	"path"
	"regexp"

	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
)

// LabelMatch is one label predicate: either Glob (path.Match syntax) or
// Regex may be set, never both. An empty LabelMatch never matches (callers
// build these from config, where a value is always required).
type LabelMatch struct {
	Name  string
	Glob  string
	Regex string

	re *regexp.Regexp
}

func (lm *LabelMatch) compile() error {
	if lm.Regex == "" {
		return nil
	}
	re, err := regexp.Compile(lm.Regex)
	if err != nil {
		return err
	}
	lm.re = re
	return nil
}

func (lm *LabelMatch) matches(labels metric.LabelSet) bool {
	v, ok := labels.Get(lm.Name)
	if !ok {
		return false
	}
	if lm.re != nil {
		return lm.re.MatchString(v)
	}
	if lm.Glob != "" {
		ok, err := path.Match(lm.Glob, v)
		return err == nil && ok
	}
	return false
}

// MetricMatch combines a name pattern with label predicates using AND
// semantics across fields, plus an explicit Not list for exclusion.
type MetricMatch struct {
	NameGlob  string
	NameRegex string
	Labels    []LabelMatch
	Not       []LabelMatch

	nameRE *regexp.Regexp
}

// Compile prepares a MetricMatch's regular expressions for use. Nil
// receivers are valid and match everything (an unset sink filter).
func (m *MetricMatch) Compile() error {
	if m == nil {
		return nil
	}
	if m.NameRegex != "" {
		re, err := regexp.Compile(m.NameRegex)
		if err != nil {
			return err
		}
		m.nameRE = re
	}
	for i := range m.Labels {
		if err := m.Labels[i].compile(); err != nil {
			return err
		}
	}
	for i := range m.Not {
		if err := m.Not[i].compile(); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether a notification's (name, label_set) satisfies m.
// A nil MetricMatch matches everything: an unset sink filter accepts every
// event.
func (m *MetricMatch) Matches(name string, labels metric.LabelSet) bool {
	if m == nil {
		return true
	}
	if m.NameGlob != "" {
		ok, err := path.Match(m.NameGlob, name)
		if err != nil || !ok {
			return false
		}
	}
	if m.nameRE != nil && !m.nameRE.MatchString(name) {
		return false
	}
	for _, lm := range m.Labels {
		if !lm.matches(labels) {
			return false
		}
	}
	for _, lm := range m.Not {
		if lm.matches(labels) {
			return false
		}
	}
	return true
}

// MatchesEvent is a convenience wrapper over a notification.Event's own
// (Name, Labels) pair.
func (m *MetricMatch) MatchesEvent(e notification.Event) bool {
	return m.Matches(e.Name, e.Labels)
}
