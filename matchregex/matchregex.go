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

// Package matchregex turns tailed log lines into metrics by running each
// line through a set of regex rules. The parse is stateful: counter rules
// accumulate across lines and histogram rules fold each matched value into
// a per-series distribution, so a rule's emitted value reflects everything
// it has seen, not just the current line. It deliberately uses Go's regexp
// (RE2) instead of POSIX extended regular expressions: no backreferences,
// but linear-time matching with no pathological-input blowup, which
// matters more for a daemon parsing untrusted log lines than
// backreference support does.
package matchregex

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/metric/histogram"
)

// ErrUnsupportedType is returned at compile time when a rule's Type cannot
// be produced from regex extraction.
var ErrUnsupportedType = errors.New("matchregex: type does not support regex extraction")

// LabelFrom captures one label whose value comes from a regex submatch.
type LabelFrom struct {
	Key       string
	ValueFrom int
}

// Op selects how a counter rule folds a match into its accumulated state.
type Op int

const (
	// OpSet takes the matched value verbatim (gauge/unknown rules, and
	// counter rules whose source already reports a running total).
	OpSet Op = iota
	// OpAdd adds the matched value to the rule's running counter.
	OpAdd
	// OpInc adds one per matching line; no value capture is required.
	OpInc
)

// Rule describes one "metric" block: a regex to test a line against, and
// where in its submatches the metric name, value, timestamp and any extra
// labels live. Index fields use -1 to mean "not set".
type Rule struct {
	Regex        string
	ExcludeRegex string

	Metric       string
	MetricPrefix string
	MetricFrom   int // submatch index, or -1 to use Metric literally
	Type         metric.Type
	Op           Op // counter folding, ignored for non-counter types
	Help         string

	Labels     metric.LabelSet
	LabelsFrom []LabelFrom

	ValueFrom int // submatch index holding the metric value; -1 only with OpInc
	TimeFrom  int // -1 to use the current time instead of a matched one

	// Buckets are the histogram bounds for a histogram-typed rule; empty
	// picks the default latency-style ladder.
	Buckets []float64

	re    *regexp.Regexp
	exre  *regexp.Regexp
	state map[string]*series
}

// series is one (metric name, label set) accumulation owned by a rule.
type series struct {
	counter uint64
	hist    *histogram.Histogram
}

func (r *Rule) series(key string) *series {
	st, ok := r.state[key]
	if !ok {
		st = &series{}
		if r.Type == metric.TypeHistogram {
			bounds := r.Buckets
			if len(bounds) == 0 {
				bounds = defaultBuckets
			}
			st.hist = histogram.New(bounds)
		}
		r.state[key] = st
	}
	return st
}

// defaultBuckets covers latency-style values from milliseconds to minutes.
var defaultBuckets = []float64{0.001, 0.01, 0.1, 1, 10, 60, 600}

// Result is one metric produced by a line match.
type Result struct {
	FamilyName string
	Help       string
	Type       metric.Type
	Labels     metric.LabelSet
	Value      metric.Value
	Time       cdtime.Time
}

// Set is a compiled collection of rules sharing a metric prefix and base
// labels, equivalent to one "match regex { ... }" config block.
type Set struct {
	MetricPrefix string
	Labels       metric.LabelSet
	Rules        []*Rule
}

// New compiles every rule and returns a ready-to-use Set.
func New(prefix string, labels metric.LabelSet, rules ...*Rule) (*Set, error) {
	for i, r := range rules {
		if err := r.compile(); err != nil {
			return nil, fmt.Errorf("matchregex: rule %d: %w", i, err)
		}
	}
	return &Set{MetricPrefix: prefix, Labels: labels, Rules: rules}, nil
}

func (r *Rule) compile() error {
	if r.Regex == "" {
		return errors.New("'regex' missing in 'metric' block")
	}
	if r.Metric == "" && r.MetricFrom < 0 {
		return errors.New("'metric' or 'metric-from' missing in 'metric' block")
	}
	if r.Type == metric.TypeUnknown {
		return errors.New("'type' missing in 'metric' block")
	}
	if r.Type == metric.TypeGaugeHistogram {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, r.Type)
	}
	incOnly := r.Type == metric.TypeCounter && r.Op == OpInc
	if r.ValueFrom < 0 && !incOnly {
		return errors.New("'value-from' missing in 'metric' block")
	}
	r.state = make(map[string]*series)

	re, err := regexp.Compile(r.Regex)
	if err != nil {
		return fmt.Errorf("compiling regex %q: %w", r.Regex, err)
	}
	r.re = re

	if r.ExcludeRegex != "" {
		exre, err := regexp.Compile(r.ExcludeRegex)
		if err != nil {
			return fmt.Errorf("compiling exclude-regex %q: %w", r.ExcludeRegex, err)
		}
		r.exre = exre
	}
	return nil
}

// validSubmatches returns how many leading submatches (group 0 = the whole
// match, onward) are present and non-empty: it stops counting at the first
// absent or empty group rather than counting every group the pattern
// declares.
func validSubmatches(loc []int) int {
	n := 0
	for i := 0; i+1 < len(loc); i += 2 {
		so, eo := loc[i], loc[i+1]
		if so < 0 || eo < 0 || so >= eo {
			break
		}
		n++
	}
	return n
}

func submatch(line string, loc []int, idx int) (string, bool) {
	if idx < 0 || 2*idx+1 >= len(loc) {
		return "", false
	}
	so, eo := loc[2*idx], loc[2*idx+1]
	if so < 0 || eo < 0 || so >= eo {
		return "", false
	}
	return line[so:eo], true
}

// Match runs line against every rule in the set, in order, and returns one
// Result per rule that matches and whose required submatches are all
// present. now is used for rules that don't set TimeFrom.
func (s *Set) Match(line string, now cdtime.Time) ([]Result, error) {
	var out []Result
	for _, r := range s.Rules {
		res, ok, err := r.match(s, line, now)
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *Rule) match(s *Set, line string, now cdtime.Time) (Result, bool, error) {
	if r.exre != nil && r.exre.MatchString(line) {
		return Result{}, false, nil
	}

	loc := r.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return Result{}, false, nil
	}
	total := validSubmatches(loc)

	needsValue := !(r.Type == metric.TypeCounter && r.Op == OpInc)
	if needsValue && r.ValueFrom >= total {
		return Result{}, false, nil
	}
	if r.MetricFrom >= 0 && r.MetricFrom >= total {
		return Result{}, false, nil
	}
	if r.TimeFrom >= 0 && r.TimeFrom >= total {
		return Result{}, false, nil
	}

	var valStr string
	if needsValue {
		var ok bool
		valStr, ok = submatch(line, loc, r.ValueFrom)
		if !ok {
			return Result{}, false, nil
		}
	}

	name := s.MetricPrefix + r.MetricPrefix
	if r.MetricFrom >= 0 {
		mname, _ := submatch(line, loc, r.MetricFrom)
		name += mname
	} else {
		name += r.Metric
	}

	labels := metric.NewLabelSet()
	labels.AddSet(true, s.Labels)
	labels.AddSet(true, r.Labels)
	for _, lf := range r.LabelsFrom {
		if lf.ValueFrom >= total {
			continue
		}
		if lv, ok := submatch(line, loc, lf.ValueFrom); ok {
			labels.Add(true, lf.Key, lv)
		}
	}

	val, err := r.fold(name, labels, valStr)
	if err != nil {
		return Result{}, false, err
	}

	t := now
	if r.TimeFrom >= 0 {
		if tStr, ok := submatch(line, loc, r.TimeFrom); ok {
			if f, err := strconv.ParseFloat(tStr, 64); err == nil {
				t = cdtime.FromFloat64(f)
			}
		}
	}

	return Result{
		FamilyName: name,
		Help:       r.Help,
		Type:       r.Type,
		Labels:     labels,
		Value:      val,
		Time:       t,
	}, true, nil
}

// fold turns the matched value string into this rule's emitted Value,
// updating the per-series accumulation for counters and histograms.
func (r *Rule) fold(name string, labels metric.LabelSet, valStr string) (metric.Value, error) {
	switch r.Type {
	case metric.TypeGauge:
		f, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, fmt.Errorf("matchregex: parse value %q: %w", valStr, err)
		}
		return metric.Gauge(f), nil
	case metric.TypeUnknown:
		f, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, fmt.Errorf("matchregex: parse value %q: %w", valStr, err)
		}
		return metric.Unknown(f), nil
	case metric.TypeCounter:
		st := r.series(name + "\x00" + labels.Key())
		switch r.Op {
		case OpInc:
			st.counter++
		case OpAdd:
			u, err := strconv.ParseUint(valStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("matchregex: parse value %q: %w", valStr, err)
			}
			st.counter += u
		default:
			u, err := strconv.ParseUint(valStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("matchregex: parse value %q: %w", valStr, err)
			}
			st.counter = u
		}
		return metric.Counter(st.counter), nil
	case metric.TypeHistogram:
		f, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, fmt.Errorf("matchregex: parse value %q: %w", valStr, err)
		}
		st := r.series(name + "\x00" + labels.Key())
		st.hist.Update(f)
		return metric.Histogram{Histogram: st.hist.Clone()}, nil
	case metric.TypeInfo:
		return metric.Info{}, nil
	case metric.TypeStateSet:
		v := valStr == "1" || valStr == "true"
		return metric.StateSet{valStr: v}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, r.Type)
	}
}
