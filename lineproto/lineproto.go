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

// Package lineproto parses the line-oriented text protocol exec-style
// collectors emit on stdout: one metric per line, grouped into families by
// an accumulator that flushes whenever the header changes. It also
// understands the legacy PUTVAL/PUTNOTIF directive form.
package lineproto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
)

// NotificationDispatcher is implemented by whatever owns PUTNOTIF delivery;
// kept separate from metric.Dispatcher since a family's write path and a
// notification's dispatch path are different subsystems.
type NotificationDispatcher interface {
	DispatchNotification(e notification.Event) error
}

// WarnFunc receives one call per malformed line, with the offending text
// and the reason it didn't parse. Never invoked for blank or comment
// lines, which are silently ignored.
type WarnFunc func(line string, err error)

// Accumulator groups consecutive same-name metrics into one metric.Family,
// flushing whenever the name changes. Not safe for concurrent use; callers
// serialize access the same way a read registration already serializes its
// own ReadFunc.
type Accumulator struct {
	Notify NotificationDispatcher
	Warn   WarnFunc

	header string
	fam    *metric.Family
}

// NewAccumulator returns an empty accumulator. Notify may be nil, in which
// case PUTNOTIF lines are treated as malformed.
func NewAccumulator(notify NotificationDispatcher, warn WarnFunc) *Accumulator {
	return &Accumulator{Notify: notify, Warn: warn}
}

// Flush dispatches any in-progress family. Callers must call this after the
// owning subprocess/tail source reaches EOF, or buffered metrics are lost.
func (a *Accumulator) Flush(disp metric.Dispatcher, filt metric.Filter, now, interval cdtime.Time) error {
	if a.fam == nil {
		return nil
	}
	fam := a.fam
	a.fam = nil
	a.header = ""
	return fam.Dispatch(disp, filt, now, interval)
}

func (a *Accumulator) warn(line string, err error) {
	if a.Warn != nil {
		a.Warn(line, err)
	}
}

// ParseLine parses one line of input, feeding any produced metric into acc
// and dispatching notifications (PUTNOTIF) directly to acc.Notify.
// Malformed input logs a warning via acc.Warn and returns nil: a bad line
// never aborts the stream and never flushes the accumulator. A non-nil
// error return means dispatch itself failed (e.g. a header change forced a
// flush that a write sink rejected).
func ParseLine(acc *Accumulator, disp metric.Dispatcher, filt metric.Filter, prefix string,
	baseLabels metric.LabelSet, defaultTime, defaultInterval cdtime.Time, line string) error {

	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	if directive, rest, ok := cutDirective(trimmed); ok {
		switch directive {
		case "PUTVAL":
			return parsePutval(acc, disp, filt, prefix, baseLabels, defaultTime, defaultInterval, line, rest)
		case "PUTNOTIF":
			return parsePutnotif(acc, line, rest, defaultTime)
		}
	}

	name, labelPairs, rest, err := parseHeader(trimmed)
	if err != nil {
		acc.warn(line, err)
		return nil
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		acc.warn(line, fmt.Errorf("lineproto: missing value"))
		return nil
	}
	val, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		acc.warn(line, fmt.Errorf("lineproto: bad value %q: %w", fields[0], err))
		return nil
	}
	t := defaultTime
	if len(fields) >= 2 {
		if tf, terr := strconv.ParseFloat(fields[1], 64); terr == nil {
			t = cdtime.FromFloat64(tf)
		} else {
			acc.warn(line, fmt.Errorf("lineproto: bad timestamp %q: %w", fields[1], terr))
		}
	}

	labels := baseLabels.Clone()
	for _, l := range labelPairs {
		labels.Add(true, l.Name, l.Value)
	}

	fullName := prefix + name
	if err := acc.ensureFamily(disp, filt, defaultTime, defaultInterval, fullName); err != nil {
		return err
	}
	m := metric.Unknown(val)
	if err := acc.fam.Append(m, labels); err != nil {
		acc.warn(line, err)
		return nil
	}
	acc.fam.Metrics[len(acc.fam.Metrics)-1].Time = t
	return nil
}

// ensureFamily flushes the current family if fullName starts a new one.
func (a *Accumulator) ensureFamily(disp metric.Dispatcher, filt metric.Filter, now, interval cdtime.Time, fullName string) error {
	if a.fam != nil && a.header == fullName {
		return nil
	}
	if err := a.Flush(disp, filt, now, interval); err != nil {
		return err
	}
	a.header = fullName
	a.fam = metric.NewFamily(fullName, metric.TypeUnknown)
	return nil
}

// cutDirective recognizes a leading "PUTVAL "/"PUTNOTIF " legacy directive
// keyword, case insensitively.
func cutDirective(line string) (directive, rest string, ok bool) {
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return "", "", false
	}
	word := strings.ToUpper(line[:sp])
	if word != "PUTVAL" && word != "PUTNOTIF" {
		return "", "", false
	}
	return word, strings.TrimSpace(line[sp+1:]), true
}

// parseHeader splits "name{label=\"v\",...} rest" into its name, labels and
// remaining text (the value and optional timestamp).
func parseHeader(s string) (name string, labels []metric.Label, rest string, err error) {
	brace := strings.IndexAny(s, "{ ")
	if brace < 0 {
		return "", nil, "", fmt.Errorf("lineproto: missing value")
	}
	name = s[:brace]
	if name == "" {
		return "", nil, "", fmt.Errorf("lineproto: empty metric name")
	}
	if s[brace] != '{' {
		return name, nil, s[brace:], nil
	}

	end, pairs, err := parseLabelBlock(s, brace+1)
	if err != nil {
		return "", nil, "", err
	}
	return name, pairs, s[end:], nil
}

// parseLabelBlock parses "label=\"v\"[,label2=\"v2\"]*}" starting right
// after the opening '{' at index start, returning the index right after
// the closing '}'.
func parseLabelBlock(s string, start int) (end int, labels []metric.Label, err error) {
	i := start
	for {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return 0, nil, fmt.Errorf("lineproto: malformed label block")
		}
		lname := s[i : i+eq]
		i += eq + 1
		if i >= len(s) || s[i] != '"' {
			return 0, nil, fmt.Errorf("lineproto: label %q value must be quoted", lname)
		}
		i++
		val, next, err := unescapeUntilQuote(s, i)
		if err != nil {
			return 0, nil, err
		}
		i = next
		labels = append(labels, metric.Label{Name: lname, Value: val})

		if i >= len(s) {
			return 0, nil, fmt.Errorf("lineproto: unterminated label block")
		}
		switch s[i] {
		case ',':
			i++
			continue
		case '}':
			return i + 1, labels, nil
		default:
			return 0, nil, fmt.Errorf("lineproto: expected ',' or '}' after label value")
		}
	}
}

// unescapeUntilQuote reads a quoted string body starting at i (just past
// the opening quote), handling \", \\ and \n, and returns the unescaped
// value plus the index right after the closing quote.
func unescapeUntilQuote(s string, i int) (string, int, error) {
	var b strings.Builder
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("lineproto: dangling escape")
			}
			switch s[i+1] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			default:
				return "", 0, fmt.Errorf("lineproto: unknown escape \\%c", s[i+1])
			}
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("lineproto: unterminated quoted string")
}

// parseDirectiveFields tokenizes "key=value key2=\"v 2\" ..." into a map,
// unquoting quoted values with the same escapes as the primary form.
func parseDirectiveFields(rest string) (map[string]string, error) {
	kv := make(map[string]string)
	i := 0
	for i < len(rest) {
		for i < len(rest) && rest[i] == ' ' {
			i++
		}
		if i >= len(rest) {
			break
		}
		eq := strings.IndexByte(rest[i:], '=')
		if eq < 0 {
			return nil, fmt.Errorf("lineproto: malformed directive field %q", rest[i:])
		}
		key := rest[i : i+eq]
		i += eq + 1
		if i < len(rest) && rest[i] == '"' {
			val, next, err := unescapeUntilQuote(rest, i+1)
			if err != nil {
				return nil, err
			}
			kv[key] = val
			i = next
			continue
		}
		sp := strings.IndexByte(rest[i:], ' ')
		if sp < 0 {
			kv[key] = rest[i:]
			i = len(rest)
		} else {
			kv[key] = rest[i : i+sp]
			i += sp
		}
	}
	return kv, nil
}

func parsePutval(acc *Accumulator, disp metric.Dispatcher, filt metric.Filter, prefix string,
	baseLabels metric.LabelSet, defaultTime, defaultInterval cdtime.Time, line, rest string) error {

	kv, err := parseDirectiveFields(rest)
	if err != nil {
		acc.warn(line, err)
		return nil
	}
	name, hasName := kv["name"]
	valueStr, hasValue := kv["value"]
	if !hasName || !hasValue {
		acc.warn(line, fmt.Errorf("lineproto: PUTVAL requires name= and value="))
		return nil
	}
	val, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		acc.warn(line, fmt.Errorf("lineproto: PUTVAL bad value %q: %w", valueStr, err))
		return nil
	}
	t := defaultTime
	if ts, ok := kv["time"]; ok {
		if tf, terr := strconv.ParseFloat(ts, 64); terr == nil {
			t = cdtime.FromFloat64(tf)
		}
	}

	labels := baseLabels.Clone()
	for k, v := range kv {
		if k == "name" || k == "value" || k == "time" {
			continue
		}
		labels.Add(true, k, v)
	}

	fullName := prefix + name
	if err := acc.ensureFamily(disp, filt, defaultTime, defaultInterval, fullName); err != nil {
		return err
	}
	if err := acc.fam.Append(metric.Unknown(val), labels); err != nil {
		acc.warn(line, err)
		return nil
	}
	acc.fam.Metrics[len(acc.fam.Metrics)-1].Time = t
	return nil
}

func parseSeverity(s string) notification.Severity {
	switch strings.ToUpper(s) {
	case "OKAY":
		return notification.Okay
	case "WARNING":
		return notification.Warning
	case "FAILURE":
		return notification.Failure
	default:
		return notification.Severity(-1) // renders as UNKNOW, see Severity.String
	}
}

func parsePutnotif(acc *Accumulator, line, rest string, defaultTime cdtime.Time) error {
	if acc.Notify == nil {
		acc.warn(line, fmt.Errorf("lineproto: PUTNOTIF received with no notification dispatcher configured"))
		return nil
	}
	kv, err := parseDirectiveFields(rest)
	if err != nil {
		acc.warn(line, err)
		return nil
	}
	name, ok := kv["name"]
	if !ok {
		acc.warn(line, fmt.Errorf("lineproto: PUTNOTIF requires name="))
		return nil
	}

	e := notification.Event{Name: name, Time: defaultTime}
	if sev, ok := kv["severity"]; ok {
		e.Severity = parseSeverity(sev)
	}
	if ts, ok := kv["time"]; ok {
		if tf, terr := strconv.ParseFloat(ts, 64); terr == nil {
			e.Time = cdtime.FromFloat64(tf)
		}
	}
	for k, v := range kv {
		switch k {
		case "name", "severity", "time":
			continue
		}
		if label, ok := strings.CutPrefix(k, "label_"); ok {
			e.Labels.Add(true, label, v)
			continue
		}
		e.Annotations.Add(true, k, v)
	}

	return acc.Notify.DispatchNotification(e)
}
