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

// Package cfgutil implements the typed config accessor surface: narrow,
// single-purpose helpers collectors call against one resolved config.Item
// to pull out a typed argument, with strict argument-count and type
// checking.
package cfgutil

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/ncollectd/ncollectd-core/cdtime"
	"github.com/ncollectd/ncollectd-core/config"
	"github.com/ncollectd/ncollectd-core/metric"
	"github.com/ncollectd/ncollectd-core/notification"
)

// ErrArgCount is returned when an item does not carry exactly the expected
// number of values.
var ErrArgCount = fmt.Errorf("cfgutil: wrong number of arguments")

// ErrArgType is returned when an item's value is not of the expected kind.
var ErrArgType = fmt.Errorf("cfgutil: wrong argument type")

func oneValue(ci *config.Item) (config.Value, error) {
	if len(ci.Values) != 1 {
		return config.Value{}, fmt.Errorf("%s: %q: %w", ci.Source, ci.Key, ErrArgCount)
	}
	return ci.Values[0], nil
}

// GetString implements cf_util_get_string: exactly one string argument.
func GetString(ci *config.Item) (string, error) {
	v, err := oneValue(ci)
	if err != nil {
		return "", err
	}
	if v.Kind != config.KindString {
		return "", fmt.Errorf("%s: %q: %w", ci.Source, ci.Key, ErrArgType)
	}
	return v.Str, nil
}

// GetStringEnv implements cf_util_get_string_env: the string argument
// names an environment variable; the returned value is that variable's
// contents.
func GetStringEnv(ci *config.Item) (string, error) {
	name, err := GetString(ci)
	if err != nil {
		return "", err
	}
	val, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%s: %q: environment variable %s is not set", ci.Source, ci.Key, name)
	}
	return val, nil
}

// GetStringFile implements cf_util_get_string_file: the string argument is
// a file path; the returned value is the file's contents with surrounding
// whitespace trimmed.
func GetStringFile(ci *config.Item) (string, error) {
	path, err := GetString(ci)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: %q: read %s: %w", ci.Source, ci.Key, path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// GetInt implements cf_util_get_int: one numeric argument, truncated to an
// integer.
func GetInt(ci *config.Item) (int64, error) {
	n, err := GetDouble(ci)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// GetUnsigned implements cf_util_get_unsigned.
func GetUnsigned(ci *config.Item) (uint64, error) {
	n, err := GetDouble(ci)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: %q: negative value for unsigned argument", ci.Source, ci.Key)
	}
	return uint64(n), nil
}

// GetDouble implements cf_util_get_double: one numeric argument.
func GetDouble(ci *config.Item) (float64, error) {
	v, err := oneValue(ci)
	if err != nil {
		return 0, err
	}
	if v.Kind != config.KindNumber {
		return 0, fmt.Errorf("%s: %q: %w", ci.Source, ci.Key, ErrArgType)
	}
	return v.Num, nil
}

// GetBoolean implements cf_util_get_boolean: one boolean argument.
func GetBoolean(ci *config.Item) (bool, error) {
	v, err := oneValue(ci)
	if err != nil {
		return false, err
	}
	if v.Kind != config.KindBoolean {
		return false, fmt.Errorf("%s: %q: %w", ci.Source, ci.Key, ErrArgType)
	}
	return v.Bool, nil
}

// GetDoubleArray implements cf_util_get_double_array: N numeric arguments.
func GetDoubleArray(ci *config.Item) ([]float64, error) {
	out := make([]float64, 0, len(ci.Values))
	for _, v := range ci.Values {
		if v.Kind != config.KindNumber {
			return nil, fmt.Errorf("%s: %q: %w", ci.Source, ci.Key, ErrArgType)
		}
		out = append(out, v.Num)
	}
	return out, nil
}

// GetPortNumber implements cf_util_get_port_number: a service name resolved
// via the system service database, or a literal integer in [1, 65535].
func GetPortNumber(ci *config.Item) (uint16, error) {
	v, err := oneValue(ci)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case config.KindNumber:
		if v.Num < 1 || v.Num > 65535 {
			return 0, fmt.Errorf("%s: %q: port %v out of range", ci.Source, ci.Key, v.Num)
		}
		return uint16(v.Num), nil
	case config.KindString:
		port, err := net.LookupPort("tcp", v.Str)
		if err != nil {
			return 0, fmt.Errorf("%s: %q: resolve service %q: %w", ci.Source, ci.Key, v.Str, err)
		}
		return uint16(port), nil
	default:
		return 0, fmt.Errorf("%s: %q: %w", ci.Source, ci.Key, ErrArgType)
	}
}

// GetService implements cf_util_get_service: like GetPortNumber, but
// returns the string form (a resolved numeric port as text, or the literal
// service name unchanged).
func GetService(ci *config.Item) (string, error) {
	v, err := oneValue(ci)
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case config.KindNumber:
		port, err := GetPortNumber(ci)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", port), nil
	case config.KindString:
		return v.Str, nil
	default:
		return "", fmt.Errorf("%s: %q: %w", ci.Source, ci.Key, ErrArgType)
	}
}

// GetCdtime implements cf_util_get_cdtime: one double-seconds argument
// converted to cdtime.Time.
func GetCdtime(ci *config.Item) (cdtime.Time, error) {
	n, err := GetDouble(ci)
	if err != nil {
		return cdtime.Zero, err
	}
	return cdtime.FromFloat64(n), nil
}

// GetLabel implements cf_util_get_label: every "label" child of ci, each
// carrying exactly ("name", "value"), folded into one metric.LabelSet.
func GetLabel(ci *config.Item) (metric.LabelSet, error) {
	var ls metric.LabelSet
	for _, child := range ci.AllChildren("label") {
		if len(child.Values) != 2 {
			return ls, fmt.Errorf("%s: label: %w", child.Source, ErrArgCount)
		}
		name, value := child.Values[0], child.Values[1]
		if name.Kind != config.KindString || value.Kind != config.KindString {
			return ls, fmt.Errorf("%s: label: %w", child.Source, ErrArgType)
		}
		ls.Add(true, name.Str, value.Str)
	}
	return ls, nil
}

// GetFlags implements cf_util_get_flags: ci's string arguments name flags
// in table; the bitwise OR of the matched bits is returned. An unknown flag
// name is an error.
func GetFlags(ci *config.Item, table map[string]uint64) (uint64, error) {
	var out uint64
	for _, v := range ci.Values {
		if v.Kind != config.KindString {
			return 0, fmt.Errorf("%s: %q: %w", ci.Source, ci.Key, ErrArgType)
		}
		bit, ok := table[v.Str]
		if !ok {
			return 0, fmt.Errorf("%s: %q: unknown flag %q", ci.Source, ci.Key, v.Str)
		}
		out |= bit
	}
	return out, nil
}

// logLevels is the accepted log-level enumeration, ordered least to most
// severe, matching zap's level names.
var logLevels = map[string]int{
	"debug": -1, "info": 0, "warning": 1, "error": 2,
}

// GetLogLevel implements cf_util_get_log_level.
func GetLogLevel(ci *config.Item) (int, error) {
	name, err := GetString(ci)
	if err != nil {
		return 0, err
	}
	lvl, ok := logLevels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%s: %q: unknown log level %q", ci.Source, ci.Key, name)
	}
	return lvl, nil
}

var severities = map[string]notification.Severity{
	"okay": notification.Okay, "warning": notification.Warning, "failure": notification.Failure,
}

// GetSeverity implements cf_util_get_severity.
func GetSeverity(ci *config.Item) (notification.Severity, error) {
	name, err := GetString(ci)
	if err != nil {
		return 0, err
	}
	s, ok := severities[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%s: %q: unknown severity %q", ci.Source, ci.Key, name)
	}
	return s, nil
}

var metricTypes = map[string]metric.Type{
	"unknown": metric.TypeUnknown, "gauge": metric.TypeGauge,
	"counter": metric.TypeCounter, "info": metric.TypeInfo,
	"state_set": metric.TypeStateSet, "histogram": metric.TypeHistogram,
	"gauge_histogram": metric.TypeGaugeHistogram,
}

// GetMetricType implements cf_util_get_metric_type.
func GetMetricType(ci *config.Item) (metric.Type, error) {
	name, err := GetString(ci)
	if err != nil {
		return 0, err
	}
	t, ok := metricTypes[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%s: %q: unknown metric type %q", ci.Source, ci.Key, name)
	}
	return t, nil
}
