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

package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// GlobalSettings is the top-level "globals" block: daemon-wide knobs that
// apply before any plugin block is resolved. Struct tags describe the
// grammar and are validated with go-playground/validator.
type GlobalSettings struct {
	Interval        float64 `validate:"gt=0"`
	Hostname        string  `validate:"omitempty,hostname_rfc1123"`
	LogLevel        string  `validate:"omitempty,oneof=debug info warning error"`
	Workers         int     `validate:"gte=0"`
	PIDFile         string  `validate:"omitempty"`
	MaxReadInterval float64 `validate:"gte=0"`
}

var globalValidate = validator.New()

// ValidateGlobalSettings runs g's struct tags through validator and
// reformats any failures into one readable error, joining every field
// failure rather than stopping at the first.
func ValidateGlobalSettings(g GlobalSettings) error {
	err := globalValidate.Struct(g)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var msgs []string
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q constraint", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid globals: %s", strings.Join(msgs, "; "))
}

// DecodeGlobalSettings reads the "globals" Item's children into a
// GlobalSettings, applying cfgutil-style single-scalar extraction per
// field, then validates the result.
func DecodeGlobalSettings(root *Item) (GlobalSettings, error) {
	g := GlobalSettings{Interval: 10}
	if child, ok := root.Child("interval"); ok && len(child.Values) == 1 {
		g.Interval = child.Values[0].Num
	}
	if child, ok := root.Child("hostname"); ok && len(child.Values) == 1 {
		g.Hostname = child.Values[0].Str
	}
	if child, ok := root.Child("loglevel"); ok && len(child.Values) == 1 {
		g.LogLevel = child.Values[0].Str
	}
	if child, ok := root.Child("workers"); ok && len(child.Values) == 1 {
		g.Workers = int(child.Values[0].Num)
	}
	if child, ok := root.Child("pidfile"); ok && len(child.Values) == 1 {
		g.PIDFile = child.Values[0].Str
	}
	if child, ok := root.Child("maxreadinterval"); ok && len(child.Values) == 1 {
		g.MaxReadInterval = child.Values[0].Num
	}
	if err := ValidateGlobalSettings(g); err != nil {
		return GlobalSettings{}, fmt.Errorf("%s: %w", root.Source, err)
	}
	return g, nil
}
