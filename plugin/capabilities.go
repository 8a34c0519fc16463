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

package plugin

import "fmt"

// WarnMissingCapabilities checks the requested capabilities and logs one
// warning through the registry's log sinks for each one the process is
// missing. Collectors that drop privileges or reach into restricted kernel
// interfaces call this from their init callback; a miss never aborts
// registration. The missing set is returned for callers that want to
// degrade a specific feature instead.
func (r *Registry) WarnMissingCapabilities(who string, caps ...Capability) []Capability {
	missing := CheckCapabilities(caps...)
	for _, c := range missing {
		r.Log("warning", fmt.Sprintf("%s: missing capability %s", who, c))
	}
	return missing
}
