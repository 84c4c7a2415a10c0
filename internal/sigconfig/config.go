// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package sigconfig

import "github.com/dmc-trials/sigtrack/internal/rangeset"

// Config is one per-plate configuration record, as produced by the
// parser: one per coveredplate entry in the DSL, with the enclosing
// signature header's Name/SigPlate/Visits/SigFields duplicated across
// every sibling record.
type Config struct {
	Name       string
	SigPlate   int64
	Visits     rangeset.Set
	SigFields  rangeset.Set
	NSigFields int64

	Plate         int64
	IgnoreFields  rangeset.Set

	// Serial is a global monotonic counter assigned at construction
	// time, in parse order, across the entire configuration file.
	Serial int
}

// Applies reports whether this record's plate/visit/ignore-field
// window covers the given plate, visit, and field position.
func (c *Config) Applies(plate, visit, fieldPos int64) bool {
	if plate != c.Plate {
		return false
	}
	if !c.Visits.Contains(visit) {
		return false
	}
	if c.IgnoreFields.Contains(fieldPos) {
		return false
	}
	return true
}
