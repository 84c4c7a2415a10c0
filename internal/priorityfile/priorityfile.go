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

// Package priorityfile flattens a parsed signature configuration to a
// plate|field|level listing, one row per (plate, signature field)
// pair, for downstream tooling that wants a flat priority table
// without parsing the configuration DSL itself.
package priorityfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dmc-trials/sigtrack/internal/sigconfig"
)

// Write emits "plate|field|level\n" for every (plate, signature field)
// pair across every configuration record, where level is the record's
// position in the parse-order serial sequence.
func Write(w io.Writer, configs []*sigconfig.Config) error {
	bw := bufio.NewWriter(w)
	for _, cfg := range configs {
		for _, field := range cfg.SigFields.Values() {
			if _, err := fmt.Fprintf(bw, "%d|%d|%d\n", cfg.Plate, field, cfg.Serial); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
