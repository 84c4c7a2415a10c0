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

// Package drf emits the flat Data Resolution File listing every
// signature obligation that requires attention after a run.
package drf

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dmc-trials/sigtrack/internal/engine"
)

// NeedsResign reports whether a node belongs in the DRF: either its
// signature was invalidated outright, or it completed cleanly but a
// covered-field change was subsequently declined against a normal
// record.
func NeedsResign(n *engine.SigNode) bool {
	if n.SignatureStatus == engine.SignatureInvalidated {
		return true
	}
	return n.SignatureStatus == engine.SignatureComplete &&
		n.RecStatus == engine.RecNormal &&
		n.ChangeStatus == engine.ChangeDeclined
}

// Write emits "patient|visit|sigPlate\n" for every node in nodes that
// NeedsResign, in the order given, and returns how many rows it wrote.
func Write(w io.Writer, nodes []*engine.SigNode) (int, error) {
	bw := bufio.NewWriter(w)
	written := 0
	for _, n := range nodes {
		if !NeedsResign(n) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s|%d|%d\n", n.Patient, n.Visit, n.Config.SigPlate); err != nil {
			return written, err
		}
		written++
	}
	return written, bw.Flush()
}
