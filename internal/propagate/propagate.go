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

// Package propagate performs the single status-reduction pass that
// lifts per-field change status up to the covered plate and up to the
// owning signature obligation, under two tunable policies.
package propagate

import "github.com/dmc-trials/sigtrack/internal/engine"

// Policy tunes how the propagation pass resolves field-level
// dispositions.
type Policy struct {
	// AllowSignerChanges exempts edits made by the node's own signer:
	// such a field is promoted to ACCEPTED with an explanatory
	// comment rather than left DECLINED.
	AllowSignerChanges bool
	// ResignAtFinal demotes a DECLINED field on a not-yet-final
	// covered plate to DECLINED_ATFINAL, deferring the re-sign
	// requirement until the record reaches its final state.
	ResignAtFinal bool
}

// Run walks every node once, recomputing plate.SignatureStatus,
// plate/node-level ChangeStatus, and node.RecStatus from the current
// field changes. It is not safe to call twice on the same tree: node
// ChangeStatus is reset at the start of each call, but plate
// ChangeStatus accumulates across calls rather than reset, by design
// (see DESIGN.md); call Run once per process run of the engine.
func Run(nodes []*engine.SigNode, p Policy) {
	for _, n := range nodes {
		runNode(n, p)
	}
}

func runNode(n *engine.SigNode, p Policy) {
	n.ChangeStatus = engine.ChangeNone

	for _, plate := range n.Plates() {
		plate.SignatureStatus = n.SignatureStatus
		plate.FieldChangeCount = 0

		for _, fc := range plate.Changes() {
			plate.FieldChangeCount++

			if p.ResignAtFinal && !plate.IsFinal && fc.Status == engine.ChangeDeclined {
				fc.Status = engine.ChangeDeclinedAtFinal
			}

			fc.RecStatus = plate.RecStatus
			fc.SignatureStatus = plate.SignatureStatus

			if p.AllowSignerChanges && fc.Who == n.Signer {
				fc.Comment = "Changed by Signer"
				fc.Status = engine.ChangeAccepted
			}

			plate.ChangeStatus = engine.MaxChangeStatus(plate.ChangeStatus, fc.Status)
		}

		if plate.Plate == n.Config.SigPlate {
			n.RecStatus = plate.RecStatus
		}

		n.ChangeStatus = engine.MaxChangeStatus(n.ChangeStatus, plate.ChangeStatus)
	}
}
