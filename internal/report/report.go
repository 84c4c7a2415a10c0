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

// Package report turns the final tracked-object forest into plain
// rows and per-row status labels. Rendering those rows into a
// formatted workbook is a separate concern left to a spreadsheet
// library at the call site; this package only decides what belongs in
// each row and what it should be labelled.
package report

import "github.com/dmc-trials/sigtrack/internal/engine"

// Vocabulary selects which status label set a Row's Label is rendered
// under: the signature-tracker's native vocabulary, or the alternate
// Source Data Verification vocabulary used when the same lattice
// backs a verification report instead.
type Vocabulary int

const (
	VocabSignature Vocabulary = iota
	VocabSDV
)

// Row is one line of the report: a signature obligation, or one of
// its covered-field changes, flattened for rendering.
type Row struct {
	Patient  string
	Visit    int64
	SigName  string
	SigPlate int64
	Plate    int64
	Field    int64
	Desc     string
	OldValue string
	NewValue string
	Who      string
	Date     string
	Time     string
	Comment  string

	Label string
}

// Build flattens nodes into rows: one obligation-summary row per node,
// followed by one row per covered field change across its plates.
// arrivedOnly restricts output to nodes whose signature plate was
// actually observed in the run.
func Build(nodes []*engine.SigNode, vocab Vocabulary, arrivedOnly bool) []Row {
	var rows []Row
	for _, n := range nodes {
		if arrivedOnly && !n.RecSeen() {
			continue
		}

		rows = append(rows, Row{
			Patient:  n.Patient,
			Visit:    n.Visit,
			SigName:  n.Config.Name,
			SigPlate: n.Config.SigPlate,
			Who:      n.Signer,
			Date:     n.Date,
			Time:     n.Time,
			Label:    signatureLabel(n, vocab),
		})

		for _, plate := range n.Plates() {
			for _, fc := range plate.Changes() {
				rows = append(rows, Row{
					Patient:  n.Patient,
					Visit:    n.Visit,
					SigName:  n.Config.Name,
					SigPlate: n.Config.SigPlate,
					Plate:    plate.Plate,
					Field:    fc.Field,
					Desc:     fc.Desc,
					OldValue: fc.OldValue,
					NewValue: fc.NewValue,
					Who:      fc.Who,
					Date:     fc.Date,
					Time:     fc.Time,
					Comment:  fc.Comment,
					Label:    changeLabel(fc, vocab),
				})
			}
		}
	}
	return rows
}

func signatureLabel(n *engine.SigNode, vocab Vocabulary) string {
	switch n.SignatureStatus {
	case engine.SignatureComplete:
		if vocab == VocabSDV {
			return "VERIFIED"
		}
		return "SIGNED"
	case engine.SignatureInvalidated:
		if vocab == VocabSDV {
			return "REVERIFICATION REQUIRED"
		}
		return "RESIGN REQUIRED"
	default:
		return "UNSIGNED"
	}
}

func changeLabel(fc *engine.FieldChange, vocab Vocabulary) string {
	switch fc.Status {
	case engine.ChangeAccepted:
		if vocab == VocabSDV {
			return "VERIFIED"
		}
		return "ACCEPTED"
	case engine.ChangeDeclined:
		if vocab == VocabSDV {
			return "QUERY"
		}
		return "DECLINED"
	case engine.ChangeDeclinedAtFinal:
		if vocab == VocabSDV {
			return "QUERY AT FINAL"
		}
		return "DECLINED (re-sign at final)"
	default:
		return ""
	}
}
