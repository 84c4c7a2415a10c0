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

// Package engine maintains the forest of signature-obligation nodes
// built from an audit-trail event stream, and implements the sign,
// unsign, and dataChange transitions that mutate them.
package engine

import "github.com/dmc-trials/sigtrack/internal/sigconfig"

// SigField is one signature field enumerated by a node's configuration.
type SigField struct {
	FieldNumber int64
	Completed   bool
	Desc        string
	Value       string
}

// FieldChange records a single covered field's before/after values and
// disposition, keyed by field number within a CoveredPlate.
type FieldChange struct {
	Field    int64
	Status   ChangeStatus
	Desc     string
	OldValue string
	NewValue string
	Who      string
	Date     string
	Time     string
	Comment  string

	// RecStatus and SignatureStatus are copied down from the owning
	// CoveredPlate during propagation; they are not set by the engine
	// itself.
	RecStatus       RecStatus
	SignatureStatus SignatureStatus
}

// CoveredPlate is one plate whose changes fall under a signature
// obligation's coverage, keyed by plate number within a SigNode.
type CoveredPlate struct {
	Plate            int64
	SignatureStatus  SignatureStatus
	RecStatus        RecStatus
	ChangeStatus     ChangeStatus
	IsFinal          bool
	FieldChangeCount int

	changes *sortedMap[int64, *FieldChange]
}

func newCoveredPlate(plate int64) *CoveredPlate {
	return &CoveredPlate{Plate: plate, changes: newSortedMap[int64, *FieldChange]()}
}

// Change returns the FieldChange for field, if one exists.
func (p *CoveredPlate) Change(field int64) (*FieldChange, bool) {
	return p.changes.Get(field)
}

// Changes returns every field change on this plate in field-number
// order.
func (p *CoveredPlate) Changes() []*FieldChange {
	out := make([]*FieldChange, 0, p.changes.Len())
	p.changes.Range(func(_ int64, fc *FieldChange) bool {
		out = append(out, fc)
		return true
	})
	return out
}

// clearChanges discards every FieldChange on this plate.
func (p *CoveredPlate) clearChanges() {
	p.changes = newSortedMap[int64, *FieldChange]()
	p.FieldChangeCount = 0
}

// Node flags.
const (
	FlagRecSeen = 1 << iota
)

// SigNode is one signature obligation: a (patient, visit, signature
// configuration) triple, keyed externally by
// (patient, visit, sigPlate, minSigField).
type SigNode struct {
	Patient  string
	Visit    int64
	Config   *sigconfig.Config

	SignatureStatus SignatureStatus
	RecStatus       RecStatus
	ChangeStatus    ChangeStatus

	Signer string
	Date   string
	Time   string

	Flags int
	TxnID int64

	SigFields []*SigField

	plates *sortedMap[int64, *CoveredPlate]
}

func newSigNode(patient string, visit int64, cfg *sigconfig.Config, sigFields []int64) *SigNode {
	n := &SigNode{
		Patient: patient,
		Visit:   visit,
		Config:  cfg,
		plates:  newSortedMap[int64, *CoveredPlate](),
	}
	n.SigFields = make([]*SigField, len(sigFields))
	for i, f := range sigFields {
		n.SigFields[i] = &SigField{FieldNumber: f}
	}
	return n
}

// Plate returns the CoveredPlate for the given plate number, if one
// has been recorded on this node.
func (n *SigNode) Plate(plate int64) (*CoveredPlate, bool) {
	return n.plates.Get(plate)
}

// Plates returns every covered plate on this node in plate-number
// order.
func (n *SigNode) Plates() []*CoveredPlate {
	out := make([]*CoveredPlate, 0, n.plates.Len())
	n.plates.Range(func(_ int64, p *CoveredPlate) bool {
		out = append(out, p)
		return true
	})
	return out
}

// RecSeen reports whether the signature plate has been observed in
// this run.
func (n *SigNode) RecSeen() bool {
	return n.Flags&FlagRecSeen != 0
}

func (n *SigNode) getOrInsertPlate(plate int64) *CoveredPlate {
	p, ok := n.plates.Get(plate)
	if !ok {
		p = newCoveredPlate(plate)
		n.plates.Put(plate, p)
	}
	return p
}

// sigNodeKey identifies a SigNode by (patient, visit, sigPlate,
// minSigField): two configuration records that target the same
// signature plate and visit window, with the same minimum signature
// field, collapse onto one node.
type sigNodeKey struct {
	patient     string
	visit       int64
	sigPlate    int64
	minSigField int64
}
