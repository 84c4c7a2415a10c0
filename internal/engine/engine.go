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

package engine

import (
	"github.com/dmc-trials/sigtrack/internal/audit"
	"github.com/dmc-trials/sigtrack/internal/exclusion"
	"github.com/dmc-trials/sigtrack/internal/metrics"
	"github.com/dmc-trials/sigtrack/internal/sigconfig"
)

// Sink receives the two writeback events the engine produces while it
// runs: a full dump of a just-completed signature, and individual
// covered-field replacements observed later in the same signing
// transaction. A nil Sink is valid; Engine simply skips the calls.
type Sink interface {
	WriteSigning(n *SigNode)
	WriteDataValue(n *SigNode, plate int64, fc *FieldChange)
}

// Engine maintains the forest of SigNodes built from an audit event
// stream, dispatching each event to the sign, unsign, or dataChange
// transition as its shape dictates.
type Engine struct {
	configs   []*sigconfig.Config
	exclusion *exclusion.Table
	sink      Sink

	nodes map[sigNodeKey]*SigNode
	// order preserves first-seen node order for deterministic
	// downstream iteration (propagation, DRF, report).
	order []*SigNode
}

// New constructs an Engine over a parsed configuration list. exclusionTable
// and sink may be nil.
func New(configs []*sigconfig.Config, exclusionTable *exclusion.Table, sink Sink) *Engine {
	return &Engine{
		configs:   configs,
		exclusion: exclusionTable,
		sink:      sink,
		nodes:     make(map[sigNodeKey]*SigNode),
	}
}

// Nodes returns every SigNode created so far, in first-seen order.
func (e *Engine) Nodes() []*SigNode {
	return e.order
}

// Dispatch applies one audit event, under the given transaction id, to
// every configuration record it matches.
func (e *Engine) Dispatch(ev *audit.Event, txnID int64) {
	if ev == nil {
		return
	}
	if ev.FieldRef != 0 {
		metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonFieldRef).Inc()
		return
	}
	if ev.FieldPos > 2 && ev.FieldPos <= 7 {
		metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonMetadataPos).Inc()
		return
	}

	matched := false
	for _, cfg := range e.configs {
		if !cfg.Applies(ev.Plate, ev.Visit, ev.FieldPos) {
			continue
		}
		matched = true
		e.dispatchOne(cfg, ev, txnID)
	}
	if !matched {
		metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonNoMatch).Inc()
	}
}

func (e *Engine) dispatchOne(cfg *sigconfig.Config, ev *audit.Event, txnID int64) {
	node := e.getOrInsertNode(cfg, ev.Patient, ev.Visit)

	if ev.Plate == cfg.SigPlate && ev.Status != 0 {
		node.Flags |= FlagRecSeen
	}

	if ev.Plate == cfg.SigPlate && cfg.SigFields.Contains(ev.FieldPos) {
		if ev.NewValue != "" {
			e.sign(node, ev.FieldPos, ev.User, ev, txnID)
		} else {
			e.unsign(node, ev.FieldPos)
		}
		return
	}

	e.dataChange(node, ev, txnID)
}

func (e *Engine) getOrInsertNode(cfg *sigconfig.Config, patient string, visit int64) *SigNode {
	minField, _ := cfg.SigFields.Min()
	key := sigNodeKey{patient: patient, visit: visit, sigPlate: cfg.SigPlate, minSigField: minField}
	if n, ok := e.nodes[key]; ok {
		return n
	}

	n := newSigNode(patient, visit, cfg, cfg.SigFields.Values())
	e.nodes[key] = n
	e.order = append(e.order, n)
	return n
}

// sign marks the given signature field complete. If every signature
// field is now complete, the obligation transitions to COMPLETE, the
// sink (if any) receives the full dump including the covered-field
// changes still pending, and freeSignedValues is then invoked for this
// transaction.
func (e *Engine) sign(n *SigNode, field int64, signer string, ev *audit.Event, txnID int64) {
	var completed int
	for _, sf := range n.SigFields {
		if sf.FieldNumber == field {
			sf.Completed = true
			sf.Desc = ev.FieldDesc
			sf.Value = ev.NewValue
		}
		if sf.Completed {
			completed++
		}
	}

	if completed != len(n.SigFields) {
		return
	}

	n.SignatureStatus = SignatureComplete
	n.Signer = signer
	n.Date = ev.Date
	n.Time = ev.Time
	n.TxnID = txnID
	metrics.SignaturesCompleted.Inc()

	if e.sink != nil {
		e.sink.WriteSigning(n)
	}

	e.freeSignedValues(n, txnID)
}

// freeSignedValues discards every pending covered-field change on n,
// on the theory that a completing signature accepts all data changes
// pending at that instant. It only applies to the transaction that
// produced the completing sign.
func (e *Engine) freeSignedValues(n *SigNode, txnID int64) {
	if n.TxnID != txnID {
		return
	}
	for _, p := range n.Plates() {
		p.clearChanges()
		p.RecStatus = RecNormal
		p.ChangeStatus = ChangeNone
	}
}

// unsign clears the given signature field. If the obligation was
// COMPLETE, it transitions to INVALIDATED; the transaction id is
// cleared, but signer/date/time are retained for audit output.
func (e *Engine) unsign(n *SigNode, field int64) {
	for _, sf := range n.SigFields {
		if sf.FieldNumber == field {
			sf.Completed = false
			sf.Value = ""
		}
	}

	if n.SignatureStatus == SignatureComplete {
		n.SignatureStatus = SignatureInvalidated
		metrics.SignaturesInvalidated.Inc()
	}
	n.TxnID = 0
}

// dataChange applies one non-signature-field audit event to the
// covered plate it targets.
func (e *Engine) dataChange(n *SigNode, ev *audit.Event, txnID int64) {
	plate := n.getOrInsertPlate(ev.Plate)

	// Reassigned unconditionally at the top of every call, matching
	// the source behaviour this was ported from: a later NORMAL event
	// on a previously-LOST plate silently clears the LOST state. Kept
	// intentionally; see DESIGN.md.
	plate.RecStatus = RecNormal
	plate.IsFinal = ev.Status == 0 || ev.Status == 1

	switch {
	case ev.Status == 3 && ev.Level == 7:
		plate.RecStatus = RecError
		if n.SignatureStatus != SignatureNone {
			plate.ChangeStatus = maxChangeStatus(plate.ChangeStatus, ChangeDeclined)
		}
	case ev.Status == 7:
		plate.RecStatus = RecDeleted
		plate.clearChanges()
		if n.SignatureStatus != SignatureNone {
			plate.ChangeStatus = maxChangeStatus(plate.ChangeStatus, ChangeDeclined)
		}
	case ev.Status == 0:
		plate.RecStatus = RecLost
		if n.SignatureStatus != SignatureNone {
			plate.ChangeStatus = maxChangeStatus(plate.ChangeStatus, ChangeDeclined)
		}
	}

	if txnID == n.TxnID {
		// Consumed by freeSignedValues: this change belongs to the
		// transaction that just completed the signature. It is not kept
		// as a pending change, but its value is written back as part of
		// the signed data.
		if ev.FieldPos >= 7 && n.SignatureStatus == SignatureComplete && e.sink != nil {
			e.sink.WriteDataValue(n, plate.Plate, &FieldChange{
				Field:    ev.FieldPos,
				Desc:     ev.FieldDesc,
				OldValue: audit.Decode(ev.OldValue, ev.OldDecode),
				NewValue: audit.Decode(ev.NewValue, ev.NewDecode),
				Who:      ev.User,
				Date:     ev.Date,
				Time:     ev.Time,
			})
		}
		return
	}
	if ev.FieldPos < 7 {
		return
	}

	fc, existed := plate.Change(ev.FieldPos)
	isNew := !existed
	if isNew {
		fc = &FieldChange{
			Field:    ev.FieldPos,
			OldValue: audit.Decode(ev.OldValue, ev.OldDecode),
		}
	}
	fc.Who = ev.User
	fc.Date = ev.Date
	fc.Time = ev.Time
	fc.Desc = ev.FieldDesc
	fc.NewValue = audit.Decode(ev.NewValue, ev.NewDecode)

	if isNew {
		if e.exclusion.Matches(ev.Plate, ev.FieldPos, ev.User, ev.Date, ev.OldValue == "") {
			fc.Status = ChangeAccepted
			fc.Comment = "Administratively exempted"
		} else {
			fc.Status = ChangeDeclined
			fc.Comment = ""
		}
	}

	plate.changes.Put(ev.FieldPos, fc)
	plate.FieldChangeCount = plate.changes.Len()
}
