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

// Package audit tokenises the pipe-delimited audit-trail stream and
// assigns each line to a transaction, the first two stages that sit in
// front of the signature state engine.
package audit

import (
	"strconv"
	"strings"
)

// Well-known 1-based field positions used by the engine. The raw
// record is 0-indexed internally; these constants are converted to
// slice offsets by Field.
const (
	PosDate       = 1
	PosTime       = 2
	PosUser       = 3
	PosPatient    = 4
	PosVisit      = 5
	PosPlate      = 6
	PosFieldRef   = 7
	PosStatus     = 9
	PosLevel      = 10
	PosOldValue   = 14
	PosNewValue   = 15
	PosFieldPos   = 16
	PosFieldDesc  = 17
	PosOldDecode  = 18
	PosNewDecode  = 19
)

// minColumns is the highest well-known position; lines shorter than
// this are a shape anomaly and are silently skipped.
const minColumns = PosNewDecode

// Event is the parsed view of one audit-trail line: a fixed positional
// vector of textual fields, plus the numeric fields the engine
// dispatches on.
type Event struct {
	raw []string

	Date      string
	Time      string
	User      string
	Patient   string
	Visit     int64
	Plate     int64
	FieldRef  int64
	Status    int64
	Level     int64
	OldValue  string
	NewValue  string
	FieldPos  int64
	FieldDesc string
	OldDecode string
	NewDecode string
}

// Field returns the raw textual field at the given 1-based position,
// or "" if the record is too short to contain it.
func (e *Event) Field(pos int) string {
	idx := pos - 1
	if idx < 0 || idx >= len(e.raw) {
		return ""
	}
	return e.raw[idx]
}

// Parse splits one "|"-delimited audit line into an Event, or returns
// nil for lines that are too short or carry non-numeric values in
// numeric-typed positions. This is not an error: shape anomalies are
// silently skipped, so callers treat a nil Event as "skip this line"
// rather than a failure.
func Parse(line string) *Event {
	fields := strings.Split(line, "|")
	if len(fields) < minColumns {
		return nil
	}

	e := &Event{raw: fields}
	e.Date = e.Field(PosDate)
	e.Time = e.Field(PosTime)
	e.User = e.Field(PosUser)
	e.Patient = e.Field(PosPatient)
	e.OldValue = e.Field(PosOldValue)
	e.NewValue = e.Field(PosNewValue)
	e.FieldDesc = e.Field(PosFieldDesc)
	e.OldDecode = e.Field(PosOldDecode)
	e.NewDecode = e.Field(PosNewDecode)

	var ok bool
	if e.Visit, ok = parseIntField(e.Field(PosVisit)); !ok {
		return nil
	}
	if e.Plate, ok = parseIntField(e.Field(PosPlate)); !ok {
		return nil
	}
	if e.FieldRef, ok = parseIntField(e.Field(PosFieldRef)); !ok {
		return nil
	}
	if e.Status, ok = parseIntField(e.Field(PosStatus)); !ok {
		return nil
	}
	if e.Level, ok = parseIntField(e.Field(PosLevel)); !ok {
		return nil
	}
	if e.FieldPos, ok = parseIntField(e.Field(PosFieldPos)); !ok {
		return nil
	}

	return e
}

func parseIntField(s string) (int64, bool) {
	if s == "" {
		return 0, true // absent numeric fields default to zero, not an anomaly
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Decode joins a raw value with its decode column using "=", matching
// the DFtoolkit convention of pairing a coded value with its
// human-readable label (e.g. "2=Female"). If decode is empty, value is
// returned unchanged.
func Decode(value, decode string) string {
	if decode == "" {
		return value
	}
	return value + "=" + decode
}
