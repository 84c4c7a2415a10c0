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

// Package exclusion loads the delimited administrative-exclusion table
// and answers membership queries for the signature state engine's
// dataChange path.
package exclusion

import (
	"bufio"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// key identifies one exclusion tuple: exact equality on plate, field,
// user, and a normalised date.
type key struct {
	plate, field int64
	user, date   string
}

// Table answers "is (plate, field, user, date) administratively
// exempted" queries, given an audit event whose old value was empty.
// The zero value is an empty, usable Table.
type Table struct {
	rows map[key]struct{}
}

// Load reads a "|"-delimited exclusion file (plate|field|user|date|...,
// at least 4 columns) from r. Each row's date is normalised by
// stripping "/" and "\r"; rows whose normalised date is not 8
// characters starting with "20" are logged and skipped. Load never
// returns an error: a malformed exclusion file degrades to a smaller
// table, not a fatal run.
func Load(r io.Reader, logger *log.Logger) *Table {
	if logger == nil {
		logger = log.StandardLogger()
	}

	t := &Table{rows: make(map[key]struct{})}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 4 {
			logger.WithField("line", lineNo).Warn("exclusion row has fewer than 4 columns, skipping")
			continue
		}

		plate, ok := parseInt(fields[0])
		if !ok {
			logger.WithField("line", lineNo).Warn("exclusion row has non-numeric plate, skipping")
			continue
		}
		field, ok := parseInt(fields[1])
		if !ok {
			logger.WithField("line", lineNo).Warn("exclusion row has non-numeric field, skipping")
			continue
		}
		user := fields[2]
		date, ok := normalizeDate(fields[3])
		if !ok {
			logger.WithField("line", lineNo).WithField("date", fields[3]).
				Warn("exclusion row has a malformed date, skipping")
			continue
		}

		t.rows[key{plate: plate, field: field, user: user, date: date}] = struct{}{}
	}

	return t
}

func parseInt(s string) (int64, bool) {
	var v int64
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + int64(r-'0')
	}
	return v, true
}

// normalizeDate strips "/" and "\r" and requires the result to be 8
// characters beginning with "20".
func normalizeDate(raw string) (string, bool) {
	s := strings.NewReplacer("/", "", "\r", "").Replace(raw)
	if len(s) != 8 || !strings.HasPrefix(s, "20") {
		return "", false
	}
	return s, true
}

// Matches reports whether (plate, field, user, date) is administratively
// exempted. The exclusion table is only meaningful when the probing
// event's old value was empty, so callers pass that precondition in
// explicitly rather than have Matches reach back into an audit.Event.
func (t *Table) Matches(plate, field int64, user, date string, oldValueEmpty bool) bool {
	if t == nil || !oldValueEmpty {
		return false
	}
	normDate, ok := normalizeDate(date)
	if !ok {
		return false
	}
	_, found := t.rows[key{plate: plate, field: field, user: user, date: normDate}]
	return found
}

// Len reports how many exclusion tuples were successfully loaded.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}
