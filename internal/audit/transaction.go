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

package audit

import "strconv"

// Grouper assigns a monotonic transaction id to each Event, bumping
// the id whenever the (date,time,user,patient,visit,plate) key
// changes from the previous Event seen. Events sharing that key form
// one transaction and are expected to appear contiguously in the
// stream, so Grouper only ever needs to remember the most recent key.
//
// The zero value is ready to use; the first Event it sees is assigned
// transaction id 1.
type Grouper struct {
	lastKey string
	txnID   int64
}

// Next computes the key for e, advances the transaction id if the key
// differs from the previous call's, and returns the (possibly
// unchanged) current transaction id.
func (g *Grouper) Next(e *Event) int64 {
	key := transactionKey(e)
	if key != g.lastKey || g.txnID == 0 {
		g.txnID++
		g.lastKey = key
	}
	return g.txnID
}

func transactionKey(e *Event) string {
	var b []byte
	b = append(b, e.Date...)
	b = append(b, '|')
	b = append(b, e.Time...)
	b = append(b, '|')
	b = append(b, e.User...)
	b = append(b, '|')
	b = append(b, e.Patient...)
	b = append(b, '|')
	b = strconv.AppendInt(b, e.Visit, 10)
	b = append(b, '|')
	b = strconv.AppendInt(b, e.Plate, 10)
	return string(b)
}
