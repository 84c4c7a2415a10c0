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

package engine_test

import (
	"strings"
	"testing"

	"github.com/dmc-trials/sigtrack/internal/audit"
	"github.com/dmc-trials/sigtrack/internal/engine"
	"github.com/dmc-trials/sigtrack/internal/exclusion"
	"github.com/dmc-trials/sigtrack/internal/metrics"
	"github.com/dmc-trials/sigtrack/internal/sigconfig"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const oneSigTwoPlates = `
signature "A" plate 10 visit * fields 5 {
	plate 10;
	plate 11;
}
`

func line(fields ...string) string {
	return strings.Join(fields, "|")
}

// fullLine builds a 19-column audit line, 1-indexed per the positional
// schema: date,time,user,patient,visit,plate,fieldref,_,status,level,
// _,_,_,oldValue,newValue,fieldPos,fieldDesc,oldDecode,newDecode.
func fullLine(date, tme, user, patient string, visit, plate, fieldref, status, level int,
	oldValue, newValue string, fieldPos int, fieldDesc, oldDecode, newDecode string) string {
	f := make([]string, 19)
	f[0] = date
	f[1] = tme
	f[2] = user
	f[3] = patient
	f[4] = itoa(visit)
	f[5] = itoa(plate)
	f[6] = itoa(fieldref)
	f[7] = ""
	f[8] = itoa(status)
	f[9] = itoa(level)
	f[10], f[11], f[12] = "", "", ""
	f[13] = oldValue
	f[14] = newValue
	f[15] = itoa(fieldPos)
	f[16] = fieldDesc
	f[17] = oldDecode
	f[18] = newDecode
	return line(f...)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var b []byte
	for v > 0 {
		b = append([]byte{byte('0' + v%10)}, b...)
		v /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func mustConfig(t *testing.T, src string) []*sigconfig.Config {
	t.Helper()
	recs, err := sigconfig.Parse(strings.NewReader(src), "test", nil)
	require.NoError(t, err)
	return recs
}

func oneNode(t *testing.T, e *engine.Engine) *engine.SigNode {
	t.Helper()
	nodes := e.Nodes()
	require.Len(t, nodes, 1)
	return nodes[0]
}

// fakeSink records every call the engine makes against it, so tests
// can assert on writeback without standing up a real database.
type fakeSink struct {
	signings       []*engine.SigNode
	dataValuePlate []int64
	dataValueFC    []*engine.FieldChange
}

func (f *fakeSink) WriteSigning(n *engine.SigNode) {
	f.signings = append(f.signings, n)
}

func (f *fakeSink) WriteDataValue(n *engine.SigNode, plate int64, fc *engine.FieldChange) {
	f.dataValuePlate = append(f.dataValuePlate, plate)
	f.dataValueFC = append(f.dataValueFC, fc)
}

// TestCleanSignature is scenario S1: a covered-plate write followed by
// a completing sign leaves the obligation COMPLETE with no pending
// changes on the covered plate.
func TestCleanSignature(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	e := engine.New(cfgs, nil, nil)

	write := audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 0, 2, 0, "", "v1", 12, "d", "", ""))
	e.Dispatch(write, 1)

	sign := audit.Parse(fullLine("20250101", "0901", "u1", "p1", 1, 10, 0, 2, 0, "", "u1", 5, "d", "", ""))
	e.Dispatch(sign, 2)

	n := oneNode(t, e)
	require.Equal(t, engine.SignatureComplete, n.SignatureStatus)
	p11, ok := n.Plate(11)
	require.True(t, ok)
	require.Empty(t, p11.Changes())
}

// TestPostSignDeclinedChange is scenario S2.
func TestPostSignDeclinedChange(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	e := engine.New(cfgs, nil, nil)

	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 0, 2, 0, "", "v1", 12, "d", "", "")), 1)
	e.Dispatch(audit.Parse(fullLine("20250101", "0901", "u1", "p1", 1, 10, 0, 2, 0, "", "u1", 5, "d", "", "")), 2)
	e.Dispatch(audit.Parse(fullLine("20250102", "0800", "u2", "p1", 1, 11, 0, 2, 0, "v1", "v2", 12, "d", "", "")), 3)

	n := oneNode(t, e)
	p11, ok := n.Plate(11)
	require.True(t, ok)
	fc, ok := p11.Change(12)
	require.True(t, ok)
	require.Equal(t, engine.ChangeDeclined, fc.Status)
}

// TestUnsignCascade is scenario S5.
func TestUnsignCascade(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	e := engine.New(cfgs, nil, nil)

	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 0, 2, 0, "", "v1", 12, "d", "", "")), 1)
	e.Dispatch(audit.Parse(fullLine("20250101", "0901", "u1", "p1", 1, 10, 0, 2, 0, "", "u1", 5, "d", "", "")), 2)
	e.Dispatch(audit.Parse(fullLine("20250103", "0900", "u1", "p1", 1, 10, 0, 2, 0, "u1", "", 5, "d", "", "")), 3)

	n := oneNode(t, e)
	require.Equal(t, engine.SignatureInvalidated, n.SignatureStatus)
	require.EqualValues(t, 0, n.TxnID)
}

// TestExclusionAcceptsExemptChange is scenario S6.
func TestExclusionAcceptsExemptChange(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	tbl := exclusion.Load(strings.NewReader("11|12|u2|20250101\n"), nil)
	e := engine.New(cfgs, tbl, nil)

	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 0, 2, 0, "", "v1", 12, "d", "", "")), 1)
	e.Dispatch(audit.Parse(fullLine("20250101", "0901", "u1", "p1", 1, 10, 0, 2, 0, "", "u1", 5, "d", "", "")), 2)
	e.Dispatch(audit.Parse(fullLine("20250101", "0800", "u2", "p1", 1, 11, 0, 2, 0, "", "v2", 12, "d", "", "")), 3)

	n := oneNode(t, e)
	p11, ok := n.Plate(11)
	require.True(t, ok)
	fc, ok := p11.Change(12)
	require.True(t, ok)
	require.Equal(t, engine.ChangeAccepted, fc.Status)
	require.Equal(t, "Administratively exempted", fc.Comment)
}

// TestDataChangeClearsPriorLostStatus pins down the ported source
// behaviour (flagged, not fixed) where recStatus is unconditionally
// reset to NORMAL at the top of every dataChange, silently clearing a
// previously-recorded LOST state.
func TestDataChangeClearsPriorLostStatus(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	e := engine.New(cfgs, nil, nil)

	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 0, 0, 0, "", "v1", 12, "d", "", "")), 1)
	n := oneNode(t, e)
	p11, _ := n.Plate(11)
	require.Equal(t, engine.RecLost, p11.RecStatus)

	e.Dispatch(audit.Parse(fullLine("20250102", "0900", "u1", "p1", 1, 11, 0, 2, 0, "v1", "v2", 12, "d", "", "")), 2)
	p11, _ = n.Plate(11)
	require.Equal(t, engine.RecNormal, p11.RecStatus)
}

// TestPostSignDataChangeWritesToSink exercises §4.8's second writeback
// trigger: a dataChange observed after the completing sign, within the
// same signing transaction, must replace the single data_values row on
// the sink. A change in a later transaction is tracked as a pending
// FieldChange and is not written back.
func TestPostSignDataChangeWritesToSink(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	sink := &fakeSink{}
	e := engine.New(cfgs, nil, sink)

	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 0, 2, 0, "", "v1", 12, "d", "", "")), 1)
	e.Dispatch(audit.Parse(fullLine("20250101", "0901", "u1", "p1", 1, 10, 0, 2, 0, "", "u1", 5, "d", "", "")), 2)
	require.Len(t, sink.signings, 1)
	require.Empty(t, sink.dataValuePlate)

	e.Dispatch(audit.Parse(fullLine("20250101", "0901", "u1", "p1", 1, 10, 0, 2, 0, "", "v2", 12, "d", "", "")), 2)

	require.Len(t, sink.dataValuePlate, 1)
	require.EqualValues(t, 10, sink.dataValuePlate[0])
	require.Equal(t, int64(12), sink.dataValueFC[0].Field)
	require.Equal(t, "v2", sink.dataValueFC[0].NewValue)

	e.Dispatch(audit.Parse(fullLine("20250102", "0800", "u2", "p1", 1, 11, 0, 2, 0, "v1", "v3", 12, "d", "", "")), 3)
	require.Len(t, sink.dataValuePlate, 1)
}

func TestFieldRefEventsAreSkipped(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	e := engine.New(cfgs, nil, nil)

	before := testutil.ToFloat64(metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonFieldRef))
	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 1, 2, 0, "", "v1", 12, "d", "", "")), 1)
	require.Empty(t, e.Nodes())
	require.Equal(t, before+1, testutil.ToFloat64(metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonFieldRef)))
}

func TestMetadataFieldPositionsAreSkipped(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	e := engine.New(cfgs, nil, nil)

	before := testutil.ToFloat64(metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonMetadataPos))
	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 0, 2, 0, "", "v1", 5, "d", "", "")), 1)
	require.Empty(t, e.Nodes())
	require.Equal(t, before+1, testutil.ToFloat64(metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonMetadataPos)))
}

// TestNoConfigMatchIsSkipped covers the third skip reason: an event
// against a plate/visit/field no signature configuration applies to.
func TestNoConfigMatchIsSkipped(t *testing.T) {
	cfgs := mustConfig(t, oneSigTwoPlates)
	e := engine.New(cfgs, nil, nil)

	before := testutil.ToFloat64(metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonNoMatch))
	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 99, 0, 2, 0, "", "v1", 12, "d", "", "")), 1)
	require.Empty(t, e.Nodes())
	require.Equal(t, before+1, testutil.ToFloat64(metrics.AuditLinesSkipped.WithLabelValues(metrics.ReasonNoMatch)))
}
