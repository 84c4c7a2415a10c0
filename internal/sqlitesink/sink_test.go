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

package sqlitesink_test

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/dmc-trials/sigtrack/internal/audit"
	"github.com/dmc-trials/sigtrack/internal/engine"
	"github.com/dmc-trials/sigtrack/internal/sigconfig"
	"github.com/dmc-trials/sigtrack/internal/sqlitesink"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const oneSigTwoPlates = `
signature "A" plate 10 visit * fields 5 {
	plate 10;
	plate 11;
}
`

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var b []byte
	for v > 0 {
		b = append([]byte{byte('0' + v%10)}, b...)
		v /= 10
	}
	return string(b)
}

func fullLine(date, tme, user, patient string, visit, plate, fieldref, status, level int,
	oldValue, newValue string, fieldPos int, fieldDesc, oldDecode, newDecode string) string {
	f := make([]string, 19)
	f[0], f[1], f[2], f[3] = date, tme, user, patient
	f[4], f[5], f[6] = itoa(visit), itoa(plate), itoa(fieldref)
	f[8], f[9] = itoa(status), itoa(level)
	f[13], f[14] = oldValue, newValue
	f[15], f[16], f[17], f[18] = itoa(fieldPos), fieldDesc, oldDecode, newDecode
	return strings.Join(f, "|")
}

func TestWriteSigningThenClose(t *testing.T) {
	recs, err := sigconfig.Parse(strings.NewReader(oneSigTwoPlates), "test", nil)
	require.NoError(t, err)

	sink, err := sqlitesink.Open(":memory:", nil)
	require.NoError(t, err)

	e := engine.New(recs, nil, sink)
	e.Dispatch(audit.Parse(fullLine("20250101", "0900", "u1", "p1", 1, 11, 0, 2, 0, "", "v1", 12, "d", "", "")), 1)
	e.Dispatch(audit.Parse(fullLine("20250101", "0901", "u1", "p1", 1, 10, 0, 2, 0, "", "u1", 5, "d", "", "")), 2)

	require.NoError(t, sink.Close())
}

func TestSchemaAppliesCleanly(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	sink, err := sqlitesink.Open(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestOpenOrCreateRejectsUnknownDialect(t *testing.T) {
	_, err := sqlitesink.OpenOrCreate("oracle", ":memory:", nil)
	require.Error(t, err)
}

func TestOpenOrCreateSQLiteDialectIsEquivalentToOpen(t *testing.T) {
	sink, err := sqlitesink.OpenOrCreate("sqlite", ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}
