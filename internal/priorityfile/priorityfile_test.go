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

package priorityfile_test

import (
	"strings"
	"testing"

	"github.com/dmc-trials/sigtrack/internal/priorityfile"
	"github.com/dmc-trials/sigtrack/internal/sigconfig"
	"github.com/stretchr/testify/require"
)

const twoSigConfig = `
signature "A" plate 10 visit * fields 5 {
	plate 10;
}
signature "B" plate 20 visit * fields 6-7 {
	plate 20;
}
`

func TestWriteFlattensFields(t *testing.T) {
	recs, err := sigconfig.Parse(strings.NewReader(twoSigConfig), "test", nil)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, priorityfile.Write(&buf, recs))

	require.Equal(t, "10|5|1\n20|6|2\n20|7|2\n", buf.String())
}
