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

package rangeset_test

import (
	"testing"

	"github.com/dmc-trials/sigtrack/internal/rangeset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	r := require.New(t)

	s, err := rangeset.Parse("1-3,5,7-10")
	r.NoError(err)

	r.Equal("1-3,5,7-10", s.String())
	r.EqualValues(8, s.Width())
	r.False(s.Contains(4))
	r.True(s.Contains(8))
	min, ok := s.Min()
	r.True(ok)
	r.EqualValues(1, min)
	max, ok := s.Max()
	r.True(ok)
	r.EqualValues(10, max)
}

func TestParseWildcard(t *testing.T) {
	s, err := rangeset.Parse("*")
	require.NoError(t, err)
	assert.True(t, s.Contains(0))
	assert.True(t, s.Contains(1<<30))
	assert.False(t, s.Contains(-1))
}

func TestParseEmpty(t *testing.T) {
	s, err := rangeset.Parse("")
	require.NoError(t, err)
	assert.True(t, s.Empty())
	assert.Equal(t, "", s.String())
}

func TestParseInvertedElement(t *testing.T) {
	s, err := rangeset.Parse("10-5")
	require.NoError(t, err)
	assert.Equal(t, "5-10", s.String())
}

func TestParseWhitespace(t *testing.T) {
	s, err := rangeset.Parse("  1 - 3 , 5 ")
	require.NoError(t, err)
	assert.Equal(t, "1-3,5", s.String())
}

func TestParseErrors(t *testing.T) {
	for _, bad := range []string{"1-", "abc", "1,,2", "1-2-3"} {
		_, err := rangeset.Parse(bad)
		assert.Errorf(t, err, "expected error for %q", bad)
	}
}

func TestPrependOrderAndSwap(t *testing.T) {
	var s rangeset.Set
	s = s.Prepend(5, 1) // inverted, should swap
	s = s.Prepend(10, 10)
	assert.Equal(t, "10,1-5", s.String())
}

func TestDuplicateIsIndependent(t *testing.T) {
	orig, err := rangeset.Parse("1-3")
	require.NoError(t, err)
	dup := orig.Duplicate()
	dup = dup.Prepend(99, 99)

	assert.Equal(t, "1-3", orig.String())
	assert.Equal(t, "99,1-3", dup.String())
}

func TestMinMaxEmptySet(t *testing.T) {
	var s rangeset.Set
	_, ok := s.Min()
	assert.False(t, ok)
	_, ok = s.Max()
	assert.False(t, ok)
}
