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

// Package rangeset implements an ordered sequence of inclusive integer
// intervals, used throughout the signature configuration grammar to
// describe visit windows, signature-field enumerations, and per-plate
// ignore lists.
package rangeset

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// wildcardMax is the upper bound substituted for the "*" wildcard
// element, matching the DSL's 32-bit-signed convention.
const wildcardMax = 1<<31 - 1

// ErrInvalidRange is returned by Parse when the input cannot be
// interpreted as a range-set expression.
var ErrInvalidRange = errors.New("invalid range")

// interval is a single closed range [Min, Max].
type interval struct {
	Min, Max int64
}

// Set is an ordered sequence of inclusive closed intervals over 64-bit
// signed integers. The zero value is the empty set. No merging or
// normalization of overlapping intervals is performed; Set preserves
// insertion order exactly as the DSL or construction call presented it.
type Set struct {
	elems []interval
}

// Prepend creates a new Set with the interval [min,max] inserted at the
// head, ahead of any elements already present in s. The arguments are
// swapped if min > max. s is not mutated; a new Set is returned.
func (s Set) Prepend(min, max int64) Set {
	if min > max {
		min, max = max, min
	}
	out := make([]interval, 0, len(s.elems)+1)
	out = append(out, interval{min, max})
	out = append(out, s.elems...)
	return Set{elems: out}
}

// Parse accepts a comma-separated list of elements, each either a bare
// integer or an "N-N" span, plus the wildcard "*" meaning [0, 2^31-1].
// Whitespace around elements and separators is ignored. An empty string
// parses to the empty Set without error. A trailing separator or any
// character outside digits, whitespace, ",", "-", and "*" is rejected
// with ErrInvalidRange.
func Parse(s string) (Set, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Set{}, nil
	}

	var out Set
	for _, rawElem := range strings.Split(trimmed, ",") {
		elem := strings.TrimSpace(rawElem)
		if elem == "" {
			return Set{}, errors.Wrapf(ErrInvalidRange, "empty element in %q", s)
		}
		if elem == "*" {
			out = out.Prepend(0, wildcardMax)
			continue
		}

		min, max, err := parseElement(elem)
		if err != nil {
			return Set{}, errors.Wrapf(ErrInvalidRange, "element %q in %q: %s", elem, s, err)
		}
		out = out.Prepend(min, max)
	}

	// Parse builds head-first via Prepend, which means the last element
	// read ends up first. Reverse once so iteration order matches the
	// textual, left-to-right order of s.
	return out.reversed(), nil
}

func parseElement(elem string) (min, max int64, err error) {
	parts := strings.SplitN(elem, "-", 2)
	min, err = strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, errors.New("not a number")
	}
	if len(parts) == 1 {
		return min, min, nil
	}
	if strings.TrimSpace(parts[1]) == "" {
		return 0, 0, errors.New("dangling '-'")
	}
	max, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, errors.New("not a number")
	}
	if min > max {
		min, max = max, min
	}
	return min, max, nil
}

func (s Set) reversed() Set {
	out := make([]interval, len(s.elems))
	for i, e := range s.elems {
		out[len(s.elems)-1-i] = e
	}
	return Set{elems: out}
}

// String renders the Set head-first, comma-separated, collapsing a
// singleton interval to its single value.
func (s Set) String() string {
	var b strings.Builder
	for i, e := range s.elems {
		if i > 0 {
			b.WriteByte(',')
		}
		if e.Min == e.Max {
			b.WriteString(strconv.FormatInt(e.Min, 10))
		} else {
			b.WriteString(strconv.FormatInt(e.Min, 10))
			b.WriteByte('-')
			b.WriteString(strconv.FormatInt(e.Max, 10))
		}
	}
	return b.String()
}

// Contains reports whether v falls within any element of the Set.
func (s Set) Contains(v int64) bool {
	for _, e := range s.elems {
		if v >= e.Min && v <= e.Max {
			return true
		}
	}
	return false
}

// Values enumerates every member of the Set in ascending order. It is
// meant for small sets (a handful of signature fields), not for
// iterating a wildcard range.
func (s Set) Values() []int64 {
	var out []int64
	for _, e := range s.elems {
		for v := e.Min; v <= e.Max; v++ {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Min returns the smallest value across all elements and true, or
// (0, false) if the Set is empty.
func (s Set) Min() (int64, bool) {
	if len(s.elems) == 0 {
		return 0, false
	}
	min := s.elems[0].Min
	for _, e := range s.elems[1:] {
		if e.Min < min {
			min = e.Min
		}
	}
	return min, true
}

// Max returns the largest value across all elements and true, or
// (0, false) if the Set is empty.
func (s Set) Max() (int64, bool) {
	if len(s.elems) == 0 {
		return 0, false
	}
	max := s.elems[0].Max
	for _, e := range s.elems[1:] {
		if e.Max > max {
			max = e.Max
		}
	}
	return max, true
}

// Width returns the sum of (max-min+1) across all elements: the
// cardinality of the set if elements don't overlap.
func (s Set) Width() int64 {
	var total int64
	for _, e := range s.elems {
		total += e.Max - e.Min + 1
	}
	return total
}

// Empty reports whether the Set has no elements.
func (s Set) Empty() bool {
	return len(s.elems) == 0
}

// Duplicate returns a structural copy of s. Because Set is built from
// an internal slice, simple assignment would share backing storage;
// Duplicate is used wherever a caller must hand out an independently
// mutable copy, such as per sibling plate record.
func (s Set) Duplicate() Set {
	out := make([]interval, len(s.elems))
	copy(out, s.elems)
	return Set{elems: out}
}
