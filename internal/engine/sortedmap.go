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
	"cmp"
	"sort"
)

// sortedMap is a keyed container with deterministic, key-ordered
// iteration and O(1) lookup by key, standing in for an intrusive
// balanced tree for collections like a node's covered plates or a
// plate's field changes. Lookup by key is O(1) via the index map;
// insertion of a brand-new key costs an O(log n) search plus an O(n)
// slice insert, fine for these collection sizes (a handful of
// plates/fields per node).
type sortedMap[K cmp.Ordered, V any] struct {
	keys   []K
	values map[K]V
}

func newSortedMap[K cmp.Ordered, V any]() *sortedMap[K, V] {
	return &sortedMap[K, V]{values: make(map[K]V)}
}

// Get returns the value for key and whether it was present.
func (m *sortedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Put inserts or overwrites the value for key, preserving sorted order
// of new keys.
func (m *sortedMap[K, V]) Put(key K, value V) {
	if _, exists := m.values[key]; !exists {
		i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= key })
		m.keys = append(m.keys, key)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = key
	}
	m.values[key] = value
}

// Delete removes key, if present.
func (m *sortedMap[K, V]) Delete(key K) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= key })
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
}

// Len reports the number of entries.
func (m *sortedMap[K, V]) Len() int {
	return len(m.keys)
}

// Range calls fn for every entry in ascending key order, stopping
// early if fn returns false.
func (m *sortedMap[K, V]) Range(fn func(key K, value V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Keys returns the keys in ascending order.
func (m *sortedMap[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}
