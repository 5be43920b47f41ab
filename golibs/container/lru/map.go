// Copyright 2024 The Solaris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lru

import (
	"fmt"
	"math"

	"github.com/solarisdb/lrumap/golibs"
	"github.com/solarisdb/lrumap/golibs/container/iterable"
	"github.com/solarisdb/lrumap/golibs/errors"
)

type (
	// Map is a fixed capacity key-value container with the LRU (Least Recently Used) eviction
	// discipline. When a new key is added into the full Map, the least recently used entry is
	// removed first, so the number of entries never exceeds the capacity provided on creation.
	//
	// The entries are kept in an arena of slots addressed by indices. The index map points to
	// the slot of a key, and every slot keeps prev/next indices of the recency list, so the
	// lookup, the promotion and the eviction are O(1).
	//
	// Map is not safe for concurrent use, please see Cache for the go-routine safe version.
	Map[K comparable, V any] struct {
		index    map[K]int32
		slots    []slot[K, V]
		head     int32 // least recently used
		tail     int32 // most recently used
		free     int32
		capacity int
		onEvictF OnDeleteElemF[K, V]
	}

	// Entry is a key-value pair stored in the Map
	Entry[K comparable, V any] struct {
		Key   K
		Value V
	}

	slot[K comparable, V any] struct {
		key  K
		val  V
		prev int32
		next int32
	}

	// OnDeleteElemF is called for an element which is removed from a container
	OnDeleteElemF[K any, V any] func(k K, v V)
)

const (
	nilIdx = int32(-1)

	// the index map hint is bounded, big maps grow on demand
	maxPrealloc = 4096
)

var _ golibs.Reseter = (*Map[int, int])(nil)

// NewMap creates the new Map with the fixed capacity. The capacity must be positive. onEvictF
// is optional, if provided, it is called for every entry evicted due to the capacity limit, but
// not for the entries removed by Remove() or Reset().
func NewMap[K comparable, V any](capacity int, onEvictF OnDeleteElemF[K, V]) (*Map[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("NewMap(): the capacity=%d, but it cannot be less than 1: %w", capacity, errors.ErrInvalid)
	}
	if capacity > math.MaxInt32 {
		return nil, fmt.Errorf("NewMap(): the capacity=%d, but it cannot be greater than %d: %w", capacity, math.MaxInt32, errors.ErrInvalid)
	}
	m := new(Map[K, V])
	m.capacity = capacity
	m.onEvictF = onEvictF
	m.index = make(map[K]int32, min(capacity, maxPrealloc))
	m.slots = make([]slot[K, V], 0, min(capacity, maxPrealloc))
	m.head, m.tail, m.free = nilIdx, nilIdx, nilIdx
	return m, nil
}

// GetOrInit returns the value for the key k. If the key is not in the map, initF is called
// exactly once to produce the value, which is inserted as the most recently used one. The
// least recently used entry is evicted if the map is full.
func (m *Map[K, V]) GetOrInit(k K, initF func() V) V {
	if idx, ok := m.index[k]; ok {
		m.moveToBack(idx)
		return m.slots[idx].val
	}
	v := initF()
	if idx, ok := m.index[k]; ok {
		// initF put the key itself, the first writer wins
		m.moveToBack(idx)
		return m.slots[idx].val
	}
	m.add(k, v)
	return v
}

// TryGetOrInit is GetOrInit for an initializer which may fail. If initF returns an error,
// the map is left exactly as it was before the call, and the error is returned as is.
func (m *Map[K, V]) TryGetOrInit(k K, initF func() (V, error)) (V, error) {
	if idx, ok := m.index[k]; ok {
		m.moveToBack(idx)
		return m.slots[idx].val, nil
	}
	v, err := initF()
	if err != nil {
		return *new(V), err
	}
	if idx, ok := m.index[k]; ok {
		m.moveToBack(idx)
		return m.slots[idx].val, nil
	}
	m.add(k, v)
	return v, nil
}

// Get returns the value by the key k and makes it the most recently used one. The map is
// not changed if the key is not found.
func (m *Map[K, V]) Get(k K) (V, bool) {
	idx, ok := m.index[k]
	if !ok {
		return *new(V), false
	}
	m.moveToBack(idx)
	return m.slots[idx].val, true
}

// Peek returns the value by the key k, but doesn't update its recency
func (m *Map[K, V]) Peek(k K) (V, bool) {
	idx, ok := m.index[k]
	if !ok {
		return *new(V), false
	}
	return m.slots[idx].val, true
}

// Contains returns whether the key k is in the map. The recency is not updated.
func (m *Map[K, V]) Contains(k K) bool {
	_, ok := m.index[k]
	return ok
}

// Insert puts the value v for the key k and makes the key the most recently used. If the key
// already exists, its value is replaced and the previous one is returned with true. For a new
// key the least recently used entry is evicted if the map is full.
func (m *Map[K, V]) Insert(k K, v V) (V, bool) {
	if idx, ok := m.index[k]; ok {
		s := &m.slots[idx]
		old := s.val
		s.val = v
		m.moveToBack(idx)
		return old, true
	}
	m.add(k, v)
	return *new(V), false
}

// Remove deletes the entry by the key k. It returns the value removed and true, or false
// if the key is not found. Other entries are never affected.
func (m *Map[K, V]) Remove(k K) (V, bool) {
	idx, ok := m.index[k]
	if !ok {
		return *new(V), false
	}
	v := m.slots[idx].val
	m.unlink(idx)
	delete(m.index, k)
	m.release(idx)
	return v, true
}

// Oldest returns the least recently used entry without updating its recency
func (m *Map[K, V]) Oldest() (K, V, bool) {
	if m.head == nilIdx {
		return *new(K), *new(V), false
	}
	s := &m.slots[m.head]
	return s.key, s.val, true
}

// Keys returns the keys from the least to the most recently used
func (m *Map[K, V]) Keys() []K {
	res := make([]K, 0, len(m.index))
	for idx := m.head; idx != nilIdx; idx = m.slots[idx].next {
		res = append(res, m.slots[idx].key)
	}
	return res
}

// Iterator returns an iterator over the map entries from the least to the most recently used.
// The iterator walks over a snapshot, so the map may be changed while the iterator is in use.
// The recency of the entries is not updated.
func (m *Map[K, V]) Iterator() iterable.Iterator[Entry[K, V]] {
	res := make([]Entry[K, V], 0, len(m.index))
	for idx := m.head; idx != nilIdx; idx = m.slots[idx].next {
		s := &m.slots[idx]
		res = append(res, Entry[K, V]{Key: s.key, Value: s.val})
	}
	return iterable.WrapSlice(res)
}

// Len returns the number of entries in the map
func (m *Map[K, V]) Len() int {
	return len(m.index)
}

// IsEmpty returns true if the map has no entries
func (m *Map[K, V]) IsEmpty() bool {
	return len(m.index) == 0
}

// Cap returns the map capacity
func (m *Map[K, V]) Cap() int {
	return m.capacity
}

// Reset removes all the entries, the capacity stays the same. onEvictF is not called.
func (m *Map[K, V]) Reset() error {
	clear(m.index)
	clear(m.slots)
	m.slots = m.slots[:0]
	m.head, m.tail, m.free = nilIdx, nilIdx, nilIdx
	return nil
}

// add puts the new key into the map, the key must not be in the map yet. onEvictF is
// called when the new entry is already in the map, so the callback observes (and may
// change) a map which holds no more than capacity entries.
func (m *Map[K, V]) add(k K, v V) {
	var (
		ek      K
		ev      V
		evicted bool
	)
	if len(m.index) >= m.capacity {
		ek, ev = m.evict()
		evicted = true
	}
	idx := m.alloc()
	s := &m.slots[idx]
	s.key, s.val = k, v
	m.pushBack(idx)
	m.index[k] = idx
	if evicted && m.onEvictF != nil {
		m.onEvictF(ek, ev)
	}
}

// evict removes the least recently used entry and returns it
func (m *Map[K, V]) evict() (K, V) {
	idx := m.head
	s := &m.slots[idx]
	k, v := s.key, s.val
	m.unlink(idx)
	delete(m.index, k)
	m.release(idx)
	return k, v
}

// alloc returns an unlinked slot index, it re-uses the released slots first
func (m *Map[K, V]) alloc() int32 {
	if m.free != nilIdx {
		idx := m.free
		m.free = m.slots[idx].next
		return idx
	}
	m.slots = append(m.slots, slot[K, V]{})
	return int32(len(m.slots) - 1)
}

func (m *Map[K, V]) release(idx int32) {
	m.slots[idx] = slot[K, V]{prev: nilIdx, next: m.free}
	m.free = idx
}

func (m *Map[K, V]) moveToBack(idx int32) {
	if m.tail == idx {
		return
	}
	m.unlink(idx)
	m.pushBack(idx)
}

func (m *Map[K, V]) pushBack(idx int32) {
	s := &m.slots[idx]
	s.prev, s.next = m.tail, nilIdx
	if m.tail != nilIdx {
		m.slots[m.tail].next = idx
	} else {
		m.head = idx
	}
	m.tail = idx
}

func (m *Map[K, V]) unlink(idx int32) {
	s := &m.slots[idx]
	if s.prev != nilIdx {
		m.slots[s.prev].next = s.next
	} else {
		m.head = s.next
	}
	if s.next != nilIdx {
		m.slots[s.next].prev = s.prev
	} else {
		m.tail = s.prev
	}
	s.prev, s.next = nilIdx, nilIdx
}
