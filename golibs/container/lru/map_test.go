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
	"math/rand"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/stretchr/testify/assert"
)

func BenchmarkMap_GetOrInit_NoMisses(b *testing.B) {
	m, _ := NewMap[string, string](1, nil)
	initF := func() string { return "bb" }
	m.GetOrInit("aa", initF)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.GetOrInit("aa", initF)
	}
}

func BenchmarkMap_GetOrInit_Misses(b *testing.B) {
	m, _ := NewMap[int, string](1000, nil)
	initF := func() string { return "bb" }

	// We have 1000 elements in the map, but only 1/3 of requests should hit it
	rnd := rand.New(rand.NewSource(time.Now().UnixMicro()))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.GetOrInit(rnd.Intn(3000), initF)
	}
}

func TestNewMap(t *testing.T) {
	m, err := NewMap[string, int](2, nil)
	assert.Nil(t, err)
	assert.Equal(t, 0, m.Len())
	assert.True(t, m.IsEmpty())
	assert.Equal(t, 2, m.Cap())

	_, err = NewMap[string, int](0, nil)
	assert.ErrorIs(t, err, errors.ErrInvalid)
	_, err = NewMap[string, int](-1, nil)
	assert.ErrorIs(t, err, errors.ErrInvalid)
}

func TestMap_GetOrInit(t *testing.T) {
	m, err := NewMap[string, int](2, nil)
	assert.Nil(t, err)

	calls := 0
	a := m.GetOrInit("a", func() int {
		calls++
		return 10
	})
	b := m.GetOrInit("a", func() int {
		calls++
		return 12
	})
	assert.Equal(t, 10, a)
	assert.Equal(t, 10, b)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, m.Len())
}

func TestMap_GetOrInitEvicts(t *testing.T) {
	var evicted []string
	m, err := NewMap[string, int](2, func(k string, v int) {
		evicted = append(evicted, k)
	})
	assert.Nil(t, err)

	m.GetOrInit("a", func() int { return 1 })
	m.GetOrInit("b", func() int { return 2 })
	m.GetOrInit("a", func() int { return 100 })
	assert.Equal(t, 3, m.GetOrInit("c", func() int { return 3 }))
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"a", "c"}, m.Keys())
	assert.Equal(t, 2, m.Len())
}

func TestMap_GetOrInitReentrant(t *testing.T) {
	m, err := NewMap[string, int](2, nil)
	assert.Nil(t, err)

	v := m.GetOrInit("a", func() int {
		m.Insert("a", 5)
		return 7
	})
	assert.Equal(t, 5, v)
	assert.Equal(t, 1, m.Len())
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestMap_TryGetOrInit(t *testing.T) {
	m, err := NewMap[string, int](2, nil)
	assert.Nil(t, err)
	m.Insert("a", 1)
	m.Insert("b", 2)

	_, err = m.TryGetOrInit("c", func() (int, error) {
		return 0, os.ErrClosed
	})
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	assert.False(t, m.Contains("c"))

	v, err := m.TryGetOrInit("a", func() (int, error) {
		assert.Fail(t, "must not be called")
		return 0, nil
	})
	assert.Nil(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"b", "a"}, m.Keys())

	v, err = m.TryGetOrInit("c", func() (int, error) { return 3, nil })
	assert.Nil(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"a", "c"}, m.Keys())
}

func TestMap_Get(t *testing.T) {
	m, err := NewMap[string, int](2, nil)
	assert.Nil(t, err)

	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	m.Insert("a", 1)
	m.Insert("b", 2)
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"b", "a"}, m.Keys())
}

func TestMap_PeekContains(t *testing.T) {
	m, err := NewMap[string, int](2, nil)
	assert.Nil(t, err)
	m.Insert("a", 1)
	m.Insert("b", 2)

	v, ok := m.Peek("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, m.Contains("a"))
	assert.Equal(t, []string{"a", "b"}, m.Keys())

	_, ok = m.Peek("c")
	assert.False(t, ok)
	assert.False(t, m.Contains("c"))
}

func TestMap_Insert(t *testing.T) {
	m, err := NewMap[string, int](2, nil)
	assert.Nil(t, err)

	_, ok := m.Insert("a", 1)
	assert.False(t, ok)
	_, ok = m.Insert("b", 2)
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())

	m.Get("a")
	_, ok = m.Insert("c", 3)
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())
	assert.False(t, m.Contains("b"))
	v, _ := m.Peek("a")
	assert.Equal(t, 1, v)
	v, _ = m.Peek("c")
	assert.Equal(t, 3, v)

	old, ok := m.Insert("a", 11)
	assert.True(t, ok)
	assert.Equal(t, 1, old)
	assert.Equal(t, []string{"c", "a"}, m.Keys())
	v, ok = m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 11, v)
}

func TestMap_Remove(t *testing.T) {
	var evicted []string
	m, err := NewMap[string, int](2, func(k string, v int) {
		evicted = append(evicted, k)
	})
	assert.Nil(t, err)

	m.Insert("a", 1)
	v, ok := m.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	_, ok = m.Remove("a")
	assert.False(t, ok)

	m.Insert("a", 1)
	m.Insert("b", 2)
	m.Insert("c", 3)
	m.Remove("b")
	assert.Equal(t, []string{"c"}, m.Keys())
	assert.Equal(t, []string{"a"}, evicted)
}

func TestMap_Oldest(t *testing.T) {
	m, err := NewMap[int, int](3, nil)
	assert.Nil(t, err)
	_, _, ok := m.Oldest()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		m.Insert(i, i*10)
	}
	k, v, ok := m.Oldest()
	assert.True(t, ok)
	assert.Equal(t, 0, k)
	assert.Equal(t, 0, v)
	m.Get(0)
	k, v, ok = m.Oldest()
	assert.True(t, ok)
	assert.Equal(t, 1, k)
	assert.Equal(t, 10, v)
}

func TestMap_Iterator(t *testing.T) {
	m, err := NewMap[int, int](10, nil)
	assert.Nil(t, err)

	for i := 0; i < 20; i++ {
		m.GetOrInit(i, func() int { return i })
	}
	assert.Equal(t, 10, m.Len())
	it := m.Iterator()
	defer it.Close()
	m.Remove(15)
	cnt := 10
	for it.HasNext() {
		e, ok := it.Next()
		assert.True(t, ok)
		assert.Equal(t, e.Key, e.Value)
		assert.Equal(t, cnt, e.Value)
		cnt++
	}
	assert.Equal(t, 20, cnt)
	_, ok := it.Next()
	assert.False(t, ok)
}

func TestMap_Reset(t *testing.T) {
	m, err := NewMap[int, int](10, func(k, v int) {
		assert.Fail(t, "must not be called")
	})
	assert.Nil(t, err)
	for i := 0; i < 10; i++ {
		m.Insert(i, i)
	}
	assert.Nil(t, m.Reset())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 10, m.Cap())
	assert.Empty(t, m.Keys())

	for i := 0; i < 10; i++ {
		m.Insert(i, i)
	}
	assert.Equal(t, 10, m.Len())
}

func TestMap_SlotsReused(t *testing.T) {
	m, err := NewMap[int, int](5, nil)
	assert.Nil(t, err)
	for i := 0; i < 1000; i++ {
		m.Insert(i, i)
		if i%3 == 0 {
			m.Remove(i)
		}
	}
	assert.LessOrEqual(t, len(m.slots), 5)
	// 999 is removed last
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, []int{994, 995, 997, 998}, m.Keys())

	m.Insert(1000, 1000)
	assert.LessOrEqual(t, len(m.slots), 5)
	assert.Equal(t, 5, m.Len())
}

func TestMap_EvictCallbackInserts(t *testing.T) {
	var m *Map[int, int]
	var evicted []int
	m, err := NewMap[int, int](2, func(k, v int) {
		evicted = append(evicted, k)
		assert.LessOrEqual(t, m.Len(), m.Cap())
		if k < 100 {
			m.Insert(k+100, v)
		}
	})
	assert.Nil(t, err)

	for i := 1; i <= 3; i++ {
		m.Insert(i, i)
		assert.LessOrEqual(t, m.Len(), 2)
	}
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []int{102, 103}, m.Keys())
	assert.Equal(t, []int{1, 2, 3, 101}, evicted)
	v, ok := m.Peek(103)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	m.GetOrInit(4, func() int { return 4 })
	assert.Equal(t, 2, m.Len())
}

// TestMap_Model compares the Map with a slice based LRU on random operations
func TestMap_Model(t *testing.T) {
	const capacity = 7
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	m, err := NewMap[int, int](capacity, nil)
	assert.Nil(t, err)

	model := []Entry[int, int]{}
	find := func(k int) int {
		return slices.IndexFunc(model, func(e Entry[int, int]) bool { return e.Key == k })
	}
	touch := func(idx int) Entry[int, int] {
		e := model[idx]
		model = append(slices.Delete(model, idx, idx+1), e)
		return e
	}
	add := func(k, v int) {
		if len(model) == capacity {
			model = model[1:]
		}
		model = append(model, Entry[int, int]{Key: k, Value: v})
	}

	for i := 0; i < 10000; i++ {
		k := rnd.Intn(capacity * 2)
		idx := find(k)
		switch rnd.Intn(5) {
		case 0:
			v, ok := m.Get(k)
			assert.Equal(t, idx >= 0, ok)
			if ok {
				assert.Equal(t, touch(idx).Value, v)
			}
		case 1:
			v := m.GetOrInit(k, func() int { return i })
			if idx >= 0 {
				assert.Equal(t, touch(idx).Value, v)
			} else {
				assert.Equal(t, i, v)
				add(k, i)
			}
		case 2:
			old, ok := m.Insert(k, i)
			assert.Equal(t, idx >= 0, ok)
			if ok {
				assert.Equal(t, model[idx].Value, old)
				model[idx].Value = i
				touch(idx)
			} else {
				add(k, i)
			}
		case 3:
			v, ok := m.Remove(k)
			assert.Equal(t, idx >= 0, ok)
			if ok {
				assert.Equal(t, model[idx].Value, v)
				model = slices.Delete(model, idx, idx+1)
			}
		case 4:
			_, err := m.TryGetOrInit(k, func() (int, error) { return 0, os.ErrInvalid })
			if idx >= 0 {
				assert.Nil(t, err)
				touch(idx)
			} else {
				assert.ErrorIs(t, err, os.ErrInvalid)
			}
		}

		assert.LessOrEqual(t, m.Len(), capacity)
		assert.Equal(t, len(model), m.Len())
		keys := make([]int, 0, len(model))
		for _, e := range model {
			keys = append(keys, e.Key)
		}
		assert.Equal(t, keys, m.Keys())
	}
}
