// Copyright 2023 The acquirecloud Authors
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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/stretchr/testify/assert"
)

func BenchmarkCache_GetOrCreate_NoMisses(b *testing.B) {
	p, _ := NewCache(1, func(k string) (string, error) {
		return "bb", nil
	}, nil)

	p.GetOrCreate("aa")
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.GetOrCreate("aa")
	}
}

func BenchmarkCache_GetOrCreate_Misses(b *testing.B) {
	p, _ := NewCache(1000, func(k int) (string, error) {
		return "bb", nil
	}, nil)

	// We have 1000 elements in cache, but only 1/3 of requests should hit the cache
	rnd := rand.New(rand.NewSource(time.Now().UnixMicro()))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.GetOrCreate(rnd.Intn(3000))
	}
}

func TestNewCache(t *testing.T) {
	p, err := NewCache[string, string](1, func(k string) (string, error) {
		return "bb", nil
	}, nil)
	assert.Nil(t, err)
	r, err := p.GetOrCreate("aa")
	assert.Equal(t, "bb", r)
	assert.Nil(t, err)

	_, err = NewCache[string, string](0, func(k string) (string, error) { return "", nil }, nil)
	assert.ErrorIs(t, err, errors.ErrInvalid)

	p, err = NewCache[string, string](1, nil, nil)
	assert.Nil(t, err)
	_, err = p.GetOrCreate("aa")
	assert.ErrorIs(t, err, errors.ErrInvalid)
	r, err = p.GetOrInit("aa", func() (string, error) { return "cc", nil })
	assert.Nil(t, err)
	assert.Equal(t, "cc", r)
}

func TestCache_GetOrCreateSimple(t *testing.T) {
	cnt := 0
	p, err := NewCache[string, int](1, func(k string) (int, error) {
		cnt++
		return cnt, nil
	}, nil)
	assert.Nil(t, err)
	r, err := p.GetOrCreate("aa")
	assert.Equal(t, 1, r)
	assert.Nil(t, err)

	r, err = p.GetOrCreate("aa")
	assert.Equal(t, 1, r)
	assert.Nil(t, err)

	assert.Equal(t, 1, cnt)

	r, err = p.GetOrCreate("bb")
	assert.Equal(t, 2, r)
	assert.Nil(t, err)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 0, len(p.inflight))
	assert.Equal(t, 2, cnt)
	assert.Equal(t, Stats{Hits: 1, Misses: 2, Evictions: 1, Inits: 2}, p.Stats())
}

func TestCache_GetOrCreate(t *testing.T) {
	ch := make(chan struct{})
	cnt := int32(0)
	f := func(k int) (int, error) {
		res := atomic.AddInt32(&cnt, 1)
		<-ch
		return int(res), nil
	}
	p, err := NewCache[int, int](2, f, nil)
	assert.Nil(t, err)

	c := int32(0)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if atomic.AddInt32(&c, 1) == 10 {
				close(ch)
				return
			}
			v, err := p.GetOrCreate(23)
			assert.Nil(t, err)
			assert.Equal(t, 1, v)
		}()
	}

	res, err := p.GetOrCreate(23)
	assert.Equal(t, 1, res)
	assert.Nil(t, err)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&cnt))
	assert.Equal(t, 0, len(p.inflight))
}

func TestCache_GetOrCreateError(t *testing.T) {
	cnt := 0
	f := func(k int) (int, error) {
		cnt++
		return 0, os.ErrClosed
	}
	p, err := NewCache[int, int](2, f, nil)
	assert.Nil(t, err)
	p.Insert(2, 2)
	p.Insert(3, 3)

	for i := 0; i < 10; i++ {
		_, err := p.GetOrCreate(1)
		assert.ErrorIs(t, err, os.ErrClosed)
	}
	assert.Equal(t, 10, cnt)
	assert.Equal(t, 2, p.Len())
	assert.True(t, p.Contains(2))
	assert.True(t, p.Contains(3))
	assert.Equal(t, uint64(10), p.Stats().InitErrors)
	assert.Equal(t, uint64(0), p.Stats().Evictions)
}

func TestCache_GetOrInitReentrant(t *testing.T) {
	p, err := NewCache[string, int](10, nil, nil)
	assert.Nil(t, err)

	v, err := p.GetOrInit("a", func() (int, error) {
		b, err := p.GetOrInit("b", func() (int, error) { return 2, nil })
		return b + 1, err
	})
	assert.Nil(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, p.Len())
}

func TestCache_InsertWinsRace(t *testing.T) {
	p, err := NewCache[string, int](10, nil, nil)
	assert.Nil(t, err)

	started := make(chan struct{})
	inserted := make(chan struct{})
	var res int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, _ = p.GetOrInit("a", func() (int, error) {
			close(started)
			<-inserted
			return 1, nil
		})
	}()
	<-started
	_, ok := p.Insert("a", 2)
	assert.False(t, ok)
	close(inserted)
	wg.Wait()

	assert.Equal(t, 2, res)
	v, ok := p.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_GetOrInitPanic(t *testing.T) {
	p, err := NewCache[string, int](10, nil, nil)
	assert.Nil(t, err)

	assert.Panics(t, func() {
		p.GetOrInit("a", func() (int, error) {
			panic("oops")
		})
	})
	assert.Equal(t, 0, len(p.inflight))
	v, err := p.GetOrInit("a", func() (int, error) { return 1, nil })
	assert.Nil(t, err)
	assert.Equal(t, 1, v)
}

func TestCache_CheckOrder(t *testing.T) {
	f := func(k int) (int, error) {
		return k, nil
	}
	p, err := NewCache[int, int](10, f, nil)
	assert.Nil(t, err)

	for i := 0; i < 20; i++ {
		p.GetOrCreate(i)
	}
	assert.Equal(t, 10, p.Len())
	it := p.items.Iterator()
	defer it.Close()
	cnt := 10
	for it.HasNext() {
		e, ok := it.Next()
		assert.True(t, ok)
		assert.Equal(t, e.Key, e.Value)
		assert.Equal(t, cnt, e.Value)
		cnt++
	}
}

func TestCache_CheckDelete(t *testing.T) {
	f := func(k int) (int, error) {
		return k, nil
	}
	deleted := []int{}
	d := func(k, v int) {
		deleted = append(deleted, v)
	}
	p, err := NewCache[int, int](10, f, d)
	assert.Nil(t, err)

	for i := 0; i < 20; i++ {
		p.GetOrCreate(i)
	}
	assert.Equal(t, 10, p.Len())
	assert.Equal(t, 10, len(deleted))
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, deleted[i])
	}
	assert.Equal(t, uint64(10), p.Stats().Evictions)
}

func TestCache_Remove(t *testing.T) {
	f := func(k int) (int, error) {
		return k, nil
	}
	deleted := []int{}
	d := func(k, v int) {
		deleted = append(deleted, v)
	}
	p, err := NewCache[int, int](20, f, d)
	assert.Nil(t, err)

	for i := 0; i < 20; i++ {
		p.GetOrCreate(i)
	}
	assert.Equal(t, 0, len(deleted))
	v, ok := p.Remove(5)
	assert.True(t, ok)
	assert.Equal(t, 5, v)
	assert.Equal(t, []int{5}, deleted)
	_, ok = p.Remove(35)
	assert.False(t, ok)
	assert.Equal(t, []int{5}, deleted)
	assert.Equal(t, 19, p.Len())
}

func TestCache_Clear(t *testing.T) {
	f := func(k int) (int, error) {
		return k, nil
	}
	deleted := []int{}
	d := func(k, v int) {
		deleted = append(deleted, v)
	}
	p, err := NewCache[int, int](10, f, d)
	assert.Nil(t, err)

	for i := 0; i < 10; i++ {
		p.GetOrCreate(i)
	}
	assert.Equal(t, 10, p.Len())
	assert.Equal(t, 10, p.Clear())
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 10, len(deleted))
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, deleted[i])
	}

	p, err = NewCache[int, int](10, f, nil)
	assert.Nil(t, err)
	for i := 0; i < 10; i++ {
		p.GetOrCreate(i)
	}
	assert.Equal(t, 10, p.Len())
	assert.Equal(t, 10, p.Clear())
	assert.Equal(t, 0, p.Len())
}

func TestCache_Concurrent(t *testing.T) {
	const capacity = 50
	var inits int32
	p, err := NewCache[int, int](capacity, func(k int) (int, error) {
		atomic.AddInt32(&inits, 1)
		return k * 2, nil
	}, nil)
	assert.Nil(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < 2000; i++ {
				k := rnd.Intn(capacity * 3)
				switch rnd.Intn(4) {
				case 0:
					if v, ok := p.Get(k); ok {
						assert.Equal(t, k*2, v)
					}
				case 1:
					p.Remove(k)
				default:
					v, err := p.GetOrCreate(k)
					assert.Nil(t, err)
					assert.Equal(t, k*2, v)
				}
				assert.LessOrEqual(t, p.Len(), capacity)
			}
		}(int64(g))
	}
	wg.Wait()
	assert.Equal(t, 0, len(p.inflight))
	assert.LessOrEqual(t, p.Len(), capacity)
	assert.Equal(t, uint64(atomic.LoadInt32(&inits)), p.Stats().Inits)
}
