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
	"fmt"
	"sync"

	"github.com/solarisdb/lrumap/golibs/errors"
)

type (
	// Cache is the go-routine safe version of Map. All the Map operations are guarded by one lock,
	// so the index and the recency list are always changed together.
	//
	// The elements can be created automatically if they are not found in the cache via the createNewF
	// function call, which is provided via the Cache creation (see NewCache), or via an initializer
	// provided per call (see GetOrInit). The initializers are never called under the lock, so they
	// may be expensive and may use the cache themselves.
	Cache[K comparable, V any] struct {
		lock       sync.Mutex
		items      *Map[K, V]
		inflight   map[K]chan struct{}
		createNewF CreatePoolElemF[K, V]
		onDeleteF  OnDeleteElemF[K, V]
		stats      Stats
	}

	// CreatePoolElemF function type for creating new pool elements
	CreatePoolElemF[K any, V any] func(k K) (V, error)
)

// NewCache creates new cache object. It expects the maximum cache size (maxSize), the function for
// creating new elements and the function which is called for the deleted ones. Both functions may be
// nil. If createNewF is nil, GetOrCreate() cannot be used, but GetOrInit() still works.
func NewCache[K comparable, V any](maxSize int, createNewF CreatePoolElemF[K, V], onDeleteF OnDeleteElemF[K, V]) (*Cache[K, V], error) {
	c := new(Cache[K, V])
	items, err := NewMap[K, V](maxSize, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("NewCache(): %w", err)
	}
	c.items = items
	c.inflight = make(map[K]chan struct{})
	c.createNewF = createNewF
	c.onDeleteF = onDeleteF
	return c, nil
}

// GetOrCreate returns an existing cache element or creates the new one by its key via createNewF
func (c *Cache[K, V]) GetOrCreate(k K) (V, error) {
	if c.createNewF == nil {
		return *new(V), fmt.Errorf("GetOrCreate(): the cache has no createNewF: %w", errors.ErrInvalid)
	}
	return c.GetOrInit(k, func() (V, error) {
		return c.createNewF(k)
	})
}

// GetOrInit returns the value for the key k. If the key is not in the cache, initF is called
// to get the value, which is stored in the cache as the most recently used one.
//
// Only one go-routine calls an initializer for a missing key, others wait for the result.
// If the initializer returns an error, the cache is not changed, the error is returned to the
// caller, and one of the waiting go-routines (if any) tries its own initializer. If the key
// was added by Insert() while initF was running, the inserted value wins and initF result is
// dropped.
func (c *Cache[K, V]) GetOrInit(k K, initF func() (V, error)) (V, error) {
	for {
		c.lock.Lock()
		if v, ok := c.items.Get(k); ok {
			c.stats.Hits++
			c.lock.Unlock()
			return v, nil
		}
		ch, watcher := c.inflight[k]
		if !watcher {
			ch = make(chan struct{})
			c.inflight[k] = ch
			c.stats.Misses++
		}
		c.lock.Unlock()

		// if watcher is true, it means that another goroutine already creating the new item,
		// so it needs to wait for the result instead of requesting new value.
		if watcher {
			<-ch
			continue
		}

		v, err := c.callInit(k, ch, initF)

		c.lock.Lock()
		c.done(k, ch)
		if err != nil {
			c.stats.InitErrors++
			c.lock.Unlock()
			return *new(V), err
		}
		c.stats.Inits++
		if cur, ok := c.items.Get(k); ok {
			c.lock.Unlock()
			return cur, nil
		}
		c.items.Insert(k, v)
		c.lock.Unlock()

		return v, nil
	}
}

// Get returns the value by its key and makes it the most recently used
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	v, ok := c.items.Get(k)
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return v, ok
}

// Peek returns the value by its key without updating the recency
func (c *Cache[K, V]) Peek(k K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.items.Peek(k)
}

// Contains returns whether the key is in the cache
func (c *Cache[K, V]) Contains(k K) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.items.Contains(k)
}

// Insert puts the value for the key k. It returns the previous value and true if the key
// was in the cache. The replaced value is not reported to onDeleteF.
func (c *Cache[K, V]) Insert(k K, v V) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.items.Insert(k, v)
}

// Remove deletes the element by key k. It returns the value and true if the element
// was in the collection and false if it was not found
func (c *Cache[K, V]) Remove(k K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	v, ok := c.items.Remove(k)
	if ok && c.onDeleteF != nil {
		c.onDeleteF(k, v)
	}
	return v, ok
}

// Clear cleans up the cache removing all elements. The function will return number of the elements deleted
func (c *Cache[K, V]) Clear() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	removed := c.items.Len()
	if c.onDeleteF != nil {
		it := c.items.Iterator()
		defer it.Close()
		for it.HasNext() {
			e, _ := it.Next()
			c.onDeleteF(e.Key, e.Value)
		}
	}
	_ = c.items.Reset()
	return removed
}

// Len returns the number of elements in the cache
func (c *Cache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.items.Len()
}

// Cap returns the cache capacity
func (c *Cache[K, V]) Cap() int {
	return c.items.Cap()
}

// Stats returns the cache counters snapshot
func (c *Cache[K, V]) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.stats
}

// callInit calls initF. If initF panics, the in-flight record is dropped, so the
// waiters are not blocked forever, and the panic goes further.
func (c *Cache[K, V]) callInit(k K, ch chan struct{}, initF func() (V, error)) (v V, err error) {
	ok := false
	defer func() {
		if !ok {
			c.lock.Lock()
			c.done(k, ch)
			c.lock.Unlock()
		}
	}()
	v, err = initF()
	ok = true
	return
}

// done releases the waiters of the key k. Must be called under the lock
func (c *Cache[K, V]) done(k K, ch chan struct{}) {
	close(ch)
	delete(c.inflight, k)
}

// onEvict is called by the Map under the lock
func (c *Cache[K, V]) onEvict(k K, v V) {
	c.stats.Evictions++
	if c.onDeleteF != nil {
		c.onDeleteF(k, v)
	}
}
