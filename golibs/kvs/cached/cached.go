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

package cached

import (
	"context"
	"sync/atomic"

	"github.com/logrange/linker"
	"github.com/solarisdb/lrumap/golibs/container/iterable"
	"github.com/solarisdb/lrumap/golibs/container/lru"
	"github.com/solarisdb/lrumap/golibs/kvs"
)

type (
	// Storage wraps a kvs.Storage with the LRU cache of records. The reads are served
	// from the cache, the misses are loaded from the backend once per key, even for
	// concurrent readers. The writes go to the backend and invalidate the cached key.
	// The not found results are not cached.
	Storage struct {
		storage kvs.Storage
		cache   *lru.Cache[string, kvs.Record]
		loads   atomic.Uint64
	}
)

var _ kvs.Storage = (*Storage)(nil)

// New wraps the storage into the cache of the capacity provided
func New(storage kvs.Storage, capacity int) (*Storage, error) {
	s := &Storage{storage: storage}
	var err error
	s.cache, err = lru.NewCache[string, kvs.Record](capacity, nil, nil)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Init implements linker.Initializer
func (s *Storage) Init(ctx context.Context) error {
	if init, ok := s.storage.(linker.Initializer); ok {
		return init.Init(ctx)
	}
	return nil
}

// Shutdown implements linker.Shutdowner
func (s *Storage) Shutdown() {
	if shut, ok := s.storage.(linker.Shutdowner); ok {
		shut.Shutdown()
	}
}

// Stats returns the cache statistics
func (s *Storage) Stats() lru.Stats {
	return s.cache.Stats()
}

// Loads returns the number of the backend reads made for the cache misses
func (s *Storage) Loads() uint64 {
	return s.loads.Load()
}

// Create implements kvs.Storage
func (s *Storage) Create(ctx context.Context, record kvs.Record) (string, error) {
	ver, err := s.storage.Create(ctx, record)
	s.cache.Remove(record.Key)
	return ver, err
}

// Get implements kvs.Storage
func (s *Storage) Get(ctx context.Context, key string) (kvs.Record, error) {
	r, err := s.cache.GetOrInit(key, func() (kvs.Record, error) {
		s.loads.Add(1)
		return s.storage.Get(ctx, key)
	})
	if err != nil {
		return kvs.Record{}, err
	}
	return r.Copy(), nil
}

// GetMany implements kvs.Storage. The cached records are returned as is, the
// rest are read from the backend by one call and put into the cache. A write of a
// missed key, which completes while the backend call is in progress, may be
// overwritten in the cache by the record read before the write, the same way as
// for a concurrent Get.
func (s *Storage) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	res := make([]*kvs.Record, len(keys))
	var missed []string
	var missedIdx []int
	for idx, key := range keys {
		if r, ok := s.cache.Get(key); ok {
			r = r.Copy()
			res[idx] = &r
			continue
		}
		missed = append(missed, key)
		missedIdx = append(missedIdx, idx)
	}
	if len(missed) == 0 {
		return res, nil
	}
	s.loads.Add(1)
	recs, err := s.storage.GetMany(ctx, missed...)
	if err != nil {
		return nil, err
	}
	for i, r := range recs {
		if r == nil {
			continue
		}
		s.cache.Insert(r.Key, r.Copy())
		res[missedIdx[i]] = r
	}
	return res, nil
}

// Put implements kvs.Storage
func (s *Storage) Put(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	r, err := s.storage.Put(ctx, record)
	s.cache.Remove(record.Key)
	return r, err
}

// CasByVersion implements kvs.Storage
func (s *Storage) CasByVersion(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	r, err := s.storage.CasByVersion(ctx, record)
	s.cache.Remove(record.Key)
	return r, err
}

// Delete implements kvs.Storage
func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.storage.Delete(ctx, key)
	s.cache.Remove(key)
	return err
}

// ListKeys implements kvs.Storage, it always goes to the backend
func (s *Storage) ListKeys(ctx context.Context, pattern string) (iterable.Iterator[string], error) {
	return s.storage.ListKeys(ctx, pattern)
}
