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
package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/gobwas/glob"
	"github.com/solarisdb/lrumap/golibs/container/iterable"
	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/solarisdb/lrumap/golibs/kvs"
	"github.com/solarisdb/lrumap/golibs/ulidutils"
)

type (
	service struct {
		lock sync.Mutex
		recs map[string]kvs.Record
	}
)

var _ kvs.Storage = (*service)(nil)

// New returns new kvs.Storage in memory
func New() kvs.Storage {
	res := new(service)
	res.recs = make(map[string]kvs.Record)
	return res
}

func (s *service) Create(ctx context.Context, record kvs.Record) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if r, ok := s.recs[record.Key]; ok {
		return r.Version, errors.ErrExist
	}
	record = record.Copy()
	record.Version = ulidutils.NewID()
	s.recs[record.Key] = record
	return record.Version, nil
}

func (s *service) Get(ctx context.Context, key string) (kvs.Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	r, ok := s.recs[key]
	if !ok {
		return kvs.Record{}, errors.ErrNotExist
	}
	return r.Copy(), nil
}

func (s *service) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	res := make([]*kvs.Record, len(keys))
	for idx, key := range keys {
		if r, ok := s.recs[key]; ok {
			r = r.Copy()
			res[idx] = &r
		}
	}
	return res, nil
}

func (s *service) Put(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	record = record.Copy()
	record.Version = ulidutils.NewID()
	s.recs[record.Key] = record
	return record.Copy(), nil
}

func (s *service) CasByVersion(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	r, ok := s.recs[record.Key]
	if !ok {
		return kvs.Record{}, errors.ErrNotExist
	}
	if r.Version != record.Version {
		return kvs.Record{}, errors.ErrConflict
	}
	record = record.Copy()
	record.Version = ulidutils.NewID()
	s.recs[record.Key] = record
	return record.Copy(), nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.recs[key]; !ok {
		return errors.ErrNotExist
	}
	delete(s.recs, key)
	return nil
}

func (s *service) ListKeys(ctx context.Context, pattern string) (iterable.Iterator[string], error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("could not compile the pattern %q: %w", pattern, errors.ErrInvalid)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	res := []string{}
	for k := range s.recs {
		if g.Match(k) {
			res = append(res, k)
		}
	}
	return iterable.WrapSlice(res), nil
}
