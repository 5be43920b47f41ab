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

package kvs

import (
	"context"
	"sort"
	"testing"

	"github.com/solarisdb/lrumap/golibs/container/iterable"
	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/stretchr/testify/assert"
)

// TestStorage runs a bunch of tests against an empty Storage instance
func TestStorage(t *testing.T, s Storage) {
	ctx := context.Background()

	// create and get
	_, err := s.Get(ctx, "aa")
	assert.ErrorIs(t, err, errors.ErrNotExist)
	ver, err := s.Create(ctx, Record{Key: "aa", Value: []byte("v1"), Version: "ignored"})
	assert.Nil(t, err)
	assert.NotEqual(t, "ignored", ver)
	_, err = s.Create(ctx, Record{Key: "aa", Value: []byte("v2")})
	assert.ErrorIs(t, err, errors.ErrExist)

	r, err := s.Get(ctx, "aa")
	assert.Nil(t, err)
	assert.Equal(t, Record{Key: "aa", Value: []byte("v1"), Version: ver}, r)

	// put
	r1, err := s.Put(ctx, Record{Key: "aa", Value: []byte("v2")})
	assert.Nil(t, err)
	assert.NotEqual(t, ver, r1.Version)
	r, err = s.Get(ctx, "aa")
	assert.Nil(t, err)
	assert.Equal(t, r1, r)
	_, err = s.Put(ctx, Record{Key: "bb", Value: []byte("b1")})
	assert.Nil(t, err)

	// get many
	recs, err := s.GetMany(ctx, "aa", "cc", "bb")
	assert.Nil(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, "v2", string(recs[0].Value))
	assert.Nil(t, recs[1])
	assert.Equal(t, "bb", recs[2].Key)
	assert.Equal(t, "b1", string(recs[2].Value))

	// cas
	r.Value = []byte("v3")
	r2, err := s.CasByVersion(ctx, r)
	assert.Nil(t, err)
	assert.Equal(t, "v3", string(r2.Value))
	assert.NotEqual(t, r.Version, r2.Version)
	_, err = s.CasByVersion(ctx, r)
	assert.ErrorIs(t, err, errors.ErrConflict)
	_, err = s.CasByVersion(ctx, Record{Key: "cc", Version: r2.Version})
	assert.ErrorIs(t, err, errors.ErrNotExist)
	r, err = s.Get(ctx, "aa")
	assert.Nil(t, err)
	assert.Equal(t, r2, r)

	// list keys
	for _, k := range []string{"key1", "key2", "ee", "ey"} {
		_, err = s.Create(ctx, Record{Key: k, Value: []byte(k)})
		assert.Nil(t, err)
	}
	assert.Equal(t, []string{"aa", "bb", "ee", "ey", "key1", "key2"}, listKeys(t, s, "*"))
	assert.Equal(t, []string{"key1", "key2"}, listKeys(t, s, "k*"))
	assert.Equal(t, []string{"ey", "key1", "key2"}, listKeys(t, s, "*ey*"))

	// delete
	assert.Nil(t, s.Delete(ctx, "aa"))
	assert.ErrorIs(t, s.Delete(ctx, "aa"), errors.ErrNotExist)
	_, err = s.Get(ctx, "aa")
	assert.ErrorIs(t, err, errors.ErrNotExist)
}

func listKeys(t *testing.T, s Storage, pattern string) []string {
	it, err := s.ListKeys(context.Background(), pattern)
	assert.Nil(t, err)
	defer it.Close()
	res := iterable.ToSlice(it)
	sort.Strings(res)
	return res
}
