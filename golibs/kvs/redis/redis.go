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
package redis

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/solarisdb/lrumap/golibs/cast"
	"github.com/solarisdb/lrumap/golibs/container/iterable"
	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/solarisdb/lrumap/golibs/kvs"
	"github.com/solarisdb/lrumap/golibs/logging"
	"github.com/solarisdb/lrumap/golibs/ulidutils"
	"google.golang.org/protobuf/encoding/protowire"
)

type (
	// Storage is the kvs.Storage implementation on top of Redis. The records are stored
	// by the "/kvs/<key>" keys, the value and the version are encoded in the protobuf wire format.
	Storage struct {
		rdb    *redis.Client
		logger logging.Logger
	}

	keysIterator struct {
		si  *redis.ScanIterator
		ctx context.Context
		val *string
	}
)

const (
	keyPrefix = "/kvs/"

	fieldValue   protowire.Number = 1
	fieldVersion protowire.Number = 2
)

var _ kvs.Storage = (*Storage)(nil)

// New creates the new Storage for the Redis options provided
func New(opts *redis.Options) *Storage {
	return &Storage{rdb: redis.NewClient(opts), logger: logging.NewLogger("kvs.redis")}
}

// Init implements linker.Initializer, it checks the Redis connectivity
func (s *Storage) Init(ctx context.Context) error {
	s.logger.Infof("connecting to %s", s.rdb.Options().Addr)
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("could not connect to redis %s: %w", s.rdb.Options().Addr, checkErr(err))
	}
	return nil
}

// Shutdown implements linker.Shutdowner
func (s *Storage) Shutdown() {
	s.logger.Infof("shutting down")
	if err := s.rdb.Close(); err != nil {
		s.logger.Warnf("could not close the redis client: %s", err)
	}
}

func (s *Storage) Create(ctx context.Context, record kvs.Record) (string, error) {
	record.Version = ulidutils.NewID()
	ok, err := s.rdb.SetNX(ctx, rKey(record.Key), rec2db(&record), 0).Result()
	if err != nil {
		return "", checkErr(err)
	}
	if !ok {
		r, err := s.Get(ctx, record.Key)
		if err != nil {
			return "", errors.ErrExist
		}
		return r.Version, errors.ErrExist
	}
	return record.Version, nil
}

func (s *Storage) Get(ctx context.Context, key string) (kvs.Record, error) {
	val, err := s.rdb.Get(ctx, rKey(key)).Result()
	if err != nil {
		return kvs.Record{}, checkErr(err)
	}
	return db2rec(key, val)
}

func (s *Storage) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	if len(keys) == 0 {
		return []*kvs.Record{}, nil
	}
	res, err := s.rdb.MGet(ctx, rKeys(keys)...).Result()
	if err != nil {
		return nil, checkErr(err)
	}
	result := make([]*kvs.Record, len(keys))
	for idx, val := range res {
		sv, ok := val.(string)
		if !ok {
			continue
		}
		r, err := db2rec(keys[idx], sv)
		if err != nil {
			return nil, err
		}
		result[idx] = &r
	}
	return result, nil
}

func (s *Storage) Put(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	record.Version = ulidutils.NewID()
	_, err := s.rdb.Set(ctx, rKey(record.Key), rec2db(&record), 0).Result()
	return record, checkErr(err)
}

func (s *Storage) CasByVersion(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	key := rKey(record.Key)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err != nil {
			return checkErr(err)
		}
		r, err := db2rec(record.Key, val)
		if err != nil {
			return err
		}
		if r.Version != record.Version {
			return errors.ErrConflict
		}
		record.Version = ulidutils.NewID()
		buf := rec2db(&record)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return pipe.Set(ctx, key, buf, 0).Err()
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return kvs.Record{}, errors.ErrConflict
	}
	if err != nil {
		return kvs.Record{}, err
	}
	return record, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	cnt, err := s.rdb.Del(ctx, rKey(key)).Result()
	if err != nil {
		return checkErr(err)
	}
	if cnt == 0 {
		return errors.ErrNotExist
	}
	return nil
}

// ListKeys allows to read the keys by the pattern provided. Redis MATCH patterns are
// glob-style, so the pattern is passed as is.
func (s *Storage) ListKeys(ctx context.Context, pattern string) (iterable.Iterator[string], error) {
	si := s.rdb.Scan(ctx, 0, rKey(pattern), 1000).Iterator()
	return &keysIterator{si: si, ctx: ctx}, nil
}

func checkErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return errors.ErrNotExist
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return fmt.Errorf("%s: %w", err, errors.ErrCommunication)
	}
	return err
}

func rKeys(keys []string) []string {
	res := make([]string, len(keys))
	for idx, key := range keys {
		res[idx] = rKey(key)
	}
	return res
}

func rKey(key string) string {
	return keyPrefix + strings.TrimLeft(key, "/")
}

func key(rKey string) string {
	return strings.TrimPrefix(rKey, keyPrefix)
}

func rec2db(r *kvs.Record) []byte {
	buf := make([]byte, 0, len(r.Value)+len(r.Version)+2*protowire.SizeVarint(uint64(len(r.Value)))+2)
	buf = protowire.AppendTag(buf, fieldValue, protowire.BytesType)
	buf = protowire.AppendBytes(buf, r.Value)
	buf = protowire.AppendTag(buf, fieldVersion, protowire.BytesType)
	buf = protowire.AppendString(buf, r.Version)
	return buf
}

// db2rec decodes the record stored by the key. The val bytes are not kept in the record.
func db2rec(key, val string) (kvs.Record, error) {
	r := kvs.Record{Key: key}
	buf := cast.StringToByteArray(val)
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return kvs.Record{}, fmt.Errorf("could not decode record for key=%s: %s: %w", key, protowire.ParseError(n), errors.ErrDataLoss)
		}
		buf = buf[n:]
		switch {
		case num == fieldValue && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(buf)
			if n >= 0 {
				r.Value = append([]byte(nil), v...)
			}
		case num == fieldVersion && typ == protowire.BytesType:
			r.Version, n = protowire.ConsumeString(buf)
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
		}
		if n < 0 {
			return kvs.Record{}, fmt.Errorf("could not decode record field %d for key=%s: %s: %w", num, key, protowire.ParseError(n), errors.ErrDataLoss)
		}
		buf = buf[n:]
	}
	return r, nil
}

var _ iterable.Iterator[string] = (*keysIterator)(nil)

func (k *keysIterator) HasNext() bool {
	if k.val == nil && k.si != nil && k.si.Next(k.ctx) {
		k.val = cast.Ptr(key(k.si.Val()))
	}
	return k.val != nil
}

func (k *keysIterator) Next() (string, bool) {
	if k.HasNext() {
		res := *k.val
		k.val = nil
		return res, true
	}
	return "", false
}

func (k *keysIterator) Close() error {
	k.si = nil
	k.val = nil
	return nil
}
