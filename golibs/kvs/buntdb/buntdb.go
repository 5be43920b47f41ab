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

package buntdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/solarisdb/lrumap/golibs/cast"
	"github.com/solarisdb/lrumap/golibs/container/iterable"
	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/solarisdb/lrumap/golibs/files"
	"github.com/solarisdb/lrumap/golibs/kvs"
	"github.com/solarisdb/lrumap/golibs/logging"
	"github.com/solarisdb/lrumap/golibs/ulidutils"
	"github.com/tidwall/buntdb"
)

type (
	// Config specifies configuration for the kvs.Storage
	// based on BuntDB https://github.com/tidwall/buntdb
	Config struct {
		// DBFilePath specifies path to the DB file
		// if empty the in-mem version is used
		DBFilePath string
	}

	// Storage implements kvs.Storage. It must be initialized by Init() before use
	// and released by Shutdown().
	Storage struct {
		cfg    Config
		db     *buntdb.DB
		logger logging.Logger
	}

	entry struct {
		Value   []byte `json:"value,omitempty"`
		Version string `json:"version"`
	}
)

var _ kvs.Storage = (*Storage)(nil)

// NewStorage creates the new Storage, which is not initialized yet
func NewStorage(cfg Config) *Storage {
	return &Storage{cfg: cfg, logger: logging.NewLogger("kvs.buntdb")}
}

// Init implements linker.Initializer
func (s *Storage) Init(ctx context.Context) error {
	path := s.cfg.DBFilePath
	if len(path) == 0 {
		path = ":memory:"
	} else if err := files.EnsureFileDirExists(path); err != nil {
		return err
	}
	s.logger.Infof("Initializing with dbFilePath=%s", path)

	var err error
	s.db, err = buntdb.Open(path)
	if err != nil {
		return fmt.Errorf("buntdb.Open(%s) failed: %w", path, err)
	}
	return nil
}

// Shutdown implements linker.Shutdowner
func (s *Storage) Shutdown() {
	s.logger.Infof("Shutting down...")
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Storage) Create(ctx context.Context, record kvs.Record) (string, error) {
	var ver string
	err := s.db.Update(func(tx *buntdb.Tx) error {
		e, err := getEntry(tx, record.Key)
		if err == nil {
			ver = e.Version
			return errors.ErrExist
		}
		if !errors.Is(err, errors.ErrNotExist) {
			return err
		}
		ver = ulidutils.NewID()
		return setEntry(tx, record.Key, entry{Value: record.Value, Version: ver})
	})
	return ver, err
}

func (s *Storage) Get(ctx context.Context, key string) (kvs.Record, error) {
	var r kvs.Record
	err := s.db.View(func(tx *buntdb.Tx) error {
		e, err := getEntry(tx, key)
		if err != nil {
			return err
		}
		r = e.toRecord(key)
		return nil
	})
	return r, err
}

func (s *Storage) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	res := make([]*kvs.Record, len(keys))
	err := s.db.View(func(tx *buntdb.Tx) error {
		for idx, key := range keys {
			e, err := getEntry(tx, key)
			if errors.Is(err, errors.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}
			r := e.toRecord(key)
			res[idx] = &r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Storage) Put(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	record.Version = ulidutils.NewID()
	err := s.db.Update(func(tx *buntdb.Tx) error {
		return setEntry(tx, record.Key, entry{Value: record.Value, Version: record.Version})
	})
	if err != nil {
		return kvs.Record{}, err
	}
	return record, nil
}

func (s *Storage) CasByVersion(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		e, err := getEntry(tx, record.Key)
		if err != nil {
			return err
		}
		if e.Version != record.Version {
			return errors.ErrConflict
		}
		record.Version = ulidutils.NewID()
		return setEntry(tx, record.Key, entry{Value: record.Value, Version: record.Version})
	})
	if err != nil {
		return kvs.Record{}, err
	}
	return record, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		if errors.Is(err, buntdb.ErrNotFound) {
			return errors.ErrNotExist
		}
		if err != nil {
			return fmt.Errorf("tx.Delete(%s) failed: %w", key, err)
		}
		return nil
	})
}

func (s *Storage) ListKeys(ctx context.Context, pattern string) (iterable.Iterator[string], error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("could not compile the pattern %q: %w", pattern, errors.ErrInvalid)
	}
	res := []string{}
	err = s.db.View(func(tx *buntdb.Tx) error {
		var iterErr error
		err := tx.Ascend("", func(key, _ string) bool {
			if ctx.Err() != nil {
				iterErr = fmt.Errorf("context error: %w", ctx.Err())
				return false
			}
			if g.Match(key) {
				res = append(res, key)
			}
			return true
		})
		if err != nil {
			return err
		}
		return iterErr
	})
	if err != nil {
		return nil, err
	}
	return iterable.WrapSlice(res), nil
}

func getEntry(tx *buntdb.Tx, key string) (entry, error) {
	val, err := tx.Get(key)
	if errors.Is(err, buntdb.ErrNotFound) {
		return entry{}, errors.ErrNotExist
	}
	if err != nil {
		return entry{}, fmt.Errorf("tx.Get(%s) failed: %w", key, err)
	}
	var e entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return entry{}, fmt.Errorf("could not unmarshal the value for key=%s: %s: %w", key, err, errors.ErrDataLoss)
	}
	return e, nil
}

func setEntry(tx *buntdb.Tx, key string, e entry) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("could not marshal the value for key=%s: %w", key, err)
	}
	if _, _, err := tx.Set(key, cast.ByteArrayToString(buf), nil); err != nil {
		return fmt.Errorf("tx.Set(%s) failed: %w", key, err)
	}
	return nil
}

func (e entry) toRecord(key string) kvs.Record {
	return kvs.Record{Key: key, Value: e.Value, Version: e.Version}
}
