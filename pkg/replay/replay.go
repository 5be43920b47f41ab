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

// Package replay runs an access trace through the LRU cache in front of a key-value
// storage and reports how the cache of the given capacity would serve it.
package replay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	goredis "github.com/go-redis/redis/v8"
	"github.com/logrange/linker"
	"github.com/solarisdb/lrumap/golibs/cast"
	"github.com/solarisdb/lrumap/golibs/container/lru"
	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/solarisdb/lrumap/golibs/kvs"
	"github.com/solarisdb/lrumap/golibs/kvs/buntdb"
	"github.com/solarisdb/lrumap/golibs/kvs/cached"
	"github.com/solarisdb/lrumap/golibs/kvs/inmem"
	"github.com/solarisdb/lrumap/golibs/kvs/redis"
	"github.com/solarisdb/lrumap/golibs/logging"
	"github.com/solarisdb/lrumap/golibs/ulidutils"
	"github.com/solarisdb/lrumap/pkg/trace"
)

// Report is the replay run result
type Report struct {
	RunID    string `json:"runId"`
	Backend  string `json:"backend"`
	Capacity int    `json:"capacity"`
	// Accesses is the number of keys read from the trace
	Accesses uint64 `json:"accesses"`
	// NotFound is the number of accesses to the keys which are not in the backend
	NotFound uint64 `json:"notFound"`
	// Seeded is the number of keys created in the backend before the replay
	Seeded       uint64    `json:"seeded"`
	Stats        lru.Stats `json:"stats"`
	HitRatio     float64   `json:"hitRatio"`
	BackendLoads uint64    `json:"backendLoads"`
}

// Run replays the trace from cfg.TraceFile and returns the report. The run is stopped
// with the context error if ctx is closed.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	log := logging.NewLogger("replay")
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	runID := ulidutils.NewUUID().String()
	log.Infof("starting run %s", runID)
	log.Debugf("config: %s", spew.Sdump(cfg))
	defer log.Infof("run %s is over", runID)

	tr, err := trace.Open(cfg.TraceFile, cfg.Filter)
	if err != nil {
		return Report{}, err
	}
	defer tr.Close()

	backend := newBackend(cfg)
	storage, err := cached.New(backend, cfg.Capacity)
	if err != nil {
		return Report{}, err
	}

	inj := linker.New()
	inj.Register(linker.Component{Name: "", Value: storage})
	if err := initComponents(ctx, inj); err != nil {
		return Report{}, err
	}
	defer inj.Shutdown()

	r := Report{RunID: runID, Backend: cfg.Backend, Capacity: cfg.Capacity}
	if cfg.Seed {
		if r.Seeded, err = seed(ctx, backend, tr); err != nil {
			return Report{}, err
		}
		log.Infof("%d keys are seeded", r.Seeded)
		if err := tr.Reset(); err != nil {
			return Report{}, err
		}
	}

	for tr.HasNext() {
		if err := ctx.Err(); err != nil {
			return Report{}, fmt.Errorf("the run %s is interrupted after %d accesses: %w", runID, r.Accesses, err)
		}
		k, _ := tr.Next()
		r.Accesses++
		_, err := storage.Get(ctx, k)
		if errors.Is(err, errors.ErrNotExist) {
			r.NotFound++
			continue
		}
		if err != nil {
			return Report{}, fmt.Errorf("could not read the key %q: %w", k, err)
		}
	}

	r.Stats = storage.Stats()
	r.HitRatio = r.Stats.HitRatio()
	r.BackendLoads = storage.Loads()
	log.Infof("run %s: accesses=%d, stats=%s", runID, r.Accesses, r.Stats)
	return r, nil
}

func (r Report) String() string {
	b, _ := json.MarshalIndent(r, "", "  ")
	return string(b)
}

func newBackend(cfg *Config) kvs.Storage {
	switch cfg.Backend {
	case BackendBuntDB:
		return buntdb.NewStorage(cast.Value(cfg.BuntDB, buntdb.Config{}))
	case BackendRedis:
		return redis.New(&goredis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}
	return inmem.New()
}

// initComponents runs inj.Init(), which panics if a component cannot be initialized
func initComponents(ctx context.Context, inj *linker.Injector) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("could not initialize the components: %v: %w", r, errors.ErrInternal)
		}
	}()
	inj.Init(ctx)
	return nil
}

// seed creates the trace keys which are not in the backend, the key is used as the value
func seed(ctx context.Context, s kvs.Storage, tr *trace.Reader) (uint64, error) {
	var n uint64
	for tr.HasNext() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		k, _ := tr.Next()
		_, err := s.Create(ctx, kvs.Record{Key: k, Value: []byte(k)})
		if errors.Is(err, errors.ErrExist) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("could not seed the key %q: %w", k, err)
		}
		n++
	}
	return n, nil
}
