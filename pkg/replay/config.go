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

package replay

import (
	"encoding/json"
	"fmt"

	"github.com/solarisdb/lrumap/golibs/config"
	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/solarisdb/lrumap/golibs/kvs/buntdb"
	"github.com/solarisdb/lrumap/golibs/logging"
)

type (
	// Config defines the replay run configuration
	Config struct {
		// Capacity is the LRU cache capacity
		Capacity int `json:"capacity"`
		// Backend is the storage behind the cache: inmem, buntdb or redis
		Backend string `json:"backend"`
		// BuntDB specifies the buntdb backend configuration
		BuntDB *buntdb.Config `json:"buntdb,omitempty"`
		// Redis specifies the redis backend configuration
		Redis *RedisConfig `json:"redis,omitempty"`
		// TraceFile is the path to the trace, one key per line
		TraceFile string `json:"traceFile"`
		// Filter is the glob pattern, only the matching keys are replayed if provided
		Filter string `json:"filter,omitempty"`
		// Seed makes the run to create the keys which are missing in the backend
		Seed bool `json:"seed"`
	}

	// RedisConfig specifies the redis connection
	RedisConfig struct {
		Addr     string `json:"addr"`
		Password string `json:"password,omitempty"`
		DB       int    `json:"db"`
	}
)

const (
	BackendInMem  = "inmem"
	BackendBuntDB = "buntdb"
	BackendRedis  = "redis"
)

func getDefaultConfig() *Config {
	return &Config{
		Capacity: 1000,
		Backend:  BackendInMem,
		BuntDB:   &buntdb.Config{},
		Redis:    &RedisConfig{Addr: "localhost:6379"},
		Seed:     true,
	}
}

// BuildConfig reads the configuration: the defaults are overwritten by the values
// from the cfgFile (if provided), and then by the LRUMAP_ environment variables.
func BuildConfig(cfgFile string) (*Config, error) {
	log := logging.NewLogger("replay.ConfigBuilder")
	log.Infof("trying to build config. cfgFile=%s", cfgFile)
	e := config.NewEnricher(*getDefaultConfig())
	fe := config.NewEnricher(Config{})
	err := fe.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("could not read data from the file %s: %w", cfgFile, err)
	}
	// overwrite default
	_ = e.ApplyOther(fe)
	_ = e.ApplyEnvVariables("LRUMAP", "_")
	cfg := e.Value()
	return &cfg, nil
}

// Validate checks the configuration is consistent
func (c *Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity=%d must be positive: %w", c.Capacity, errors.ErrInvalid)
	}
	switch c.Backend {
	case BackendInMem, BackendBuntDB:
	case BackendRedis:
		if c.Redis == nil || c.Redis.Addr == "" {
			return fmt.Errorf("the redis address must be provided for the redis backend: %w", errors.ErrInvalid)
		}
	default:
		return fmt.Errorf("unknown backend %q, expecting one of %s, %s or %s: %w",
			c.Backend, BackendInMem, BackendBuntDB, BackendRedis, errors.ErrInvalid)
	}
	if c.TraceFile == "" {
		return fmt.Errorf("the trace file must be provided: %w", errors.ErrInvalid)
	}
	return nil
}

func (c *Config) String() string {
	b, _ := json.MarshalIndent(*c, "", "  ")
	return string(b)
}
